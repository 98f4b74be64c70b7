package notesapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/CrestNiraj12/terminalnotes/domain"
)

// followService implements app.FollowService using the notes API.
type followService struct {
	client *Client
}

// NewFollowService creates a FollowService backed by the notes API.
func NewFollowService(client *Client) *followService {
	return &followService{client: client}
}

func (s *followService) Toggle(ctx context.Context, profileID string) (domain.FollowState, error) {
	if strings.TrimSpace(profileID) == "" {
		return domain.FollowState{}, fmt.Errorf("invalid profile id")
	}
	data, err := s.client.Post(ctx, profilePath(profileID)+"/follow", nil)
	if err != nil {
		return domain.FollowState{}, fmt.Errorf("toggling follow: %w", err)
	}
	return decode[domain.FollowState](data, "follow state")
}

func (s *followService) Followers(ctx context.Context, profileID string) ([]domain.Profile, error) {
	return s.list(ctx, profileID, "followers")
}

func (s *followService) Following(ctx context.Context, profileID string) ([]domain.Profile, error) {
	return s.list(ctx, profileID, "following")
}

func (s *followService) list(ctx context.Context, profileID, rel string) ([]domain.Profile, error) {
	if strings.TrimSpace(profileID) == "" {
		return nil, fmt.Errorf("invalid profile id")
	}
	data, err := s.client.Get(ctx, profilePath(profileID)+"/"+rel)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rel, err)
	}
	out, err := decode[[]domain.Profile](data, rel)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Profile{}
	}
	return out, nil
}
