package notesapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/CrestNiraj12/terminalnotes/domain"
)

// profileService implements app.ProfileService using the notes API.
type profileService struct {
	client *Client
}

// NewProfileService creates a ProfileService backed by the notes API.
func NewProfileService(client *Client) *profileService {
	return &profileService{client: client}
}

func profilePath(id string) string {
	return "/profiles/" + url.PathEscape(id)
}

func (s *profileService) Me(ctx context.Context) (domain.Profile, error) {
	data, err := s.client.Get(ctx, "/profiles/me")
	if err != nil {
		return domain.Profile{}, fmt.Errorf("fetching own profile: %w", err)
	}
	return decode[domain.Profile](data, "profile")
}

func (s *profileService) ByID(ctx context.Context, id string) (domain.Profile, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Profile{}, fmt.Errorf("invalid profile id")
	}
	data, err := s.client.Get(ctx, profilePath(id))
	if err != nil {
		return domain.Profile{}, fmt.Errorf("fetching profile: %w", err)
	}
	return decode[domain.Profile](data, "profile")
}

func (s *profileService) Update(ctx context.Context, in domain.ProfileInput) (domain.Profile, error) {
	data, err := s.client.Patch(ctx, "/profiles/me", in)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("updating profile: %w", err)
	}
	return decode[domain.Profile](data, "profile")
}

func (s *profileService) Delete(ctx context.Context) error {
	if _, err := s.client.Delete(ctx, "/profiles/me"); err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	return nil
}
