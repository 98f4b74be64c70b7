package notesapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/CrestNiraj12/terminalnotes/domain"
)

// interactionService implements app.InteractionService using the notes API.
type interactionService struct {
	client *Client
}

// NewInteractionService creates an InteractionService backed by the notes API.
func NewInteractionService(client *Client) *interactionService {
	return &interactionService{client: client}
}

func (s *interactionService) ToggleLike(ctx context.Context, noteID string) (domain.LikeState, error) {
	data, err := s.client.Post(ctx, notePath(noteID)+"/likes", nil)
	if err != nil {
		return domain.LikeState{}, fmt.Errorf("toggling like: %w", err)
	}
	return decode[domain.LikeState](data, "like state")
}

func (s *interactionService) ListLikes(ctx context.Context, noteID string) ([]domain.Like, error) {
	data, err := s.client.Get(ctx, notePath(noteID)+"/likes")
	if err != nil {
		return nil, fmt.Errorf("fetching likes: %w", err)
	}
	likes, err := decode[[]domain.Like](data, "likes")
	if err != nil {
		return nil, err
	}
	if likes == nil {
		likes = []domain.Like{}
	}
	return likes, nil
}

func (s *interactionService) ListComments(ctx context.Context, noteID string) ([]domain.Comment, error) {
	data, err := s.client.Get(ctx, notePath(noteID)+"/comments")
	if err != nil {
		return nil, fmt.Errorf("fetching comments: %w", err)
	}
	comments, err := decode[[]domain.Comment](data, "comments")
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	return comments, nil
}

func (s *interactionService) CreateComment(ctx context.Context, noteID string, in domain.CommentInput) (domain.Comment, error) {
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		return domain.Comment{}, domain.ErrEmptyComment
	}
	data, err := s.client.Post(ctx, notePath(noteID)+"/comments", in)
	if err != nil {
		return domain.Comment{}, fmt.Errorf("creating comment: %w", err)
	}
	return decode[domain.Comment](data, "comment")
}

func (s *interactionService) DeleteComment(ctx context.Context, noteID, commentID string) error {
	path := notePath(noteID) + "/comments/" + url.PathEscape(commentID)
	if _, err := s.client.Delete(ctx, path); err != nil {
		return fmt.Errorf("deleting comment: %w", err)
	}
	return nil
}

func (s *interactionService) RecordView(ctx context.Context, noteID string) (domain.ViewState, error) {
	data, err := s.client.Post(ctx, notePath(noteID)+"/views", nil)
	if err != nil {
		return domain.ViewState{}, fmt.Errorf("recording view: %w", err)
	}
	return decode[domain.ViewState](data, "view state")
}
