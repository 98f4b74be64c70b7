package app

import (
	"context"

	"github.com/CrestNiraj12/terminalnotes/domain"
)

// InteractionService records likes, comments, and views on notes.
type InteractionService interface {
	ToggleLike(ctx context.Context, noteID string) (domain.LikeState, error)
	ListLikes(ctx context.Context, noteID string) ([]domain.Like, error)

	ListComments(ctx context.Context, noteID string) ([]domain.Comment, error)
	CreateComment(ctx context.Context, noteID string, in domain.CommentInput) (domain.Comment, error)
	DeleteComment(ctx context.Context, noteID, commentID string) error

	// RecordView is fire-and-forget from the user's point of view.
	RecordView(ctx context.Context, noteID string) (domain.ViewState, error)
}
