package app

import (
	"context"

	"github.com/CrestNiraj12/terminalnotes/domain"
)

// ProfileService provides information about profiles.
type ProfileService interface {
	// Me returns the authenticated user's profile.
	Me(ctx context.Context) (domain.Profile, error)

	// ByID returns any profile.
	ByID(ctx context.Context, id string) (domain.Profile, error)

	// Update edits the authenticated user's profile.
	Update(ctx context.Context, in domain.ProfileInput) (domain.Profile, error)

	// Delete removes the authenticated user's account and profile.
	Delete(ctx context.Context) error
}

// FollowService manages follow edges of the authenticated profile.
type FollowService interface {
	// Toggle follows or unfollows the given profile.
	Toggle(ctx context.Context, profileID string) (domain.FollowState, error)

	// Followers lists the profiles following profileID.
	Followers(ctx context.Context, profileID string) ([]domain.Profile, error)

	// Following lists the profiles profileID follows.
	Following(ctx context.Context, profileID string) ([]domain.Profile, error)
}
