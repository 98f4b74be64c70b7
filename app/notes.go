package app

import (
	"context"

	"github.com/CrestNiraj12/terminalnotes/domain"
)

// NoteService creates, reads, edits, shares, and deletes notes on the notes API.
type NoteService interface {
	// Create publishes a new note owned by the authenticated profile.
	Create(ctx context.Context, in domain.NoteInput) (domain.Note, error)

	// Get returns a single note by ID.
	Get(ctx context.Context, id string) (domain.Note, error)

	// Update replaces the title and content of an owned note.
	Update(ctx context.Context, id string, in domain.NoteInput) (domain.Note, error)

	// Delete removes an owned note.
	Delete(ctx context.Context, id string) error

	// Share sets the audience of an owned note.
	Share(ctx context.Context, id string, in domain.ShareInput) (domain.Note, error)

	// ListMine returns the authenticated profile's notes.
	ListMine(ctx context.Context) ([]domain.Note, error)

	// Explore returns public notes from everyone.
	Explore(ctx context.Context) ([]domain.Note, error)

	// SharedWithMe returns notes other profiles shared with the authenticated one.
	SharedWithMe(ctx context.Context) ([]domain.Note, error)

	// ListByProfile returns the notes of a profile visible to the viewer.
	ListByProfile(ctx context.Context, profileID string) ([]domain.Note, error)
}
