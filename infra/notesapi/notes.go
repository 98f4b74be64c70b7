package notesapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/CrestNiraj12/terminalnotes/domain"
)

// noteService implements app.NoteService using the notes API.
type noteService struct {
	client *Client
}

// NewNoteService creates a NoteService backed by the notes API.
func NewNoteService(client *Client) *noteService {
	return &noteService{client: client}
}

func notePath(id string) string {
	return "/notes/" + url.PathEscape(id)
}

func (s *noteService) Create(ctx context.Context, in domain.NoteInput) (domain.Note, error) {
	in = in.Normalize()
	if in.Title == "" {
		return domain.Note{}, domain.ErrEmptyNote
	}
	data, err := s.client.Post(ctx, "/notes", in)
	if err != nil {
		return domain.Note{}, fmt.Errorf("creating note: %w", err)
	}
	return decode[domain.Note](data, "note")
}

func (s *noteService) Get(ctx context.Context, id string) (domain.Note, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Note{}, fmt.Errorf("invalid note id")
	}
	data, err := s.client.Get(ctx, notePath(id))
	if err != nil {
		return domain.Note{}, fmt.Errorf("fetching note: %w", err)
	}
	return decode[domain.Note](data, "note")
}

func (s *noteService) Update(ctx context.Context, id string, in domain.NoteInput) (domain.Note, error) {
	in = in.Normalize()
	if in.Title == "" {
		return domain.Note{}, domain.ErrEmptyNote
	}
	data, err := s.client.Patch(ctx, notePath(id), in)
	if err != nil {
		return domain.Note{}, fmt.Errorf("updating note: %w", err)
	}
	return decode[domain.Note](data, "note")
}

func (s *noteService) Delete(ctx context.Context, id string) error {
	if _, err := s.client.Delete(ctx, notePath(id)); err != nil {
		return fmt.Errorf("deleting note: %w", err)
	}
	return nil
}

func (s *noteService) Share(ctx context.Context, id string, in domain.ShareInput) (domain.Note, error) {
	data, err := s.client.Post(ctx, notePath(id)+"/share", in)
	if err != nil {
		return domain.Note{}, fmt.Errorf("sharing note: %w", err)
	}
	return decode[domain.Note](data, "note")
}

func (s *noteService) ListMine(ctx context.Context) ([]domain.Note, error) {
	return s.list(ctx, "/notes", "my notes")
}

func (s *noteService) Explore(ctx context.Context) ([]domain.Note, error) {
	return s.list(ctx, "/notes/explore", "explore feed")
}

func (s *noteService) SharedWithMe(ctx context.Context) ([]domain.Note, error) {
	return s.list(ctx, "/notes/shared", "shared notes")
}

func (s *noteService) ListByProfile(ctx context.Context, profileID string) ([]domain.Note, error) {
	if strings.TrimSpace(profileID) == "" {
		return nil, fmt.Errorf("invalid profile id")
	}
	return s.list(ctx, profilePath(profileID)+"/notes", "profile notes")
}

func (s *noteService) list(ctx context.Context, path, what string) ([]domain.Note, error) {
	data, err := s.client.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", what, err)
	}
	notes, err := decode[[]domain.Note](data, what)
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []domain.Note{}
	}
	return notes, nil
}
