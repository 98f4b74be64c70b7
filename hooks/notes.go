package hooks

import (
	"context"
	"fmt"
	"slices"

	"github.com/CrestNiraj12/terminalnotes/cache"
	"github.com/CrestNiraj12/terminalnotes/domain"
)

// Notes reads and edits notes.
type Notes struct {
	*base
}

func (h *Notes) Mine(ctx context.Context) ([]domain.Note, error) {
	return cache.Query(ctx, h.store, KeyMyNotes, h.svc.Notes.ListMine)
}

func (h *Notes) Explore(ctx context.Context) ([]domain.Note, error) {
	return cache.Query(ctx, h.store, KeyExplore, h.svc.Notes.Explore)
}

func (h *Notes) SharedWithMe(ctx context.Context) ([]domain.Note, error) {
	return cache.Query(ctx, h.store, KeyShared, h.svc.Notes.SharedWithMe)
}

func (h *Notes) ByProfile(ctx context.Context, profileID string) ([]domain.Note, error) {
	return cache.Query(ctx, h.store, ProfileNotesKey(profileID), func(ctx context.Context) ([]domain.Note, error) {
		return h.svc.Notes.ListByProfile(ctx, profileID)
	})
}

func (h *Notes) Get(ctx context.Context, id string) (domain.Note, error) {
	return cache.Query(ctx, h.store, NoteKey(id), func(ctx context.Context) (domain.Note, error) {
		return h.svc.Notes.Get(ctx, id)
	})
}

// List returns the presentation state of a note list key.
func (h *Notes) List(key cache.Key) cache.State[[]domain.Note] {
	return cache.Snapshot[[]domain.Note](h.store, key)
}

// Detail returns the presentation state of a note.
func (h *Notes) Detail(id string) cache.State[domain.Note] {
	return cache.Snapshot[domain.Note](h.store, NoteKey(id))
}

// Create prepends a temporary note to the own lists, then swaps in the
// server's note.
func (h *Notes) Create(ctx context.Context, in domain.NoteInput) *cache.Mutation[domain.Note] {
	const name = "notes.create"
	in = in.Normalize()
	if err := domain.Validate(in); err != nil {
		return cache.Rejected[domain.Note](name, err)
	}
	tempID := h.tempID()

	return cache.Mutate(ctx, h.store, cache.Spec[domain.Note]{
		Name: name,
		Optimistic: func(tx *cache.Tx) error {
			now := h.now()
			temp := domain.Note{ID: tempID, Title: in.Title, Content: in.Content, CreatedAt: now, UpdatedAt: now}
			keys := []cache.Key{KeyMyNotes}
			if me, ok := viewer(tx); ok {
				temp.ProfileID = me.ID
				temp.Author = me.Summary()
				keys = append(keys, ProfileNotesKey(me.ID))
			}
			for _, k := range keys {
				cache.Modify(tx, k, func(list []domain.Note) []domain.Note {
					return append([]domain.Note{temp}, list...)
				})
			}
			return nil
		},
		Run: func(ctx context.Context) (domain.Note, error) {
			n, err := h.svc.Notes.Create(ctx, in)
			if err != nil {
				return domain.Note{}, fmt.Errorf("creating note: %w", err)
			}
			return n, nil
		},
		Commit: func(tx *cache.Tx, n domain.Note) {
			editNote(tx, tempID, func(domain.Note) domain.Note { return n })
			cache.Put(tx, NoteKey(n.ID), n)
		},
		Affects: []cache.Ref{{Entity: EntityNoteLists}},
	})
}

// Update writes the new title and content everywhere the note is cached.
func (h *Notes) Update(ctx context.Context, id string, in domain.NoteInput) *cache.Mutation[domain.Note] {
	const name = "notes.update"
	in = in.Normalize()
	if err := domain.Validate(in); err != nil {
		return cache.Rejected[domain.Note](name, err)
	}

	return cache.Mutate(ctx, h.store, cache.Spec[domain.Note]{
		Name: name,
		Optimistic: func(tx *cache.Tx) error {
			if err := guardOwner(tx, id); err != nil {
				return err
			}
			now := h.now()
			editNote(tx, id, func(n domain.Note) domain.Note {
				n.Title, n.Content, n.UpdatedAt = in.Title, in.Content, now
				return n
			})
			return nil
		},
		Run: func(ctx context.Context) (domain.Note, error) {
			n, err := h.svc.Notes.Update(ctx, id, in)
			if err != nil {
				return domain.Note{}, fmt.Errorf("updating note %s: %w", id, err)
			}
			return n, nil
		},
		Commit: func(tx *cache.Tx, n domain.Note) {
			editNote(tx, id, func(domain.Note) domain.Note { return n })
		},
		Affects: []cache.Ref{noteRef(id)},
	})
}

// Delete removes the note from every list and drops its detail view.
func (h *Notes) Delete(ctx context.Context, id string) *cache.Mutation[struct{}] {
	return cache.Mutate(ctx, h.store, cache.Spec[struct{}]{
		Name: "notes.delete",
		Optimistic: func(tx *cache.Tx) error {
			if err := guardOwner(tx, id); err != nil {
				return err
			}
			dropNote(tx, id)
			return nil
		},
		Run: func(ctx context.Context) (struct{}, error) {
			if err := h.svc.Notes.Delete(ctx, id); err != nil {
				return struct{}{}, fmt.Errorf("deleting note %s: %w", id, err)
			}
			return struct{}{}, nil
		},
		Affects: []cache.Ref{
			noteRef(id),
			{Entity: EntityComments, ID: id},
			{Entity: EntityLikes, ID: id},
		},
	})
}

// Share sets the audience of a note.
func (h *Notes) Share(ctx context.Context, id string, in domain.ShareInput) *cache.Mutation[domain.Note] {
	const name = "notes.share"
	if err := domain.Validate(in); err != nil {
		return cache.Rejected[domain.Note](name, err)
	}

	return cache.Mutate(ctx, h.store, cache.Spec[domain.Note]{
		Name: name,
		Optimistic: func(tx *cache.Tx) error {
			if err := guardOwner(tx, id); err != nil {
				return err
			}
			editNote(tx, id, func(n domain.Note) domain.Note {
				n.Public = in.Public
				n.SharedWith = slices.Clone(in.ProfileIDs)
				return n
			})
			return nil
		},
		Run: func(ctx context.Context) (domain.Note, error) {
			n, err := h.svc.Notes.Share(ctx, id, in)
			if err != nil {
				return domain.Note{}, fmt.Errorf("sharing note %s: %w", id, err)
			}
			return n, nil
		},
		Commit: func(tx *cache.Tx, n domain.Note) {
			editNote(tx, id, func(domain.Note) domain.Note { return n })
		},
		Affects: []cache.Ref{noteRef(id), {Entity: EntityNoteLists}},
	})
}
