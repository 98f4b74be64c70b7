package hooks

import (
	"context"
	"fmt"
	"sync"

	"github.com/CrestNiraj12/terminalnotes/cache"
	"github.com/CrestNiraj12/terminalnotes/domain"
)

// Likes toggles and lists likes.
type Likes struct {
	*base
}

func (h *Likes) List(ctx context.Context, noteID string) ([]domain.Like, error) {
	return cache.Query(ctx, h.store, LikesKey(noteID), func(ctx context.Context) ([]domain.Like, error) {
		return h.svc.Interactions.ListLikes(ctx, noteID)
	})
}

// Toggle flips the viewer's like on a note. The direction is read from the
// cache when the hook runs; if the note is not cached nothing is written
// until the server answers.
func (h *Likes) Toggle(ctx context.Context, noteID string) *cache.Mutation[domain.LikeState] {
	return cache.Mutate(ctx, h.store, cache.Spec[domain.LikeState]{
		Name: "likes.toggle",
		Optimistic: func(tx *cache.Tx) error {
			cur, ok := findNote(tx, noteID)
			if !ok {
				return nil
			}
			liked := !cur.Liked
			count := cur.LikesCount + 1
			if !liked {
				count = domain.ClampCount(cur.LikesCount - 1)
			}
			editNote(tx, noteID, func(n domain.Note) domain.Note {
				n.Liked, n.LikesCount = liked, count
				return n
			})
			return nil
		},
		Run: func(ctx context.Context) (domain.LikeState, error) {
			st, err := h.svc.Interactions.ToggleLike(ctx, noteID)
			if err != nil {
				return domain.LikeState{}, fmt.Errorf("toggling like on %s: %w", noteID, err)
			}
			return st, nil
		},
		Commit: func(tx *cache.Tx, st domain.LikeState) {
			editNote(tx, noteID, func(n domain.Note) domain.Note {
				n.Liked, n.LikesCount = st.Liked, domain.ClampCount(st.LikesCount)
				return n
			})
		},
		Affects: []cache.Ref{noteRef(noteID), {Entity: EntityLikes, ID: noteID}},
	})
}

// Comments lists, adds, and deletes comments.
type Comments struct {
	*base
}

func (h *Comments) List(ctx context.Context, noteID string) ([]domain.Comment, error) {
	return cache.Query(ctx, h.store, CommentsKey(noteID), func(ctx context.Context) ([]domain.Comment, error) {
		return h.svc.Interactions.ListComments(ctx, noteID)
	})
}

// Thread returns the presentation state of a note's comments.
func (h *Comments) Thread(noteID string) cache.State[[]domain.Comment] {
	return cache.Snapshot[[]domain.Comment](h.store, CommentsKey(noteID))
}

// Add appends a temporary comment and bumps the note's comment count.
func (h *Comments) Add(ctx context.Context, noteID string, in domain.CommentInput) *cache.Mutation[domain.Comment] {
	const name = "comments.add"
	if err := domain.Validate(in); err != nil {
		return cache.Rejected[domain.Comment](name, err)
	}
	tempID := h.tempID()

	return cache.Mutate(ctx, h.store, cache.Spec[domain.Comment]{
		Name: name,
		Optimistic: func(tx *cache.Tx) error {
			temp := domain.Comment{ID: tempID, NoteID: noteID, Content: in.Content, CreatedAt: h.now()}
			if me, ok := viewer(tx); ok {
				temp.ProfileID = me.ID
				temp.Author = me.Summary()
			}
			cache.Modify(tx, CommentsKey(noteID), func(cs []domain.Comment) []domain.Comment {
				return append(append([]domain.Comment(nil), cs...), temp)
			})
			editNote(tx, noteID, func(n domain.Note) domain.Note {
				n.CommentsCount++
				return n
			})
			return nil
		},
		Run: func(ctx context.Context) (domain.Comment, error) {
			c, err := h.svc.Interactions.CreateComment(ctx, noteID, in)
			if err != nil {
				return domain.Comment{}, fmt.Errorf("commenting on %s: %w", noteID, err)
			}
			return c, nil
		},
		Commit: func(tx *cache.Tx, c domain.Comment) {
			cache.Modify(tx, CommentsKey(noteID), func(cs []domain.Comment) []domain.Comment {
				out := make([]domain.Comment, len(cs))
				for i, cur := range cs {
					if cur.ID == tempID {
						cur = c
					}
					out[i] = cur
				}
				return out
			})
		},
		Affects: []cache.Ref{{Entity: EntityComments, ID: noteID}, noteRef(noteID)},
	})
}

// Delete removes a comment and decrements the note's comment count once, even
// if the same comment is deleted again before the first request settles.
func (h *Comments) Delete(ctx context.Context, noteID, commentID string) *cache.Mutation[struct{}] {
	return cache.Mutate(ctx, h.store, cache.Spec[struct{}]{
		Name: "comments.delete",
		Optimistic: func(tx *cache.Tx) error {
			removed := false
			listed := cache.Modify(tx, CommentsKey(noteID), func(cs []domain.Comment) []domain.Comment {
				out := make([]domain.Comment, 0, len(cs))
				for _, c := range cs {
					if c.ID == commentID {
						removed = true
						continue
					}
					out = append(out, c)
				}
				return out
			})
			// A cached thread without the comment was already counted down.
			if listed && !removed {
				return nil
			}
			editNote(tx, noteID, func(n domain.Note) domain.Note {
				n.CommentsCount = domain.ClampCount(n.CommentsCount - 1)
				return n
			})
			return nil
		},
		Run: func(ctx context.Context) (struct{}, error) {
			if err := h.svc.Interactions.DeleteComment(ctx, noteID, commentID); err != nil {
				return struct{}{}, fmt.Errorf("deleting comment %s: %w", commentID, err)
			}
			return struct{}{}, nil
		},
		Affects: []cache.Ref{{Entity: EntityComments, ID: noteID}, noteRef(noteID)},
	})
}

// Views records note views. With WithViewDedupe a note counts at most once
// per session.
type Views struct {
	*base

	mu   sync.Mutex
	seen map[string]bool
}

// Record counts a view of noteID. When views are deduplicated, repeat calls
// in the same session settle immediately with the cached count and send
// nothing.
func (h *Views) Record(ctx context.Context, noteID string) *cache.Mutation[domain.ViewState] {
	const name = "views.record"
	if h.dedupeViews && !h.claim(noteID) {
		st := domain.ViewState{NoteID: noteID}
		if n := cache.Snapshot[domain.Note](h.store, NoteKey(noteID)); n.HasData {
			st.ViewsCount = n.Data.ViewsCount
		}
		return cache.Completed(name, st)
	}

	m := cache.Mutate(ctx, h.store, cache.Spec[domain.ViewState]{
		Name: name,
		Optimistic: func(tx *cache.Tx) error {
			editNote(tx, noteID, func(n domain.Note) domain.Note {
				n.ViewsCount++
				return n
			})
			return nil
		},
		Run: func(ctx context.Context) (domain.ViewState, error) {
			st, err := h.svc.Interactions.RecordView(ctx, noteID)
			if err != nil {
				return domain.ViewState{}, fmt.Errorf("recording view of %s: %w", noteID, err)
			}
			return st, nil
		},
		Commit: func(tx *cache.Tx, st domain.ViewState) {
			editNote(tx, noteID, func(n domain.Note) domain.Note {
				n.ViewsCount = domain.ClampCount(st.ViewsCount)
				return n
			})
		},
		Affects: []cache.Ref{noteRef(noteID)},
	})
	if h.dedupeViews {
		m.OnSettled(func(_ domain.ViewState, err error) {
			if err != nil {
				h.release(noteID)
			}
		})
	}
	return m
}

func (h *Views) claim(noteID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.seen[noteID] {
		return false
	}
	h.seen[noteID] = true
	return true
}

func (h *Views) release(noteID string) {
	h.mu.Lock()
	delete(h.seen, noteID)
	h.mu.Unlock()
}

func (h *Views) reset() {
	h.mu.Lock()
	h.seen = make(map[string]bool)
	h.mu.Unlock()
}
