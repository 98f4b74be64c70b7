package hooks

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrestNiraj12/terminalnotes/cache"
	"github.com/CrestNiraj12/terminalnotes/domain"
)

var errOffline = &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

func TestLikesToggle_OptimisticThenRollback(t *testing.T) {
	h := newHarness(t)
	cache.Set(h.store, NoteKey("n1"), sampleNote("n1", "p2", 3, false))
	cache.Set(h.store, KeyExplore, []domain.Note{sampleNote("n0", "p3", 0, false), sampleNote("n1", "p2", 3, false)})

	g := newGate()
	h.interactions.toggleLike = func(ctx context.Context, id string) (domain.LikeState, error) {
		return domain.LikeState{}, g.wait(ctx)
	}

	m := h.hooks.Likes.Toggle(context.Background(), "n1")
	g.awaitEntered(t)

	assert.Equal(t, cache.PhaseApplied, m.Phase())
	detail := noteIn[domain.Note](h.store, NoteKey("n1"))
	assert.True(t, detail.Liked)
	assert.Equal(t, 4, detail.LikesCount)
	listed, ok := findIn(noteIn[[]domain.Note](h.store, KeyExplore), "n1")
	require.True(t, ok)
	assert.True(t, listed.Liked)
	assert.Equal(t, 4, listed.LikesCount)

	g.release <- errOffline
	_, err := wait(t, m)
	require.Error(t, err)
	assert.Equal(t, domain.KindNetwork, domain.KindOf(err))
	assert.Equal(t, cache.PhaseRolledBack, m.Phase())

	detail = noteIn[domain.Note](h.store, NoteKey("n1"))
	assert.False(t, detail.Liked)
	assert.Equal(t, 3, detail.LikesCount)
	listed, _ = findIn(noteIn[[]domain.Note](h.store, KeyExplore), "n1")
	assert.Equal(t, sampleNote("n1", "p2", 3, false), listed)
}

func TestLikesToggle_UnlikeNeverGoesNegative(t *testing.T) {
	h := newHarness(t)
	cache.Set(h.store, NoteKey("n1"), sampleNote("n1", "p2", 0, true))
	g := newGate()
	h.interactions.toggleLike = func(ctx context.Context, id string) (domain.LikeState, error) {
		return domain.LikeState{NoteID: id}, g.wait(ctx)
	}

	m := h.hooks.Likes.Toggle(context.Background(), "n1")
	g.awaitEntered(t)
	assert.Equal(t, 0, noteIn[domain.Note](h.store, NoteKey("n1")).LikesCount)
	g.release <- nil
	_, err := wait(t, m)
	require.NoError(t, err)
}

func TestLikesToggle_TwiceReturnsToOriginalState(t *testing.T) {
	h := newHarness(t)
	orig := sampleNote("n1", "p2", 7, false)
	cache.Set(h.store, NoteKey("n1"), orig)
	cache.Set(h.store, KeyExplore, []domain.Note{orig})

	server := domain.LikeState{NoteID: "n1", Liked: false, LikesCount: 7}
	h.interactions.toggleLike = func(_ context.Context, id string) (domain.LikeState, error) {
		server.Liked = !server.Liked
		if server.Liked {
			server.LikesCount++
		} else {
			server.LikesCount--
		}
		return server, nil
	}

	for range 2 {
		_, err := wait(t, h.hooks.Likes.Toggle(context.Background(), "n1"))
		require.NoError(t, err)
	}

	detail := noteIn[domain.Note](h.store, NoteKey("n1"))
	assert.False(t, detail.Liked)
	assert.Equal(t, 7, detail.LikesCount)
	listed, _ := findIn(noteIn[[]domain.Note](h.store, KeyExplore), "n1")
	assert.Equal(t, orig, listed)
	assert.EqualValues(t, 2, h.interactions.calls.Load())
}

// Two toggles in flight on the same note each snapshot the state they saw.
// When the first request fails after the second applied, its rollback
// restores the first snapshot over the second's write. The server only saw
// the second request, as a like, so the second tap's unlike is lost and the
// cache ends matching the server.
func TestLikesToggle_OverlappingTogglesLastSettleWins(t *testing.T) {
	h := newHarness(t)
	cache.Set(h.store, NoteKey("n1"), sampleNote("n1", "p2", 3, false))

	first, second := newGate(), newGate()
	var calls atomic.Int32
	h.interactions.toggleLike = func(ctx context.Context, id string) (domain.LikeState, error) {
		if calls.Add(1) == 1 {
			return domain.LikeState{}, first.wait(ctx)
		}
		return domain.LikeState{NoteID: id, Liked: true, LikesCount: 4}, second.wait(ctx)
	}

	m1 := h.hooks.Likes.Toggle(context.Background(), "n1")
	first.awaitEntered(t)
	m2 := h.hooks.Likes.Toggle(context.Background(), "n1")
	second.awaitEntered(t)
	assert.False(t, noteIn[domain.Note](h.store, NoteKey("n1")).Liked, "second toggle undid the first optimistically")

	first.release <- errOffline
	_, err := wait(t, m1)
	require.Error(t, err)
	restored := noteIn[domain.Note](h.store, NoteKey("n1"))
	assert.False(t, restored.Liked)
	assert.Equal(t, 3, restored.LikesCount)

	second.release <- nil
	_, err = wait(t, m2)
	require.NoError(t, err)
	final := noteIn[domain.Note](h.store, NoteKey("n1"))
	assert.True(t, final.Liked)
	assert.Equal(t, 4, final.LikesCount)
	assert.True(t, cache.Snapshot[domain.Note](h.store, NoteKey("n1")).Stale)
}

func TestCommentsDelete_RemovesImmediatelyAndRestoresOnFailure(t *testing.T) {
	h := newHarness(t)
	comments := []domain.Comment{
		{ID: "c1", NoteID: "n1", Content: "first"},
		{ID: "c2", NoteID: "n1", Content: "second"},
	}
	cache.Set(h.store, CommentsKey("n1"), comments)
	cache.Set(h.store, NoteKey("n1"), sampleNote("n1", "p2", 0, false))

	g := newGate()
	h.interactions.deleteComment = func(ctx context.Context, _, _ string) error { return g.wait(ctx) }

	m := h.hooks.Comments.Delete(context.Background(), "n1", "c1")
	g.awaitEntered(t)
	thread := h.hooks.Comments.Thread("n1")
	require.Len(t, thread.Data, 1)
	assert.Equal(t, "c2", thread.Data[0].ID)
	assert.Equal(t, 1, noteIn[domain.Note](h.store, NoteKey("n1")).CommentsCount)

	g.release <- &domain.APIError{Method: "DELETE", Path: "/notes/n1/comments/c1", Status: 500}
	_, err := wait(t, m)
	assert.Equal(t, domain.KindServer, domain.KindOf(err))
	assert.Equal(t, comments, h.hooks.Comments.Thread("n1").Data)
	assert.Equal(t, 2, noteIn[domain.Note](h.store, NoteKey("n1")).CommentsCount)
}

func TestCommentsDelete_RepeatedDeleteCountsOnce(t *testing.T) {
	h := newHarness(t)
	cache.Set(h.store, CommentsKey("n1"), []domain.Comment{{ID: "c1", NoteID: "n1"}, {ID: "c2", NoteID: "n1"}})
	cache.Set(h.store, NoteKey("n1"), sampleNote("n1", "p2", 0, false))

	g := newGate()
	h.interactions.deleteComment = func(ctx context.Context, _, _ string) error { return g.wait(ctx) }

	first := h.hooks.Comments.Delete(context.Background(), "n1", "c1")
	g.awaitEntered(t)
	second := h.hooks.Comments.Delete(context.Background(), "n1", "c1")
	g.awaitEntered(t)

	assert.Len(t, h.hooks.Comments.Thread("n1").Data, 1)
	assert.Equal(t, 1, noteIn[domain.Note](h.store, NoteKey("n1")).CommentsCount)

	g.release <- nil
	g.release <- nil
	_, err := wait(t, first)
	require.NoError(t, err)
	_, err = wait(t, second)
	require.NoError(t, err)
	assert.Equal(t, 1, noteIn[domain.Note](h.store, NoteKey("n1")).CommentsCount)
}

func TestCommentsDelete_UncachedThreadStillCountsDown(t *testing.T) {
	h := newHarness(t)
	cache.Set(h.store, NoteKey("n1"), sampleNote("n1", "p2", 0, false))
	h.interactions.deleteComment = func(context.Context, string, string) error { return nil }

	m := h.hooks.Comments.Delete(context.Background(), "n1", "c1")
	assert.Equal(t, 1, noteIn[domain.Note](h.store, NoteKey("n1")).CommentsCount)
	_, err := wait(t, m)
	require.NoError(t, err)
}

func TestCommentsAdd_TemporaryIDReplacedOnCommit(t *testing.T) {
	h := newHarness(t)
	cache.Set(h.store, KeyMe, me())
	cache.Set(h.store, CommentsKey("n1"), []domain.Comment{{ID: "c1", NoteID: "n1"}})
	cache.Set(h.store, NoteKey("n1"), sampleNote("n1", "p2", 0, false))

	g := newGate()
	h.interactions.createComment = func(ctx context.Context, noteID string, in domain.CommentInput) (domain.Comment, error) {
		return domain.Comment{ID: "c9", NoteID: noteID, ProfileID: "p1", Content: in.Content}, g.wait(ctx)
	}

	m := h.hooks.Comments.Add(context.Background(), "n1", domain.CommentInput{Content: "nice"})
	g.awaitEntered(t)
	thread := h.hooks.Comments.Thread("n1").Data
	require.Len(t, thread, 2)
	assert.True(t, thread[1].IsTemp())
	assert.Equal(t, "p1", thread[1].ProfileID)
	assert.Equal(t, 3, noteIn[domain.Note](h.store, NoteKey("n1")).CommentsCount)

	g.release <- nil
	c, err := wait(t, m)
	require.NoError(t, err)
	assert.Equal(t, "c9", c.ID)
	thread = h.hooks.Comments.Thread("n1").Data
	assert.Equal(t, []string{"c1", "c9"}, []string{thread[0].ID, thread[1].ID})
}

func TestCommentsAdd_RejectsEmptyWithoutRequest(t *testing.T) {
	h := newHarness(t)
	_, err := wait(t, h.hooks.Comments.Add(context.Background(), "n1", domain.CommentInput{}))
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "content")
	assert.Zero(t, h.interactions.calls.Load())
}

func TestViewsRecord_CountsEveryCallByDefault(t *testing.T) {
	h := newHarness(t)
	cache.Set(h.store, NoteKey("n1"), sampleNote("n1", "p2", 0, false))
	views := 10
	h.interactions.recordView = func(_ context.Context, id string) (domain.ViewState, error) {
		views++
		return domain.ViewState{NoteID: id, ViewsCount: views}, nil
	}

	for want := 11; want <= 12; want++ {
		st, err := wait(t, h.hooks.Views.Record(context.Background(), "n1"))
		require.NoError(t, err)
		assert.Equal(t, want, st.ViewsCount)
	}
	assert.EqualValues(t, 2, h.interactions.calls.Load())
	assert.Equal(t, 12, noteIn[domain.Note](h.store, NoteKey("n1")).ViewsCount)
}

func TestViewsRecord_OncePerSession(t *testing.T) {
	h := newHarness(t, WithViewDedupe())
	cache.Set(h.store, NoteKey("n1"), sampleNote("n1", "p2", 0, false))
	fail := true
	h.interactions.recordView = func(_ context.Context, id string) (domain.ViewState, error) {
		if fail {
			return domain.ViewState{}, errOffline
		}
		return domain.ViewState{NoteID: id, ViewsCount: 11}, nil
	}

	_, err := wait(t, h.hooks.Views.Record(context.Background(), "n1"))
	require.Error(t, err)
	assert.Equal(t, 10, noteIn[domain.Note](h.store, NoteKey("n1")).ViewsCount)

	fail = false
	st, err := wait(t, h.hooks.Views.Record(context.Background(), "n1"))
	require.NoError(t, err)
	assert.Equal(t, 11, st.ViewsCount)

	st, err = wait(t, h.hooks.Views.Record(context.Background(), "n1"))
	require.NoError(t, err)
	assert.Equal(t, 11, st.ViewsCount)
	assert.EqualValues(t, 2, h.interactions.calls.Load(), "a failed view may retry, a recorded one may not")

	require.NoError(t, h.hooks.Session.Logout(context.Background()))
	_, _ = wait(t, h.hooks.Views.Record(context.Background(), "n1"))
	assert.EqualValues(t, 3, h.interactions.calls.Load(), "a new session records again")
}
