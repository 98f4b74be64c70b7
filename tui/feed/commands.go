package feed

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/CrestNiraj12/terminalnotes/cache"
	"github.com/CrestNiraj12/terminalnotes/domain"
	"github.com/CrestNiraj12/terminalnotes/hooks"
	"github.com/CrestNiraj12/terminalnotes/tui/common"
)

// Actions reported through common.SettledMsg.
const (
	actionLike          = "Like"
	actionDelete        = "Delete"
	actionShare         = "Share"
	actionFollow        = "Follow"
	actionView          = "View"
	actionDeleteComment = "Delete comment"
)

func query(key cache.Key, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return queriedMsg{key: key, err: fn(context.Background())}
	}
}

func (m Model) queryMe() tea.Cmd {
	h := m.hooks
	return query(hooks.KeyMe, func(ctx context.Context) error {
		_, err := h.Profile.Me(ctx)
		return err
	})
}

func (m Model) querySource() tea.Cmd {
	h, src := m.hooks, m.source
	return query(src.Key(), func(ctx context.Context) error {
		var err error
		switch src {
		case SourceExplore:
			_, err = h.Notes.Explore(ctx)
		case SourceShared:
			_, err = h.Notes.SharedWithMe(ctx)
		default:
			_, err = h.Notes.Mine(ctx)
		}
		return err
	})
}

func (m Model) queryDetail(id string) tea.Cmd {
	h := m.hooks
	return tea.Batch(
		query(hooks.NoteKey(id), func(ctx context.Context) error {
			_, err := h.Notes.Get(ctx, id)
			return err
		}),
		query(hooks.CommentsKey(id), func(ctx context.Context) error {
			_, err := h.Comments.List(ctx, id)
			return err
		}),
	)
}

// refresh refetches everything the feed shows, fresh or not.
func (m Model) refresh() tea.Cmd {
	store := m.hooks.Store()
	keys := []cache.Key{m.source.Key(), hooks.KeyMe}
	if m.detailID != "" {
		keys = append(keys, hooks.NoteKey(m.detailID), hooks.CommentsKey(m.detailID))
	}
	return query(m.source.Key(), func(ctx context.Context) error {
		return store.Refetch(ctx, keys...)
	})
}

// refocus catches up observed keys that went stale.
func (m Model) refocus() tea.Cmd {
	store := m.hooks.Store()
	return query("", store.Refocus)
}

func (m Model) toggleLike(n domain.Note) tea.Cmd {
	return common.Await(actionLike, m.hooks.Likes.Toggle(context.Background(), n.ID))
}

func (m Model) deleteNote(n domain.Note) tea.Cmd {
	return common.Await(actionDelete, m.hooks.Notes.Delete(context.Background(), n.ID))
}

func (m Model) togglePublic(n domain.Note) tea.Cmd {
	in := domain.ShareInput{ProfileIDs: n.SharedWith, Public: !n.Public}
	return common.Await(actionShare, m.hooks.Notes.Share(context.Background(), n.ID, in))
}

func (m Model) toggleFollow(profileID string) tea.Cmd {
	return common.Await(actionFollow, m.hooks.Follows.Toggle(context.Background(), profileID))
}

func (m Model) recordView(id string) tea.Cmd {
	return common.Await(actionView, m.hooks.Views.Record(context.Background(), id))
}

func (m Model) deleteComment(noteID, commentID string) tea.Cmd {
	return common.Await(actionDeleteComment, m.hooks.Comments.Delete(context.Background(), noteID, commentID))
}

func expired() tea.Msg { return common.ExpiredMsg{} }
