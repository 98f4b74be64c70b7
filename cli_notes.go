package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CrestNiraj12/terminalnotes/domain"
	"github.com/CrestNiraj12/terminalnotes/infra/editor"
	"github.com/CrestNiraj12/terminalnotes/tui/common"
)

func newNotesCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "List, read and write notes",
	}
	cmd.AddCommand(
		newNotesListCmd(rt),
		newNotesShowCmd(rt),
		newNotesNewCmd(rt),
		newNotesEditCmd(rt),
		newNotesRemoveCmd(rt),
		newNotesShareCmd(rt),
	)
	return cmd
}

func newNotesListCmd(rt *runtime) *cobra.Command {
	var source, profile string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes from a feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var (
				notes []domain.Note
				err   error
			)
			switch {
			case profile != "":
				notes, err = rt.hooks.Notes.ByProfile(ctx, profile)
			case source == "mine":
				notes, err = rt.hooks.Notes.Mine(ctx)
			case source == "explore":
				notes, err = rt.hooks.Notes.Explore(ctx)
			case source == "shared":
				notes, err = rt.hooks.Notes.SharedWithMe(ctx)
			default:
				return fmt.Errorf("unknown source %q (want mine, explore or shared)", source)
			}
			if err != nil {
				return fmt.Errorf("listing notes: %w", err)
			}
			return rt.print(cmd.OutOrStdout(), notes, func(w io.Writer) {
				if len(notes) == 0 {
					fmt.Fprintln(w, "No notes.")
					return
				}
				for _, n := range notes {
					printNoteLine(w, n)
				}
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "mine", "Feed to list: mine, explore or shared")
	cmd.Flags().StringVar(&profile, "profile", "", "List the notes of this profile instead")
	return cmd
}

func printNoteLine(w io.Writer, n domain.Note) {
	fmt.Fprintf(w, "%s  %s  by %s  ♥ %d  comments %d  views %d\n",
		n.ID, n.Title, n.Author.DisplayName(), n.LikesCount, n.CommentsCount, n.ViewsCount)
}

// noteDetail is the structured form of `notes show`.
type noteDetail struct {
	Note     domain.Note      `json:"note" yaml:"note"`
	Comments []domain.Comment `json:"comments" yaml:"comments"`
}

func newNotesShowCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show <note-id>",
		Short: "Show a note with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, id := cmd.Context(), args[0]
			n, err := rt.hooks.Notes.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("reading note: %w", err)
			}
			comments, err := rt.hooks.Comments.List(ctx, id)
			if err != nil {
				return fmt.Errorf("reading comments: %w", err)
			}
			if st, err := rt.hooks.Views.Record(ctx, id).Wait(ctx); err == nil && st.ViewsCount > 0 {
				n.ViewsCount = st.ViewsCount
			} else if err != nil {
				rt.logger.Debug("view not recorded", "note_id", id, "error", err)
			}

			return rt.print(cmd.OutOrStdout(), noteDetail{Note: n, Comments: comments}, func(w io.Writer) {
				fmt.Fprintf(w, "%s\nby %s, %s\n\n%s\n\n", n.Title, n.Author.DisplayName(),
					n.CreatedAt.Format("Mon Jan 02 2006 15:04"), common.PlainText(n.Content))
				fmt.Fprintf(w, "♥ %d  comments %d  views %d\n", n.LikesCount, n.CommentsCount, n.ViewsCount)
				for _, c := range comments {
					fmt.Fprintf(w, "  %s  %s: %s\n", c.ID, c.Author.DisplayName(), common.PlainText(c.Content))
				}
			})
		},
	}
}

// noteText returns the title and body from flags, or from the editor when
// neither flag was given.
func noteText(ctx context.Context, rt *runtime, title, content, initial string) (string, string, error) {
	if title != "" || content != "" {
		return title, content, nil
	}
	text, err := rt.composer.Compose(ctx, initial)
	if errors.Is(err, editor.ErrUnchanged) {
		return "", "", errCancelled
	}
	if err != nil {
		return "", "", err
	}
	if strings.TrimSpace(text) == "" || text == initial {
		return "", "", errCancelled
	}
	t, c := editor.SplitNote(text)
	return t, c, nil
}

var errCancelled = errors.New("cancelled: nothing to save")

func newNotesNewCmd(rt *runtime) *cobra.Command {
	var title, content string
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Write a new note",
		Long:  "Write a new note. Without --title or --content the note is composed in $EDITOR; the first line becomes the title.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			t, c, err := noteText(ctx, rt, title, content, "")
			if err != nil {
				return err
			}
			n, err := rt.hooks.Notes.Create(ctx, domain.NoteInput{Title: t, Content: c}).Wait(ctx)
			if err != nil {
				return fmt.Errorf("creating note: %w", err)
			}
			return rt.print(cmd.OutOrStdout(), n, func(w io.Writer) {
				fmt.Fprintf(w, "Created note %s.\n", n.ID)
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Note title")
	cmd.Flags().StringVarP(&content, "content", "c", "", "Note body")
	return cmd
}

func newNotesEditCmd(rt *runtime) *cobra.Command {
	var title, content string
	cmd := &cobra.Command{
		Use:   "edit <note-id>",
		Short: "Edit one of your notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, id := cmd.Context(), args[0]
			var initial string
			if title == "" && content == "" {
				cur, err := rt.hooks.Notes.Get(ctx, id)
				if err != nil {
					return fmt.Errorf("reading note: %w", err)
				}
				initial = editor.JoinNote(cur.Title, cur.Content)
			}
			t, c, err := noteText(ctx, rt, title, content, initial)
			if err != nil {
				return err
			}
			n, err := rt.hooks.Notes.Update(ctx, id, domain.NoteInput{Title: t, Content: c}).Wait(ctx)
			if err != nil {
				return fmt.Errorf("updating note: %w", err)
			}
			return rt.print(cmd.OutOrStdout(), n, func(w io.Writer) {
				fmt.Fprintf(w, "Updated note %s.\n", n.ID)
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().StringVarP(&content, "content", "c", "", "New body")
	return cmd
}

func newNotesRemoveCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <note-id>",
		Aliases: []string{"delete"},
		Short:   "Delete one of your notes",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := rt.hooks.Notes.Delete(ctx, args[0]).Wait(ctx); err != nil {
				return fmt.Errorf("deleting note: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted note %s.\n", args[0])
			return nil
		},
	}
}

func newNotesShareCmd(rt *runtime) *cobra.Command {
	var (
		public bool
		with   []string
	)
	cmd := &cobra.Command{
		Use:   "share <note-id>",
		Short: "Set who can read a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in := domain.ShareInput{Public: public, ProfileIDs: with}
			n, err := rt.hooks.Notes.Share(ctx, args[0], in).Wait(ctx)
			if err != nil {
				return fmt.Errorf("sharing note: %w", err)
			}
			return rt.print(cmd.OutOrStdout(), n, func(w io.Writer) {
				audience := "private"
				switch {
				case n.Public:
					audience = "public"
				case len(n.SharedWith) > 0:
					audience = fmt.Sprintf("shared with %d", len(n.SharedWith))
				}
				fmt.Fprintf(w, "Note %s is now %s.\n", n.ID, audience)
			})
		},
	}
	cmd.Flags().BoolVar(&public, "public", false, "Make the note visible to everyone")
	cmd.Flags().StringSliceVar(&with, "with", nil, "Profile IDs to share with")
	return cmd
}

func newLikeCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "like <note-id>",
		Short: "Like a note, or unlike it if already liked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := rt.hooks.Likes.Toggle(ctx, args[0]).Wait(ctx)
			if err != nil {
				return fmt.Errorf("toggling like: %w", err)
			}
			return rt.print(cmd.OutOrStdout(), st, func(w io.Writer) {
				verb := "Unliked"
				if st.Liked {
					verb = "Liked"
				}
				fmt.Fprintf(w, "%s note %s (%d likes).\n", verb, args[0], st.LikesCount)
			})
		},
	}
}

func newCommentCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Read and write comments",
	}

	list := &cobra.Command{
		Use:   "list <note-id>",
		Short: "List the comments on a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comments, err := rt.hooks.Comments.List(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("listing comments: %w", err)
			}
			return rt.print(cmd.OutOrStdout(), comments, func(w io.Writer) {
				if len(comments) == 0 {
					fmt.Fprintln(w, "No comments.")
				}
				for _, c := range comments {
					fmt.Fprintf(w, "%s  %s: %s\n", c.ID, c.Author.DisplayName(), common.PlainText(c.Content))
				}
			})
		},
	}

	add := &cobra.Command{
		Use:   "add <note-id> <text...>",
		Short: "Comment on a note",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in := domain.CommentInput{Content: strings.Join(args[1:], " ")}
			c, err := rt.hooks.Comments.Add(ctx, args[0], in).Wait(ctx)
			if err != nil {
				return fmt.Errorf("adding comment: %w", err)
			}
			return rt.print(cmd.OutOrStdout(), c, func(w io.Writer) {
				fmt.Fprintf(w, "Added comment %s.\n", c.ID)
			})
		},
	}

	rm := &cobra.Command{
		Use:   "rm <note-id> <comment-id>",
		Short: "Delete one of your comments",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := rt.hooks.Comments.Delete(ctx, args[0], args[1]).Wait(ctx); err != nil {
				return fmt.Errorf("deleting comment: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted comment %s.\n", args[1])
			return nil
		},
	}

	cmd.AddCommand(list, add, rm)
	return cmd
}
