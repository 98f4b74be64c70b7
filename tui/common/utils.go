package common

import (
	"errors"
	"html"
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/CrestNiraj12/terminalnotes/domain"
)

var (
	htmlTagRe   = regexp.MustCompile(`<[^>]*>`)
	lineBreakRe = regexp.MustCompile(`(?i)</p>|</li>|</h[1-6]>|<br\s*/?>`)
	blankRunRe  = regexp.MustCompile(`\n{3,}`)
)

// PlainText renders serialized note markup as terminal text.
func PlainText(markup string) string {
	// Paragraph ends and breaks become newlines
	s := lineBreakRe.ReplaceAllString(markup, "\n")
	s = htmlTagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	// Terminal escapes in user content would repaint the screen
	s = ansi.Strip(s)
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Truncate cuts s to width display cells, adding an ellipsis when cut.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "…")
}

// Preview returns the first line of a note body cut to width.
func Preview(markup string, width int) string {
	text := PlainText(markup)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return Truncate(text, width)
}

// DescribeError turns a failed request into a status line.
func DescribeError(action string, err error) string {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		return action + ": " + vErr.Error()
	case errors.Is(err, domain.ErrNotOwner):
		return action + ": that note belongs to someone else"
	case errors.Is(err, domain.ErrSessionExpired), errors.Is(err, domain.ErrUnauthorized):
		return "Session expired. Log in again."
	case errors.Is(err, domain.ErrNotFound):
		return action + " failed: no longer exists"
	}
	switch domain.KindOf(err) {
	case domain.KindNetwork:
		return action + " failed: offline, changes were undone"
	case domain.KindServer:
		return action + " failed: server error, changes were undone"
	}
	return action + " failed: " + err.Error()
}
