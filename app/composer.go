package app

import "context"

// Composer collects note text outside the TUI, typically in $EDITOR.
// Compose returns the edited text; callers split it into title and body.
type Composer interface {
	Compose(ctx context.Context, initial string) (string, error)
}
