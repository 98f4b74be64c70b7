package editor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrUnchanged is returned by Compose when the user saved nothing new.
var ErrUnchanged = errors.New("editor closed without changes")

// EnvEditor prepares an external editor command using $EDITOR (fallback: "vi").
// The TUI runs the returned *exec.Cmd through tea.Exec so Bubble Tea
// suspends raw terminal mode; CLI commands use Compose.
type EnvEditor struct {
	stdin  *os.File
	stdout *os.File
	stderr *os.File
}

// NewEnvEditor creates an EnvEditor attached to the process terminal.
func NewEnvEditor() *EnvEditor {
	return &EnvEditor{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
}

const instructionComment = `<!--
TerminalNotes: write your note below.

- The first line is the title, the rest is the content (HTML markup is kept).
- SAVE and EXIT to save the note (e.g., :wq in vi).
- Emptying the file or making NO CHANGES will cancel.
-->

`

// Cmd prepares an *exec.Cmd for the editor and a temp file path.
// It writes the provided content (and an instruction comment) to the temp file.
func (e *EnvEditor) Cmd(content string) (*exec.Cmd, string, error) {
	return e.cmd(context.Background(), content)
}

func (e *EnvEditor) cmd(ctx context.Context, content string) (*exec.Cmd, string, error) {
	editorCmd := os.Getenv("EDITOR")
	if editorCmd == "" {
		editorCmd = "vi"
	}
	fields := strings.Fields(editorCmd)

	tmpFile, err := os.CreateTemp("", "terminalnotes-*.md")
	if err != nil {
		return nil, "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer tmpFile.Close()

	if _, err := tmpFile.WriteString(instructionComment + content); err != nil {
		os.Remove(tmpPath)
		return nil, "", fmt.Errorf("writing to temp file: %w", err)
	}

	args := append(fields[1:], tmpPath)
	return exec.CommandContext(ctx, fields[0], args...), tmpPath, nil
}

// ReadContent reads the temp file, trims whitespace, and removes the file.
// It strips the instruction comment before returning.
func (e *EnvEditor) ReadContent(path string) (string, error) {
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading temp file: %w", err)
	}

	content := string(data)
	if idx := strings.Index(content, "-->"); idx != -1 {
		content = content[idx+3:]
	}
	return strings.TrimSpace(content), nil
}

// Compose runs the editor in the foreground and returns what the user saved.
// It returns ErrUnchanged when the result is empty or equals initial.
func (e *EnvEditor) Compose(ctx context.Context, initial string) (string, error) {
	cmd, path, err := e.cmd(ctx, initial)
	if err != nil {
		return "", err
	}
	cmd.Stdin, cmd.Stdout, cmd.Stderr = e.stdin, e.stdout, e.stderr
	if err := cmd.Run(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("running editor: %w", err)
	}
	out, err := e.ReadContent(path)
	if err != nil {
		return "", err
	}
	if out == "" || out == strings.TrimSpace(initial) {
		return "", ErrUnchanged
	}
	return out, nil
}

// SplitNote turns editor text into a title (first line) and content.
func SplitNote(text string) (title, content string) {
	title, content, _ = strings.Cut(strings.TrimSpace(text), "\n")
	return strings.TrimSpace(title), strings.TrimSpace(content)
}

// JoinNote is the inverse of SplitNote.
func JoinNote(title, content string) string {
	if content == "" {
		return title
	}
	return title + "\n\n" + content
}
