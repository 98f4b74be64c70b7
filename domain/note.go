package domain

import (
	"strings"
	"time"
)

// AppTitle is the display name of the application.
const AppTitle = "TerminalNotes"

// TempIDPrefix marks identities assigned locally before the server confirms.
const TempIDPrefix = "local-"

// Note is a rich-text note authored by a profile.
type Note struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Content    string         `json:"content"` // Serialized markup
	ProfileID  string         `json:"profile_id"`
	Author     ProfileSummary `json:"author"`
	Public     bool           `json:"public"`
	SharedWith []string       `json:"shared_with,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`

	ViewsCount    int  `json:"views_count"`
	LikesCount    int  `json:"likes_count"`
	CommentsCount int  `json:"comments_count"`
	Liked         bool `json:"liked"` // Relative to the authenticated profile
}

// IsTemp reports whether the note has not been confirmed by the server yet.
func (n Note) IsTemp() bool {
	return strings.HasPrefix(n.ID, TempIDPrefix)
}

// OwnedBy reports whether profileID authored the note.
func (n Note) OwnedBy(profileID string) bool {
	return profileID != "" && n.ProfileID == profileID
}

// Comment is an append-only remark on a note.
type Comment struct {
	ID        string         `json:"id"`
	NoteID    string         `json:"note_id"`
	ProfileID string         `json:"profile_id"`
	Author    ProfileSummary `json:"author"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
}

// IsTemp reports whether the comment has not been confirmed by the server yet.
func (c Comment) IsTemp() bool {
	return strings.HasPrefix(c.ID, TempIDPrefix)
}

// Like records that a profile liked a note. At most one per pair.
type Like struct {
	ProfileID string         `json:"profile_id"`
	NoteID    string         `json:"note_id"`
	Author    ProfileSummary `json:"author"`
	CreatedAt time.Time      `json:"created_at"`
}

// LikeState is the server's answer to a like toggle.
type LikeState struct {
	NoteID     string `json:"note_id"`
	Liked      bool   `json:"liked"`
	LikesCount int    `json:"likes_count"`
}

// ViewState is the server's answer to a recorded view.
type ViewState struct {
	NoteID     string `json:"note_id"`
	ViewsCount int    `json:"views_count"`
}

// ClampCount keeps aggregate counts from going negative.
func ClampCount(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
