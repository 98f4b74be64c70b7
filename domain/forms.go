package domain

import (
	"errors"
	"maps"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NoteInput is the editable part of a note.
type NoteInput struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"max=200000"`
}

// CommentInput is the body of a new comment.
type CommentInput struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// ProfileInput carries profile edits. Empty fields are left unchanged.
type ProfileInput struct {
	Name      string `json:"name,omitempty" validate:"omitempty,max=80"`
	Username  string `json:"username,omitempty" validate:"omitempty,min=3,max=30,alphanum"`
	AvatarURL string `json:"avatar_url,omitempty" validate:"omitempty,url"`
	Bio       string `json:"bio,omitempty" validate:"omitempty,max=500"`
}

// ShareInput selects who can read a note.
type ShareInput struct {
	ProfileIDs []string `json:"profile_ids" validate:"dive,required"`
	Public     bool     `json:"public"`
}

// Credentials log an existing user in.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// Registration creates a user account and its profile.
type Registration struct {
	Credentials
	Name     string `json:"name" validate:"required,max=80"`
	Username string `json:"username" validate:"required,min=3,max=30,alphanum"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalize trims surrounding whitespace the way the editor leaves it.
func (in NoteInput) Normalize() NoteInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	return in
}

// Validate checks a form before it is dispatched to the API.
func Validate(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[strings.ToLower(fe.Field())] = describeTag(fe)
	}
	return out
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "is too long"
	case "min":
		return "is too short"
	case "email":
		return "must be an email address"
	case "url":
		return "must be a URL"
	case "alphanum":
		return "must be letters and digits"
	default:
		return "is invalid"
	}
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
