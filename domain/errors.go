package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized indicates missing or invalid credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSessionExpired indicates the refresh token was rejected or missing.
	// Stored credentials have been cleared and the user must log in again.
	ErrSessionExpired = errors.New("session expired")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotOwner indicates a mutation on a note owned by another profile.
	ErrNotOwner = errors.New("note belongs to another profile")

	// ErrEmptyNote indicates the user submitted a note without a title.
	ErrEmptyNote = errors.New("note title cannot be empty")

	// ErrEmptyComment indicates the user submitted an empty comment.
	ErrEmptyComment = errors.New("comment cannot be empty")
)

// ErrorKind classifies a failure for presentation.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNetwork
	KindAuth
	KindValidation
	KindServer
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// APIError is a non-2xx response from the notes API.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("API %s %s returned %d: %s", e.Method, e.Path, e.Status, msg)
}

// Is lets errors.Is match the sentinel for well-known statuses.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// Kind maps the status code onto the error taxonomy.
func (e *APIError) Kind() ErrorKind {
	switch {
	case e.Status == http.StatusUnauthorized:
		return KindAuth
	case e.Status >= 500:
		return KindServer
	case e.Status >= 400:
		return KindValidation
	default:
		return KindUnknown
	}
}

// ValidationError lists the fields of a form that failed local validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, name := range sortedKeys(e.Fields) {
		parts = append(parts, name+" "+e.Fields[name])
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

// KindOf classifies err. Context cancellation is reported as KindUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindUnknown
	}
	if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrUnauthorized) {
		return KindAuth
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind()
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return KindValidation
	}
	if errors.Is(err, ErrEmptyNote) || errors.Is(err, ErrEmptyComment) || errors.Is(err, ErrNotOwner) {
		return KindValidation
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	return KindUnknown
}
