package domain

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
)

func TestAPIError_KindAndSentinels(t *testing.T) {
	tests := []struct {
		status int
		kind   ErrorKind
	}{
		{status: 401, kind: KindAuth},
		{status: 404, kind: KindValidation},
		{status: 422, kind: KindValidation},
		{status: 500, kind: KindServer},
		{status: 503, kind: KindServer},
	}
	for _, tc := range tests {
		err := fmt.Errorf("wrapped: %w", &APIError{Method: "GET", Path: "/notes", Status: tc.status})
		if got := KindOf(err); got != tc.kind {
			t.Fatalf("status %d: kind got %v want %v", tc.status, got, tc.kind)
		}
	}

	if !errors.Is(&APIError{Status: 401}, ErrUnauthorized) {
		t.Fatalf("401 must match ErrUnauthorized")
	}
	if !errors.Is(&APIError{Status: 404}, ErrNotFound) {
		t.Fatalf("404 must match ErrNotFound")
	}
	if errors.Is(&APIError{Status: 500}, ErrNotFound) {
		t.Fatalf("500 must not match ErrNotFound")
	}
}

func TestKindOf_NetworkAndContext(t *testing.T) {
	netErr := &url.Error{Op: "Get", URL: "https://api.example/notes", Err: errors.New("connection refused")}
	if got := KindOf(fmt.Errorf("request: %w", netErr)); got != KindNetwork {
		t.Fatalf("expected network kind, got %v", got)
	}
	if got := KindOf(context.Canceled); got != KindUnknown {
		t.Fatalf("cancellation must not classify as a failure kind, got %v", got)
	}
	if got := KindOf(ErrSessionExpired); got != KindAuth {
		t.Fatalf("expected auth kind for expired session, got %v", got)
	}
	if got := KindOf(nil); got != KindUnknown {
		t.Fatalf("nil error should be unknown, got %v", got)
	}
}

func TestAPIError_MessageFallsBackToStatusText(t *testing.T) {
	err := &APIError{Method: "DELETE", Path: "/notes/1", Status: 500}
	if got := err.Error(); got != "API DELETE /notes/1 returned 500: Internal Server Error" {
		t.Fatalf("unexpected message: %q", got)
	}
}
