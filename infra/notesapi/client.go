package notesapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/CrestNiraj12/terminalnotes/domain"
	"github.com/CrestNiraj12/terminalnotes/infra/auth"
)

// Client is a thin HTTP wrapper for the notes API.
// It handles base URL construction, bearer token injection, and a single
// refresh-and-replay when the access token is rejected.
type Client struct {
	baseURL       string
	tokenProvider auth.TokenProvider
	refresher     *auth.Refresher
	http          *http.Client
	logger        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRefresher enables the 401 refresh-and-replay protocol.
func WithRefresher(r *auth.Refresher) Option {
	return func(c *Client) { c.refresher = r }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a notes API client.
func NewClient(baseURL string, tp auth.TokenProvider, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		tokenProvider: tp,
		http:          &http.Client{Timeout: 30 * time.Second},
		logger:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs an authenticated GET request.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil, true)
}

// Post performs an authenticated POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, body, true)
}

// Patch performs an authenticated PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any) ([]byte, error) {
	return c.do(ctx, http.MethodPatch, path, body, true)
}

// Delete performs an authenticated DELETE request.
func (c *Client) Delete(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodDelete, path, nil, true)
}

// PostPublic performs an unauthenticated POST. A 401 is returned as-is and
// never triggers a refresh; used for the auth endpoints themselves.
func (c *Client) PostPublic(ctx context.Context, path string, body any) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, body, false)
}

func (c *Client) do(ctx context.Context, method, path string, body any, authed bool) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
	}

	token := ""
	if authed {
		// A missing token is sent as an anonymous request; the server's 401
		// then drives the refresh protocol to a session expiry.
		token, _ = c.tokenProvider.AccessToken()
	}

	status, data, err := c.send(ctx, method, path, payload, token)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized && authed && c.refresher != nil {
		c.logger.Debug("access token rejected", "method", method, "path", path)
		fresh, err := c.refresher.Refresh(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, err)
		}
		status, data, err = c.send(ctx, method, path, payload, fresh)
		if err != nil {
			return nil, err
		}
	}

	if status < 200 || status >= 300 {
		apiErr := &domain.APIError{Method: method, Path: path, Status: status, Message: errorMessage(data)}
		c.logger.Debug("api error", "method", method, "path", path, "status", status)
		return nil, apiErr
	}

	return data, nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "method", method, "path", path, "error", err)
		return 0, nil, fmt.Errorf("request to %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// errorMessage extracts {"error": "..."} bodies and falls back to raw text.
func errorMessage(data []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

func decode[T any](data []byte, what string) (T, error) {
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("parsing %s: %w", what, err)
	}
	return out, nil
}
