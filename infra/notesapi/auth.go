package notesapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/CrestNiraj12/terminalnotes/domain"
)

// authService implements app.AuthService using the notes API.
type authService struct {
	client *Client
}

// NewAuthService creates an AuthService backed by the notes API.
func NewAuthService(client *Client) *authService {
	return &authService{client: client}
}

func (s *authService) Login(ctx context.Context, creds domain.Credentials) (domain.Tokens, error) {
	data, err := s.client.PostPublic(ctx, "/auth/login", creds)
	if err != nil {
		return domain.Tokens{}, fmt.Errorf("logging in: %w", err)
	}
	return parseTokens(data)
}

func (s *authService) Register(ctx context.Context, reg domain.Registration) (domain.Tokens, error) {
	data, err := s.client.PostPublic(ctx, "/auth/register", reg)
	if err != nil {
		return domain.Tokens{}, fmt.Errorf("registering: %w", err)
	}
	return parseTokens(data)
}

// Refresh matches auth.RefreshFunc.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (domain.Tokens, error) {
	body := map[string]string{"refresh_token": refreshToken}
	data, err := s.client.PostPublic(ctx, "/auth/refresh", body)
	if err != nil {
		return domain.Tokens{}, fmt.Errorf("refreshing token: %w", err)
	}
	return parseTokens(data)
}

func parseTokens(data []byte) (domain.Tokens, error) {
	t, err := decode[domain.Tokens](data, "token response")
	if err != nil {
		return domain.Tokens{}, err
	}
	if t.Access == "" {
		return domain.Tokens{}, errors.New("token response missing access token")
	}
	return t, nil
}
