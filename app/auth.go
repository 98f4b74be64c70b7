package app

import (
	"context"

	"github.com/CrestNiraj12/terminalnotes/domain"
)

// AuthService exchanges credentials for tokens. Its calls never trigger a
// token refresh themselves.
type AuthService interface {
	Login(ctx context.Context, creds domain.Credentials) (domain.Tokens, error)
	Register(ctx context.Context, reg domain.Registration) (domain.Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (domain.Tokens, error)
}
