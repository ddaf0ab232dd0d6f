package ports

import (
	"context"

	"github.com/petconnect/web-gateway/internal/core/domain"
)

// AuthGateway is the remote authentication API the session store talks to.
type AuthGateway interface {
	Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error)
	Register(ctx context.Context, reg domain.Registration) (*domain.AuthResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*domain.AuthResult, error)
	SecurityQuestion(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, email, securityAnswer, newPassword string) (string, error)
}
