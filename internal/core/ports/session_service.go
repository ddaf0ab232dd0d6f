package ports

import (
	"context"
	"time"

	"github.com/petconnect/web-gateway/internal/core/domain"
)

// SessionService is the contract views consume from the session store.
type SessionService interface {
	Hydrate(ctx context.Context) error
	InitializeAuth(ctx context.Context) error
	Login(ctx context.Context, creds domain.Credentials) error
	Register(ctx context.Context, reg domain.Registration) error
	Logout(ctx context.Context)
	RefreshAuthToken(ctx context.Context) error
	UpdateUser(ctx context.Context, patch domain.UserPatch)
	State() domain.SessionState
	AccessTokenExpired(now time.Time) bool
}
