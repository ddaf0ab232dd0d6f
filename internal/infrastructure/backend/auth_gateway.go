// Package backend adapts the Pet Connect REST API to the core ports.
package backend

import (
	"context"
	"net/url"

	"github.com/petconnect/web-gateway/internal/core/domain"
	"github.com/petconnect/web-gateway/internal/core/ports"
	"github.com/petconnect/web-gateway/internal/infrastructure/apiclient"
)

const (
	pathLogin          = "/api/auth/login"
	pathRegister       = "/api/auth/register"
	pathRefreshToken   = "/api/auth/refresh-token"
	pathForgotPassword = "/api/auth/forgot-password"
	pathResetPassword  = "/api/auth/reset-password"
)

// AuthGateway implements ports.AuthGateway over the /api/auth endpoints.
type AuthGateway struct {
	client *apiclient.Client
}

var _ ports.AuthGateway = (*AuthGateway)(nil)

// NewAuthGateway returns a gateway that sends its requests through client.
func NewAuthGateway(client *apiclient.Client) *AuthGateway {
	return &AuthGateway{client: client}
}

func (g *AuthGateway) Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error) {
	return apiclient.Post[*domain.AuthResult](ctx, g.client, pathLogin, creds, nil)
}

func (g *AuthGateway) Register(ctx context.Context, reg domain.Registration) (*domain.AuthResult, error) {
	return apiclient.Post[*domain.AuthResult](ctx, g.client, pathRegister, reg, nil)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (g *AuthGateway) RefreshToken(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	return apiclient.Post[*domain.AuthResult](ctx, g.client, pathRefreshToken, refreshRequest{RefreshToken: refreshToken}, nil)
}

// SecurityQuestion returns the first security question registered for email.
func (g *AuthGateway) SecurityQuestion(ctx context.Context, email string) (string, error) {
	return apiclient.Get[string](ctx, g.client, pathForgotPassword+"/"+url.PathEscape(email), nil)
}

// ResetPassword sends its arguments as query parameters, which is what the
// backend expects for this endpoint.
func (g *AuthGateway) ResetPassword(ctx context.Context, email, securityAnswer, newPassword string) (string, error) {
	q := url.Values{}
	q.Set("email", email)
	q.Set("securityAnswer", securityAnswer)
	q.Set("newPassword", newPassword)
	return apiclient.Post[string](ctx, g.client, pathResetPassword, nil, q)
}
