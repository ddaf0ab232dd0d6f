package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/petconnect/web-gateway/internal/core/domain"
	"github.com/petconnect/web-gateway/internal/infrastructure/session"
)

// SessionKey is the echo context key holding the request's *session.Session.
const SessionKey = "session"

// SessionOpener resolves a browser session id to its live session.
type SessionOpener interface {
	Open(ctx context.Context, id string) (*session.Session, error)
}

// CookieOptions describes the session cookie.
type CookieOptions struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// Session identifies the browser by its session cookie, issuing a new id when
// the cookie is missing or malformed, and injects the session into context.
func Session(opener SessionOpener, opts CookieOptions) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := ""
			if ck, err := c.Cookie(opts.Name); err == nil {
				if _, perr := uuid.Parse(ck.Value); perr == nil {
					id = ck.Value
				}
			}
			if id == "" {
				id = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     opts.Name,
					Value:    id,
					Path:     "/",
					MaxAge:   int(opts.MaxAge.Seconds()),
					HttpOnly: true,
					Secure:   opts.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			sess, err := opener.Open(c.Request().Context(), id)
			if err != nil {
				return fmt.Errorf("%w: %v", domain.ErrNoSession, err)
			}

			c.Set(SessionKey, sess)
			return next(c)
		}
	}
}
