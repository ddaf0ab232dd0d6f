package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/petconnect/web-gateway/internal/core/domain"
	"github.com/petconnect/web-gateway/internal/infrastructure/session"
)

// ctxSession returns the browser session injected by the Session middleware.
// Its absence means the route was mounted without that middleware.
func ctxSession(c echo.Context) (*session.Session, error) {
	sess, ok := c.Get("session").(*session.Session)
	if !ok || sess == nil {
		return nil, domain.ErrNoSession
	}
	return sess, nil
}
