package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/petconnect/web-gateway/internal/api/metrics"
	"github.com/petconnect/web-gateway/internal/core/domain"
	"github.com/petconnect/web-gateway/internal/core/service"
	"github.com/petconnect/web-gateway/internal/infrastructure/session"
)

// Guard protects a route subtree with policy. It waits for the session to
// finish InitializeAuth before deciding, so a stored session is never
// mistaken for a logged-out one. When the request ends before that, the
// request is sent to login instead of rendering.
func Guard(policy service.GuardPolicy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, ok := c.Get(SessionKey).(*session.Session)
			if !ok || sess == nil {
				return domain.ErrNoSession
			}

			ctx := c.Request().Context()
			if err := sess.Store.InitializeAuth(ctx); err != nil {
				if ctx.Err() == nil {
					return err
				}
				metrics.GuardDecisionsTotal.WithLabelValues(string(service.OutcomeRedirectLogin)).Inc()
				return c.Redirect(http.StatusFound, domain.RouteLogin)
			}

			d := service.Evaluate(sess.Store.State(), policy)
			metrics.GuardDecisionsTotal.WithLabelValues(string(d.Outcome)).Inc()
			if d.Outcome != service.OutcomeRender {
				return c.Redirect(http.StatusFound, d.Location)
			}
			return next(c)
		}
	}
}
