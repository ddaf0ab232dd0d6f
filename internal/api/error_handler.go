package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/petconnect/web-gateway/internal/core/domain"
	"github.com/petconnect/web-gateway/internal/infrastructure/apiclient"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain errors and backend errors to HTTP status codes.
//   - Sends page requests that end in 401 to the login view.
//   - Logs unexpected errors without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if code == http.StatusUnauthorized && isPageRequest(c) {
			_ = c.Redirect(http.StatusFound, domain.RouteLogin)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

// isPageRequest reports whether the request is a navigation to a view. Public
// views and the JSON endpoints under /auth and /session keep their 401.
func isPageRequest(c echo.Context) bool {
	if c.Request().Method != http.MethodGet {
		return false
	}
	p := c.Request().URL.Path
	if domain.IsPublicRoute(p) {
		return false
	}
	for _, prefix := range []string{"/auth/", "/session", "/health", "/metrics", "/swagger/"} {
		if strings.HasPrefix(p, prefix) {
			return false
		}
	}
	return true
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// The backend already chose a status and a message for the user.
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status >= http.StatusInternalServerError {
			log.Warn().Err(err).Str("path", c.Path()).Msg("backend request failed")
			return http.StatusBadGateway, apiErr.Message
		}
		return apiErr.Status, apiErr.Message
	}

	switch {
	case errors.Is(err, domain.ErrNoRefreshToken), errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "session expired"
	case errors.Is(err, domain.ErrIncompleteResponse):
		return http.StatusBadGateway, "incomplete response from authentication service"
	case errors.Is(err, domain.ErrUnknownUserType):
		return http.StatusUnprocessableEntity, err.Error()
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
