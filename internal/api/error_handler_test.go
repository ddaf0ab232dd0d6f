package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/petconnect/web-gateway/internal/core/domain"
	"github.com/petconnect/web-gateway/internal/infrastructure/apiclient"
)

func handle(t *testing.T, method, path string, err error) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(method, path, nil), rec)
	NewHTTPErrorHandler(zerolog.Nop())(err, c)
	return rec
}

func TestErrorHandler_BackendErrorKeepsStatusAndMessage(t *testing.T) {
	rec := handle(t, http.MethodPost, "/auth/register", &apiclient.APIError{Status: http.StatusConflict, Message: "Email já cadastrado"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if rec.Body.String() != "{\"error\":\"Email já cadastrado\"}\n" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestErrorHandler_BackendFailureIsBadGateway(t *testing.T) {
	rec := handle(t, http.MethodGet, "/auth/forgot-password/x", &apiclient.APIError{Status: http.StatusInternalServerError, Message: "dial tcp: refused"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestErrorHandler_UnauthorizedPageRedirectsToLogin(t *testing.T) {
	rec := handle(t, http.MethodGet, "/admin/dashboard", &apiclient.APIError{Status: http.StatusUnauthorized, Message: "Token expirado"})
	if rec.Code != http.StatusFound || rec.Header().Get(echo.HeaderLocation) != "/login" {
		t.Fatalf("expected redirect to /login, got %d %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}
}

func TestErrorHandler_UnauthorizedOnPublicViewDoesNotLoop(t *testing.T) {
	rec := handle(t, http.MethodGet, "/login", echo.NewHTTPError(http.StatusUnauthorized, "x"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestErrorHandler_UnauthorizedOnJSONEndpoint(t *testing.T) {
	rec := handle(t, http.MethodPost, "/auth/refresh", fmt.Errorf("refresh: %w", domain.ErrNoRefreshToken))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestErrorHandler_UnexpectedError(t *testing.T) {
	rec := handle(t, http.MethodGet, "/session", errors.New("boom"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if rec.Body.String() != "{\"error\":\"internal server error\"}\n" {
		t.Fatalf("details leaked: %q", rec.Body.String())
	}
}
