package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/petconnect/web-gateway/internal/core/domain"
)

type stubDashboards struct {
	adminFn func(ctx context.Context) (json.RawMessage, error)
	vetFn   func(ctx context.Context, id string) (json.RawMessage, error)
	shopFn  func(ctx context.Context, id string) (json.RawMessage, error)
	tutorFn func(ctx context.Context, page, size int) (json.RawMessage, error)
}

func (s *stubDashboards) AdminDashboard(ctx context.Context) (json.RawMessage, error) {
	return s.adminFn(ctx)
}

func (s *stubDashboards) VeterinarianDashboard(ctx context.Context, id string) (json.RawMessage, error) {
	return s.vetFn(ctx, id)
}

func (s *stubDashboards) MerchantDashboard(ctx context.Context, id string) (json.RawMessage, error) {
	return s.shopFn(ctx, id)
}

func (s *stubDashboards) TutorDashboard(ctx context.Context, page, size int) (json.RawMessage, error) {
	return s.tutorFn(ctx, page, size)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("test"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func loggedInGateway(res *domain.AuthResult) *stubAuthGateway {
	return &stubAuthGateway{
		loginFn: func(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error) {
			return res, nil
		},
	}
}

func TestDashboardHandler_Veterinarian_UsesUserID(t *testing.T) {
	gw := loggedInGateway(authResult(domain.UserTypeVeterinarian))
	dash := &stubDashboards{
		vetFn: func(ctx context.Context, id string) (json.RawMessage, error) {
			if id != "u-1" {
				t.Fatalf("expected u-1, got %s", id)
			}
			return json.RawMessage(`{"consultas":4}`), nil
		},
	}
	sess := newTestSession(t, gw, dash)
	if err := sess.Store.Login(context.Background(), domain.Credentials{}); err != nil {
		t.Fatalf("login: %v", err)
	}

	c, rec := newContext(http.MethodGet, "/veterinario/dashboard", "", sess)
	if err := NewDashboardHandler(zerolog.Nop()).Veterinarian(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"dashboard":{"consultas":4}`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestDashboardHandler_RefreshesExpiredToken(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	res := authResult(domain.UserTypeAdmin)
	res.AccessToken = signedToken(t, now.Add(-time.Minute))
	gw := loggedInGateway(res)

	refreshed := 0
	gw.refreshFn = func(ctx context.Context, token string) (*domain.AuthResult, error) {
		refreshed++
		next := authResult(domain.UserTypeAdmin)
		next.AccessToken = signedToken(t, now.Add(time.Hour))
		return next, nil
	}
	dash := &stubDashboards{
		adminFn: func(ctx context.Context) (json.RawMessage, error) {
			return json.RawMessage(`{}`), nil
		},
	}
	sess := newTestSession(t, gw, dash)
	if err := sess.Store.Login(context.Background(), domain.Credentials{}); err != nil {
		t.Fatalf("login: %v", err)
	}

	h := NewDashboardHandler(zerolog.Nop())
	h.now = func() time.Time { return now }

	c, _ := newContext(http.MethodGet, "/admin/dashboard", "", sess)
	if err := h.Admin(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if refreshed != 1 {
		t.Fatalf("expected one refresh, got %d", refreshed)
	}
}

func TestDashboardHandler_FailedRefreshIsUnauthorized(t *testing.T) {
	gw := &stubAuthGateway{}
	dash := &stubDashboards{
		adminFn: func(ctx context.Context) (json.RawMessage, error) {
			t.Fatalf("dashboard must not be fetched")
			return nil, nil
		},
	}
	// No user loaded and no refresh token to load one with.
	sess := newTestSession(t, gw, dash)

	c, _ := newContext(http.MethodGet, "/admin/dashboard", "", sess)
	if code := httpCode(t, NewDashboardHandler(zerolog.Nop()).Admin(c)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestDashboardHandler_TutorPagination(t *testing.T) {
	gw := loggedInGateway(authResult(domain.UserTypeTutor))
	var gotPage, gotSize int
	dash := &stubDashboards{
		tutorFn: func(ctx context.Context, page, size int) (json.RawMessage, error) {
			gotPage, gotSize = page, size
			return json.RawMessage(`[]`), nil
		},
	}
	sess := newTestSession(t, gw, dash)
	if err := sess.Store.Login(context.Background(), domain.Credentials{}); err != nil {
		t.Fatalf("login: %v", err)
	}

	c, _ := newContext(http.MethodGet, "/tutor/dashboard?page=2&size=500", "", sess)
	if err := NewDashboardHandler(zerolog.Nop()).Tutor(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if gotPage != 2 || gotSize != maxPageSize {
		t.Fatalf("expected page 2 size %d, got %d %d", maxPageSize, gotPage, gotSize)
	}
}
