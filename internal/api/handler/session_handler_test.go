package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/petconnect/web-gateway/internal/core/domain"
)

func TestSessionHandler_GetAnonymous(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/session", "", newTestSession(t, &stubAuthGateway{}, nil))

	if err := NewSessionHandler().Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.IsAuthenticated || resp.User != nil || resp.Landing != "" {
		t.Fatalf("unexpected anonymous session: %+v", resp)
	}
}

func TestSessionHandler_PatchUser(t *testing.T) {
	sess := newTestSession(t, loggedInGateway(authResult(domain.UserTypeMerchant)), nil)
	if err := sess.Store.Login(context.Background(), domain.Credentials{}); err != nil {
		t.Fatalf("login: %v", err)
	}

	c, rec := newContext(http.MethodPatch, "/session/user", `{"fullName":"Loja do Zé"}`, sess)
	if err := NewSessionHandler().PatchUser(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.User == nil || resp.User.FullName != "Loja do Zé" || resp.User.Username != "ana" {
		t.Fatalf("patch not merged: %+v", resp.User)
	}
	if resp.Landing != "/lojista/dashboard" {
		t.Fatalf("unexpected landing %q", resp.Landing)
	}
}

func TestSessionHandler_PatchUserAnonymous(t *testing.T) {
	c, _ := newContext(http.MethodPatch, "/session/user", `{"fullName":"x"}`, newTestSession(t, &stubAuthGateway{}, nil))
	if code := httpCode(t, NewSessionHandler().PatchUser(c)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestPageHandler_LoginView(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/login", "", newTestSession(t, &stubAuthGateway{}, nil))
	if err := NewPageHandler().Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Body.String() != "{\"view\":\"login\",\"authenticated\":false}\n" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}
