package service

import (
	"context"
	"testing"

	"github.com/petconnect/web-gateway/internal/core/domain"
)

func authenticatedAs(role domain.UserType) domain.SessionState {
	return domain.SessionState{
		User:            &domain.User{ID: "1", UserType: role},
		AccessToken:     "A",
		RefreshToken:    "R",
		IsAuthenticated: true,
	}
}

func TestEvaluate_RoleExcludedRedirectsToOwnLanding(t *testing.T) {
	want := map[domain.UserType]string{
		domain.UserTypeAdmin:        "/admin/dashboard",
		domain.UserTypeVeterinarian: "/veterinario/dashboard",
		domain.UserTypeMerchant:     "/lojista/dashboard",
		domain.UserTypeTutor:        "/tutor/dashboard",
	}

	for role, landing := range want {
		// Allow every role except the session's own.
		var allowed []domain.UserType
		for _, r := range domain.UserTypes {
			if r != role {
				allowed = append(allowed, r)
			}
		}

		d := Evaluate(authenticatedAs(role), DefaultGuardPolicy(allowed...))
		if d.Outcome != OutcomeRedirectLanding {
			t.Fatalf("%s: expected landing redirect, got %s", role, d.Outcome)
		}
		if d.Location != landing {
			t.Fatalf("%s: expected %s, got %s", role, landing, d.Location)
		}
		if d.Location == domain.RouteLogin {
			t.Fatalf("%s: authenticated user redirected to login", role)
		}
	}
}

func TestEvaluate_UnauthenticatedRedirectsToLogin(t *testing.T) {
	policies := []GuardPolicy{
		DefaultGuardPolicy(),
		DefaultGuardPolicy(domain.UserTypeAdmin),
		DefaultGuardPolicy(domain.UserTypes...),
	}
	for _, p := range policies {
		d := Evaluate(domain.SessionState{}, p)
		if d.Outcome != OutcomeRedirectLogin || d.Location != "/login" {
			t.Fatalf("policy %+v: expected login redirect, got %+v", p, d)
		}
	}
}

func TestEvaluate_AuthNotRequired(t *testing.T) {
	d := Evaluate(domain.SessionState{}, GuardPolicy{RequireAuth: false})
	if d.Outcome != OutcomeRender {
		t.Fatalf("expected render, got %+v", d)
	}
}

func TestEvaluate_AnyRoleWhenSetEmpty(t *testing.T) {
	for _, role := range domain.UserTypes {
		if d := Evaluate(authenticatedAs(role), DefaultGuardPolicy()); d.Outcome != OutcomeRender {
			t.Fatalf("%s: expected render, got %+v", role, d)
		}
	}
}

func TestEvaluate_TransientStateWithoutUserRenders(t *testing.T) {
	st := domain.SessionState{AccessToken: "A", RefreshToken: "R", IsAuthenticated: true}
	if d := Evaluate(st, DefaultGuardPolicy(domain.UserTypeAdmin)); d.Outcome != OutcomeRender {
		t.Fatalf("expected render while user is still loading, got %+v", d)
	}
}

func TestEvaluate_LoginThenGuardScenario(t *testing.T) {
	s := newTestStore(acceptingGateway(), newStubStorage())
	if err := s.Login(context.Background(), domain.Credentials{Email: "admin@test.com", Password: "123456"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	st := s.State()
	if !st.IsAuthenticated || st.User.UserType != domain.UserTypeAdmin {
		t.Fatalf("unexpected state: %+v", st)
	}
	if d := Evaluate(st, DefaultGuardPolicy(domain.UserTypeAdmin)); d.Outcome != OutcomeRender {
		t.Fatalf("admin guard should render, got %+v", d)
	}
	d := Evaluate(st, DefaultGuardPolicy(domain.UserTypeTutor))
	if d.Outcome != OutcomeRedirectLanding || d.Location != domain.RouteAdminLanding {
		t.Fatalf("tutor guard should send the admin to their own landing, got %+v", d)
	}
}
