package service

import "github.com/petconnect/web-gateway/internal/core/domain"

// Outcome is what a route guard decides for one evaluation.
type Outcome string

const (
	OutcomeRender          Outcome = "render"
	OutcomeRedirectLogin   Outcome = "redirect_login"
	OutcomeRedirectLanding Outcome = "redirect_landing"
)

// GuardPolicy configures a protected subtree. An empty AllowedRoles admits any
// authenticated role.
type GuardPolicy struct {
	AllowedRoles []domain.UserType
	RequireAuth  bool
}

// DefaultGuardPolicy requires authentication and, when roles are given,
// membership in one of them.
func DefaultGuardPolicy(roles ...domain.UserType) GuardPolicy {
	return GuardPolicy{AllowedRoles: roles, RequireAuth: true}
}

// Allows reports whether role is admitted by the policy's role set.
func (p GuardPolicy) Allows(role domain.UserType) bool {
	if len(p.AllowedRoles) == 0 {
		return true
	}
	for _, r := range p.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Decision is the result of Evaluate. Location is empty for OutcomeRender.
type Decision struct {
	Outcome  Outcome
	Location string
}

// Evaluate applies the guard rules to a ready session state:
//   - auth required and not authenticated: go to login.
//   - authenticated with a known user whose role is not allowed: go to that
//     role's landing route.
//   - anything else renders, including the transient authenticated-without-user
//     state that follows InitializeAuth.
func Evaluate(st domain.SessionState, p GuardPolicy) Decision {
	if p.RequireAuth && !st.IsAuthenticated {
		return Decision{Outcome: OutcomeRedirectLogin, Location: domain.RouteLogin}
	}
	if st.IsAuthenticated && st.User != nil && !p.Allows(st.User.UserType) {
		return Decision{Outcome: OutcomeRedirectLanding, Location: domain.LandingRouteFor(st.User.UserType)}
	}
	return Decision{Outcome: OutcomeRender}
}
