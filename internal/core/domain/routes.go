package domain

import "strings"

const (
	RouteHome           = "/"
	RouteLogin          = "/login"
	RouteRegister       = "/register"
	RouteForgotPassword = "/forgot-password"

	RouteAdminLanding        = "/admin/dashboard"
	RouteVeterinarianLanding = "/veterinario/dashboard"
	RouteMerchantLanding     = "/lojista/dashboard"
	RouteTutorLanding        = "/tutor/dashboard"
)

// LandingRouteFor maps a role to its own dashboard. Unknown roles land on the
// tutor dashboard. Both the login flow and the route guard use this mapping.
func LandingRouteFor(t UserType) string {
	switch t {
	case UserTypeAdmin:
		return RouteAdminLanding
	case UserTypeVeterinarian:
		return RouteVeterinarianLanding
	case UserTypeMerchant:
		return RouteMerchantLanding
	default:
		return RouteTutorLanding
	}
}

var publicRoutes = []string{RouteLogin, RouteRegister, RouteForgotPassword}

// IsPublicRoute reports whether path is reachable without a session.
func IsPublicRoute(path string) bool {
	if path == RouteHome {
		return true
	}
	for _, r := range publicRoutes {
		if path == r || strings.HasPrefix(path, r+"/") {
			return true
		}
	}
	return false
}
