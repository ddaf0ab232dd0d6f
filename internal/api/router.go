package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/petconnect/web-gateway/docs"
	"github.com/petconnect/web-gateway/internal/api/handler"
	"github.com/petconnect/web-gateway/internal/api/middleware"
	"github.com/petconnect/web-gateway/internal/core/domain"
	"github.com/petconnect/web-gateway/internal/core/ports"
	"github.com/petconnect/web-gateway/internal/core/service"
)

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	Sessions middleware.SessionOpener
	Storage  ports.StorageBackend
	Cookie   middleware.CookieOptions
	Log      zerolog.Logger

	// Registerer and Gatherer default to the global Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	if deps.Registerer == nil {
		deps.Registerer = prometheus.DefaultRegisterer
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "petconnect_http",
		Registerer: deps.Registerer,
	}))
	e.Use(requestLogger(deps.Log))

	// --- Probes, metrics and docs (no session) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Storage)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – is session storage up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: deps.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Everything below belongs to a browser session ---
	withSession := middleware.Session(deps.Sessions, deps.Cookie)

	pages := handler.NewPageHandler()
	e.GET(domain.RouteLogin, pages.Login, withSession)
	e.GET(domain.RouteRegister, pages.Register, withSession)
	e.GET(domain.RouteForgotPassword, pages.ForgotPassword, withSession)

	authHandler := handler.NewAuthHandler(deps.Log)
	auth := e.Group("/auth", withSession)
	auth.POST("/login", authHandler.Login)
	auth.POST("/register", authHandler.Register)
	auth.POST("/logout", authHandler.Logout)
	auth.POST("/refresh", authHandler.Refresh)
	auth.GET("/forgot-password/:email", authHandler.ForgotPassword)
	auth.POST("/reset-password", authHandler.ResetPassword)

	sessionHandler := handler.NewSessionHandler()
	e.GET("/session", sessionHandler.Get, withSession)
	e.PATCH("/session/user", sessionHandler.PatchUser, withSession)

	dashboards := handler.NewDashboardHandler(deps.Log)
	e.GET(domain.RouteAdminLanding, dashboards.Admin,
		withSession, middleware.Guard(service.DefaultGuardPolicy(domain.UserTypeAdmin)))
	e.GET(domain.RouteVeterinarianLanding, dashboards.Veterinarian,
		withSession, middleware.Guard(service.DefaultGuardPolicy(domain.UserTypeVeterinarian)))
	e.GET(domain.RouteMerchantLanding, dashboards.Merchant,
		withSession, middleware.Guard(service.DefaultGuardPolicy(domain.UserTypeMerchant)))
	e.GET(domain.RouteTutorLanding, dashboards.Tutor,
		withSession, middleware.Guard(service.DefaultGuardPolicy(domain.UserTypeTutor)))

	return e
}

// requestLogger feeds echo's request logger into zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	})
}
