package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/petconnect/web-gateway/internal/api/metrics"
	"github.com/petconnect/web-gateway/internal/core/domain"
)

// AuthHandler drives the browser session's store through login, registration,
// logout and token refresh, plus the password recovery flow.
type AuthHandler struct {
	log zerolog.Logger
}

func NewAuthHandler(log zerolog.Logger) *AuthHandler {
	return &AuthHandler{log: log}
}

func record(operation string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.AuthOperationsTotal.WithLabelValues(operation, result).Inc()
}

// Login authenticates the browser session.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	err = sess.Store.Login(c.Request().Context(), domain.Credentials{Email: req.Email, Password: req.Password})
	record("login", err)
	if err != nil {
		return err
	}

	user := sess.Store.State().User
	return c.JSON(http.StatusOK, authResponse{User: user, Redirect: domain.LandingRouteFor(user.UserType)})
}

// Register creates an account and logs the browser session into it.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration form"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	err = sess.Store.Register(c.Request().Context(), req.toRegistration())
	record("register", err)
	if err != nil {
		return err
	}

	user := sess.Store.State().User
	return c.JSON(http.StatusCreated, authResponse{User: user, Redirect: domain.LandingRouteFor(user.UserType)})
}

// Logout clears the browser session.
//
// @Summary      Logout
// @Tags         auth
// @Success      204
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	sess.Store.Logout(c.Request().Context())
	record("logout", nil)
	return c.NoContent(http.StatusNoContent)
}

// Refresh exchanges the stored refresh token for a new token pair. A failed
// refresh has already logged the session out when this returns 401.
//
// @Summary      Refresh the session tokens
// @Tags         auth
// @Produce      json
// @Success      200  {object}  authResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	err = sess.Store.RefreshAuthToken(c.Request().Context())
	record("refresh", err)
	if err != nil {
		if !errors.Is(err, domain.ErrNoRefreshToken) {
			h.log.Info().Err(err).Msg("refresh rejected, session logged out")
		}
		return echo.NewHTTPError(http.StatusUnauthorized, "session expired")
	}
	return c.JSON(http.StatusOK, authResponse{User: sess.Store.State().User})
}

// ForgotPassword returns the security question registered for an email.
//
// @Summary      Security question for password recovery
// @Tags         auth
// @Produce      json
// @Param        email  path      string  true  "Account email"
// @Success      200    {object}  questionResponse
// @Failure      404    {object}  errorResponse
// @Router       /auth/forgot-password/{email} [get]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	email := c.Param("email")
	if email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}

	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	q, err := sess.Auth.SecurityQuestion(c.Request().Context(), email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, questionResponse{Question: q})
}

// ResetPassword sets a new password after the security answer is checked by
// the backend.
//
// @Summary      Reset password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Recovery answer and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	msg, err := sess.Auth.ResetPassword(c.Request().Context(), req.Email, req.SecurityAnswer, req.NewPassword)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: msg})
}
