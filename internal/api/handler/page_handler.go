package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// PageHandler serves the descriptors of the public views. Markup is rendered
// by the browser bundle.
type PageHandler struct{}

func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

type viewResponse struct {
	View          string `json:"view"`
	Authenticated bool   `json:"authenticated"`
}

func (h *PageHandler) view(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := ctxSession(c)
		if err != nil {
			return err
		}
		if err := sess.Store.InitializeAuth(c.Request().Context()); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, viewResponse{View: name, Authenticated: sess.Store.State().IsAuthenticated})
	}
}

// Login serves GET /login.
func (h *PageHandler) Login(c echo.Context) error { return h.view("login")(c) }

// Register serves GET /register.
func (h *PageHandler) Register(c echo.Context) error { return h.view("register")(c) }

// ForgotPassword serves GET /forgot-password.
func (h *PageHandler) ForgotPassword(c echo.Context) error { return h.view("forgot-password")(c) }
