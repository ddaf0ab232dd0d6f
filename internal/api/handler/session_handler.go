package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/petconnect/web-gateway/internal/core/domain"
)

// SessionHandler exposes the browser's session to the page scripts. Tokens
// never leave the server.
type SessionHandler struct{}

func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

type sessionResponse struct {
	User            *domain.User `json:"user"`
	IsAuthenticated bool         `json:"isAuthenticated"`
	IsLoading       bool         `json:"isLoading"`
	Landing         string       `json:"landing,omitempty"`
}

func toSessionResponse(st domain.SessionState) sessionResponse {
	resp := sessionResponse{
		User:            st.User,
		IsAuthenticated: st.IsAuthenticated,
		IsLoading:       st.IsLoading,
	}
	if st.IsAuthenticated && st.User != nil {
		resp.Landing = domain.LandingRouteFor(st.User.UserType)
	}
	return resp
}

// Get returns the session after reconciling it with stored tokens.
//
// @Summary      Current session
// @Tags         session
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Router       /session [get]
func (h *SessionHandler) Get(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	if err := sess.Store.InitializeAuth(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(sess.Store.State()))
}

// PatchUser merges profile edits into the cached user. The backend is not
// called; the page saves through its own API call first.
//
// @Summary      Update the cached user
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      domain.UserPatch  true  "Fields to merge"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /session/user [patch]
func (h *SessionHandler) PatchUser(c echo.Context) error {
	var patch domain.UserPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	if st := sess.Store.State(); !st.IsAuthenticated || st.User == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
	}

	sess.Store.UpdateUser(c.Request().Context(), patch)
	return c.JSON(http.StatusOK, toSessionResponse(sess.Store.State()))
}
