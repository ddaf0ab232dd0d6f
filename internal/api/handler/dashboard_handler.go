package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/petconnect/web-gateway/internal/core/domain"
	"github.com/petconnect/web-gateway/internal/infrastructure/session"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// DashboardHandler serves the landing route of each role. Routes are mounted
// behind the guard, so the session is authenticated with an allowed role.
type DashboardHandler struct {
	log zerolog.Logger
	now func() time.Time
}

func NewDashboardHandler(log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{log: log, now: time.Now}
}

type dashboardResponse struct {
	User      *domain.User    `json:"user"`
	Dashboard json.RawMessage `json:"dashboard"`
}

// currentUser refreshes the session first when the access token has expired
// or the user has not been loaded yet, then returns the user.
func (h *DashboardHandler) currentUser(ctx context.Context, sess *session.Session) (*domain.User, error) {
	st := sess.Store.State()
	if st.User != nil && !sess.Store.AccessTokenExpired(h.now()) {
		return st.User, nil
	}

	err := sess.Store.RefreshAuthToken(ctx)
	record("refresh", err)
	if err != nil {
		h.log.Info().Err(err).Msg("proactive refresh failed")
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "session expired")
	}
	return sess.Store.State().User, nil
}

func (h *DashboardHandler) serve(c echo.Context, fetch func(ctx context.Context, sess *session.Session, user *domain.User) (json.RawMessage, error)) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	user, err := h.currentUser(ctx, sess)
	if err != nil {
		return err
	}
	data, err := fetch(ctx, sess, user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dashboardResponse{User: user, Dashboard: data})
}

// Admin serves the platform overview.
//
// @Summary      Admin dashboard
// @Tags         dashboards
// @Produce      json
// @Success      200  {object}  dashboardResponse
// @Router       /admin/dashboard [get]
func (h *DashboardHandler) Admin(c echo.Context) error {
	return h.serve(c, func(ctx context.Context, sess *session.Session, _ *domain.User) (json.RawMessage, error) {
		return sess.Dashboards.AdminDashboard(ctx)
	})
}

// Veterinarian serves the logged-in veterinarian's dashboard.
//
// @Summary      Veterinarian dashboard
// @Tags         dashboards
// @Produce      json
// @Success      200  {object}  dashboardResponse
// @Router       /veterinario/dashboard [get]
func (h *DashboardHandler) Veterinarian(c echo.Context) error {
	return h.serve(c, func(ctx context.Context, sess *session.Session, u *domain.User) (json.RawMessage, error) {
		return sess.Dashboards.VeterinarianDashboard(ctx, u.ID)
	})
}

// Merchant serves the logged-in merchant's dashboard.
//
// @Summary      Merchant dashboard
// @Tags         dashboards
// @Produce      json
// @Success      200  {object}  dashboardResponse
// @Router       /lojista/dashboard [get]
func (h *DashboardHandler) Merchant(c echo.Context) error {
	return h.serve(c, func(ctx context.Context, sess *session.Session, u *domain.User) (json.RawMessage, error) {
		return sess.Dashboards.MerchantDashboard(ctx, u.ID)
	})
}

// Tutor serves the pet owner's dashboard, paginated.
//
// @Summary      Tutor dashboard
// @Tags         dashboards
// @Produce      json
// @Param        page  query     int  false  "Zero-based page"
// @Param        size  query     int  false  "Page size (max 100)"
// @Success      200   {object}  dashboardResponse
// @Router       /tutor/dashboard [get]
func (h *DashboardHandler) Tutor(c echo.Context) error {
	page, size := pagination(c)
	return h.serve(c, func(ctx context.Context, sess *session.Session, _ *domain.User) (json.RawMessage, error) {
		return sess.Dashboards.TutorDashboard(ctx, page, size)
	})
}

func pagination(c echo.Context) (page, size int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 0 {
		page = 0
	}
	size, _ = strconv.Atoi(c.QueryParam("size"))
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}
