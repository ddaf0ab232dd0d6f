package backend

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/petconnect/web-gateway/internal/core/ports"
	"github.com/petconnect/web-gateway/internal/infrastructure/apiclient"
)

// DashboardGateway implements ports.DashboardGateway. Payloads are returned
// as the backend sent them.
type DashboardGateway struct {
	client *apiclient.Client
}

var _ ports.DashboardGateway = (*DashboardGateway)(nil)

func NewDashboardGateway(client *apiclient.Client) *DashboardGateway {
	return &DashboardGateway{client: client}
}

func (g *DashboardGateway) AdminDashboard(ctx context.Context) (json.RawMessage, error) {
	return apiclient.Get[json.RawMessage](ctx, g.client, "/api/admin/dashboard", nil)
}

func (g *DashboardGateway) VeterinarianDashboard(ctx context.Context, veterinarianID string) (json.RawMessage, error) {
	return apiclient.Get[json.RawMessage](ctx, g.client, "/api/veterinario/dashboard/"+url.PathEscape(veterinarianID), nil)
}

func (g *DashboardGateway) MerchantDashboard(ctx context.Context, merchantID string) (json.RawMessage, error) {
	return apiclient.Get[json.RawMessage](ctx, g.client, "/api/lojista/dashboard/"+url.PathEscape(merchantID), nil)
}

func (g *DashboardGateway) TutorDashboard(ctx context.Context, page, size int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	return apiclient.Get[json.RawMessage](ctx, g.client, "/api/tutor/dashboard", q)
}
