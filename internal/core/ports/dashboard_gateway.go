package ports

import (
	"context"
	"encoding/json"
)

// DashboardGateway fetches the per-role landing data from the backend. Payloads
// are passed through untouched.
type DashboardGateway interface {
	AdminDashboard(ctx context.Context) (json.RawMessage, error)
	VeterinarianDashboard(ctx context.Context, veterinarianID string) (json.RawMessage, error)
	MerchantDashboard(ctx context.Context, merchantID string) (json.RawMessage, error)
	TutorDashboard(ctx context.Context, page, size int) (json.RawMessage, error)
}
