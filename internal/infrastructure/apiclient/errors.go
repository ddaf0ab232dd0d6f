package apiclient

import (
	"fmt"
	"net/http"

	"github.com/petconnect/web-gateway/internal/core/domain"
)

// APIError is the uniform failure of every backend call.
type APIError struct {
	Message   string `json:"message"`
	Status    int    `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: %s (status %d)", e.Message, e.Status)
}

// Unwrap lets callers test credential rejection with errors.Is(err, domain.ErrUnauthorized).
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return domain.ErrUnauthorized
	}
	return nil
}
