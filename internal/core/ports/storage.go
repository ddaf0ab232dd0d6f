package ports

import "context"

// Storage is a durable string key-value store scoped to one browser session.
// GetItem reports found=false for a missing key without an error.
type Storage interface {
	GetItem(ctx context.Context, key string) (value string, found bool, err error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// StorageBackend is a Storage that can also report liveness for readiness probes.
type StorageBackend interface {
	Storage
	Ping(ctx context.Context) error
	Name() string
}
