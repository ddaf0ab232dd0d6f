package storage

import (
	"context"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"github.com/petconnect/web-gateway/internal/core/ports"
)

// ScopeFor derives the storage scope of a session id. Cookie values are hashed
// so they never appear in the backend's key space.
func ScopeFor(sessionID string) string {
	sum := blake2b.Sum256([]byte(sessionID))
	return hex.EncodeToString(sum[:16])
}

type namespaced struct {
	backend ports.Storage
	prefix  string
}

// Namespace confines every key of backend to scope.
func Namespace(backend ports.Storage, scope string) ports.Storage {
	return &namespaced{backend: backend, prefix: scope + ":"}
}

func (n *namespaced) GetItem(ctx context.Context, key string) (string, bool, error) {
	return n.backend.GetItem(ctx, n.prefix+key)
}

func (n *namespaced) SetItem(ctx context.Context, key, value string) error {
	return n.backend.SetItem(ctx, n.prefix+key, value)
}

func (n *namespaced) RemoveItem(ctx context.Context, key string) error {
	return n.backend.RemoveItem(ctx, n.prefix+key)
}
