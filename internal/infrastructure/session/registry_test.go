package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petconnect/web-gateway/internal/api/metrics"
	"github.com/petconnect/web-gateway/internal/core/domain"
	"github.com/petconnect/web-gateway/internal/infrastructure/apiclient"
	"github.com/petconnect/web-gateway/internal/infrastructure/storage"
)

func newRegistry(t *testing.T, st *storage.Memory, h http.HandlerFunc) *Registry {
	t.Helper()
	if h == nil {
		h = func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) }
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	client, err := apiclient.New(apiclient.Config{BaseURL: srv.URL}, zerolog.Nop())
	require.NoError(t, err)
	return NewRegistry(st, client, Options{Shards: 4, IdleTimeout: time.Minute}, zerolog.Nop())
}

func TestOpen_CachesPerID(t *testing.T) {
	r := newRegistry(t, storage.NewMemory(), nil)
	ctx := context.Background()

	a1, err := r.Open(ctx, "browser-a")
	require.NoError(t, err)
	a2, err := r.Open(ctx, "browser-a")
	require.NoError(t, err)
	b, err := r.Open(ctx, "browser-b")
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)
	assert.NotEqual(t, a1.Scope, b.Scope)
	assert.Equal(t, 2, r.Len())
}

func TestOpen_HydratesFromScopedStorage(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()

	raw, err := domain.EncodeSnapshot(domain.PersistedSession{
		User:            &domain.User{ID: "7", UserType: domain.UserTypeTutor},
		AccessToken:     "A",
		RefreshToken:    "R",
		IsAuthenticated: true,
	})
	require.NoError(t, err)
	scoped := storage.Namespace(mem, storage.ScopeFor("browser-a"))
	require.NoError(t, scoped.SetItem(ctx, domain.StorageKeySnapshot, raw))

	r := newRegistry(t, mem, nil)

	a, err := r.Open(ctx, "browser-a")
	require.NoError(t, err)
	st := a.Store.State()
	assert.True(t, st.IsAuthenticated)
	require.NotNil(t, st.User)
	assert.Equal(t, "7", st.User.ID)

	b, err := r.Open(ctx, "browser-b")
	require.NoError(t, err)
	assert.False(t, b.Store.State().IsAuthenticated, "sessions must not see each other's keys")
}

type failingStorage struct{ *storage.Memory }

func (failingStorage) GetItem(context.Context, string) (string, bool, error) {
	return "", false, errors.New("backend down")
}

func TestOpen_HydrateFailureIsNotCached(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)
	client, err := apiclient.New(apiclient.Config{BaseURL: srv.URL}, zerolog.Nop())
	require.NoError(t, err)

	r := NewRegistry(failingStorage{storage.NewMemory()}, client, Options{}, zerolog.Nop())

	_, err = r.Open(context.Background(), "browser-a")
	require.Error(t, err)
	assert.Equal(t, 0, r.Len())
}

func TestUnauthorizedEvictsSession(t *testing.T) {
	r := newRegistry(t, storage.NewMemory(), func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "Token inválido"})
	})
	ctx := context.Background()

	sess, err := r.Open(ctx, "browser-a")
	require.NoError(t, err)

	_, err = sess.Dashboards.AdminDashboard(ctx)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, 0, r.Len())

	again, err := r.Open(ctx, "browser-a")
	require.NoError(t, err)
	assert.NotSame(t, sess, again)
}

func TestSweep_EvictsIdleSessions(t *testing.T) {
	r := newRegistry(t, storage.NewMemory(), nil)
	ctx := context.Background()

	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return start }
	_, err := r.Open(ctx, "old")
	require.NoError(t, err)

	r.now = func() time.Time { return start.Add(50 * time.Second) }
	_, err = r.Open(ctx, "fresh")
	require.NoError(t, err)

	later := start.Add(90 * time.Second)
	evicted := 0
	for _, sh := range r.shards {
		evicted += r.sweep(sh, later)
	}
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, r.Len())
}

func TestEvict_UnknownIDIsNoop(t *testing.T) {
	r := newRegistry(t, storage.NewMemory(), nil)
	r.Evict("nobody")
	assert.Equal(t, 0, r.Len())
}

func TestSessionTransitionsAreCounted(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()

	raw, err := domain.EncodeSnapshot(domain.PersistedSession{
		User:            &domain.User{ID: "9", UserType: domain.UserTypeMerchant},
		AccessToken:     "A",
		RefreshToken:    "R",
		IsAuthenticated: true,
	})
	require.NoError(t, err)
	require.NoError(t, storage.Namespace(mem, storage.ScopeFor("browser-m")).SetItem(ctx, domain.StorageKeySnapshot, raw))

	signedIn := metrics.SessionTransitionsTotal.WithLabelValues("authenticated")
	signedOut := metrics.SessionTransitionsTotal.WithLabelValues("anonymous")
	in0, out0 := testutil.ToFloat64(signedIn), testutil.ToFloat64(signedOut)

	r := newRegistry(t, mem, nil)
	sess, err := r.Open(ctx, "browser-m")
	require.NoError(t, err)
	assert.Equal(t, in0+1, testutil.ToFloat64(signedIn))

	sess.Store.UpdateUser(ctx, domain.UserPatch{})
	assert.Equal(t, in0+1, testutil.ToFloat64(signedIn), "changes that keep the flag are not counted")

	sess.Store.Logout(ctx)
	assert.Equal(t, out0+1, testutil.ToFloat64(signedOut))
}
