package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petconnect/web-gateway/internal/core/domain"
	"github.com/petconnect/web-gateway/internal/core/service"
	"github.com/petconnect/web-gateway/internal/infrastructure/storage"
)

func newTestStorage(t *testing.T, ttl time.Duration) (*Storage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStorage(client, ttl), mr
}

func TestStorage_KeyLayout(t *testing.T) {
	s := NewStorage(redis.NewClient(&redis.Options{Addr: "localhost:0"}), 0)
	if got := s.key("abc:pet-connect-token"); got != "petconnect:storage:abc:pet-connect-token" {
		t.Fatalf("unexpected key: %s", got)
	}
	if s.Name() != "redis" {
		t.Fatalf("unexpected name: %s", s.Name())
	}
}

func TestStorage_RoundTrip(t *testing.T) {
	s, mr := newTestStorage(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.SetItem(ctx, "k", "v1"))
	require.NoError(t, s.SetItem(ctx, "k", "v2"))

	v, found, err := s.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v2", v)

	raw, err := mr.Get("petconnect:storage:k")
	require.NoError(t, err)
	assert.Equal(t, "v2", raw)

	require.NoError(t, s.RemoveItem(ctx, "k"))
	assert.False(t, mr.Exists("petconnect:storage:k"))
	_, found, err = s.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStorage_MissingKey(t *testing.T) {
	s, _ := newTestStorage(t, time.Hour)

	v, found, err := s.GetItem(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, v)

	assert.NoError(t, s.RemoveItem(context.Background(), "absent"))
}

func TestStorage_TTL(t *testing.T) {
	s, mr := newTestStorage(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, s.SetItem(ctx, "k", "v"))
	assert.Equal(t, time.Minute, mr.TTL("petconnect:storage:k"))

	mr.FastForward(30 * time.Second)
	require.NoError(t, s.SetItem(ctx, "k", "v"))
	assert.Equal(t, time.Minute, mr.TTL("petconnect:storage:k"), "every write refreshes the TTL")

	mr.FastForward(2 * time.Minute)
	_, found, err := s.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStorage_NoTTL(t *testing.T) {
	s, mr := newTestStorage(t, 0)

	require.NoError(t, s.SetItem(context.Background(), "k", "v"))
	assert.Zero(t, mr.TTL("petconnect:storage:k"))
}

func TestStorage_ServerDown(t *testing.T) {
	s, mr := newTestStorage(t, time.Hour)
	mr.Close()

	_, _, err := s.GetItem(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, s.Ping(context.Background()))
}

type fixedGateway struct {
	res *domain.AuthResult
}

func (g fixedGateway) Login(context.Context, domain.Credentials) (*domain.AuthResult, error) {
	return g.res, nil
}

func (g fixedGateway) Register(context.Context, domain.Registration) (*domain.AuthResult, error) {
	return g.res, nil
}

func (g fixedGateway) RefreshToken(context.Context, string) (*domain.AuthResult, error) {
	return nil, errors.New("refresh token revoked")
}

func (g fixedGateway) SecurityQuestion(context.Context, string) (string, error) {
	return "", errors.New("not implemented")
}

func (g fixedGateway) ResetPassword(context.Context, string, string, string) (string, error) {
	return "", errors.New("not implemented")
}

func TestStorage_SessionLogoutClearsKeys(t *testing.T) {
	backend, mr := newTestStorage(t, time.Hour)
	scoped := storage.Namespace(backend, storage.ScopeFor("browser-1"))
	gw := fixedGateway{res: &domain.AuthResult{
		AccessToken:  "A",
		RefreshToken: "R",
		User:         &domain.User{ID: "1", UserType: domain.UserTypeTutor},
	}}

	s := service.NewSessionStore(gw, scoped, zerolog.Nop())
	require.NoError(t, s.Hydrate(context.Background()))
	require.NoError(t, s.Login(context.Background(), domain.Credentials{Email: "tutor@test.com", Password: "123456"}))
	assert.Len(t, mr.Keys(), 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Logout(ctx)
	assert.Empty(t, mr.Keys(), "logout must clear every key even on a cancelled request")

	restarted := service.NewSessionStore(gw, scoped, zerolog.Nop())
	require.NoError(t, restarted.Hydrate(context.Background()))
	require.NoError(t, restarted.InitializeAuth(context.Background()))
	assert.False(t, restarted.State().IsAuthenticated)
}

func TestStorage_FailedRefreshClearsKeys(t *testing.T) {
	backend, mr := newTestStorage(t, time.Hour)
	scoped := storage.Namespace(backend, storage.ScopeFor("browser-2"))
	gw := fixedGateway{res: &domain.AuthResult{
		AccessToken:  "A",
		RefreshToken: "R",
		User:         &domain.User{ID: "2", UserType: domain.UserTypeAdmin},
	}}

	s := service.NewSessionStore(gw, scoped, zerolog.Nop())
	require.NoError(t, s.Hydrate(context.Background()))
	require.NoError(t, s.Login(context.Background(), domain.Credentials{}))

	assert.Error(t, s.RefreshAuthToken(context.Background()))
	assert.Empty(t, mr.Keys())
}
