package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/petconnect/web-gateway/internal/core/domain"
	"github.com/petconnect/web-gateway/internal/core/ports"
)

// SessionStore owns the authentication state of one browser session and keeps
// its durable copy in ports.Storage.
//
// Network calls run outside the lock. A state change and the storage writes
// that go with it happen under the lock, so other callers never observe one
// without the other. Concurrent logins are last-write-wins.
type SessionStore struct {
	gateway ports.AuthGateway
	storage ports.Storage
	log     zerolog.Logger

	mu        sync.RWMutex
	state     domain.SessionState
	persisted domain.PersistedSession
	listeners map[int]func(domain.SessionState)
	nextID    int

	hydrateOnce sync.Once
	hydrateErr  error
	hydrated    chan struct{}

	refresh        singleflight.Group
	refreshTimeout time.Duration
	storageTimeout time.Duration
}

const (
	defaultRefreshTimeout = 15 * time.Second
	defaultStorageTimeout = 5 * time.Second
)

var _ ports.SessionService = (*SessionStore)(nil)

// NewSessionStore returns an empty, not yet hydrated store.
func NewSessionStore(gateway ports.AuthGateway, storage ports.Storage, log zerolog.Logger) *SessionStore {
	return &SessionStore{
		gateway:   gateway,
		storage:   storage,
		log:       log,
		listeners: make(map[int]func(domain.SessionState)),
		hydrated:  make(chan struct{}),

		refreshTimeout: defaultRefreshTimeout,
		storageTimeout: defaultStorageTimeout,
	}
}

// State returns a copy of the current session.
func (s *SessionStore) State() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Hydrated is closed once Hydrate has finished, successfully or not.
func (s *SessionStore) Hydrated() <-chan struct{} {
	return s.hydrated
}

// Subscribe registers fn to receive a copy of the state after every change.
func (s *SessionStore) Subscribe(fn func(domain.SessionState)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Hydrate loads the snapshot record into memory. Only the first call does any
// work; later calls return the first result.
func (s *SessionStore) Hydrate(ctx context.Context) error {
	s.hydrateOnce.Do(func() {
		defer close(s.hydrated)
		s.hydrateErr = s.hydrate(ctx)
	})
	return s.hydrateErr
}

func (s *SessionStore) hydrate(ctx context.Context) error {
	raw, found, err := s.storage.GetItem(ctx, domain.StorageKeySnapshot)
	if err != nil {
		return fmt.Errorf("hydrate session: %w", err)
	}
	if !found {
		return nil
	}

	p, err := domain.DecodeSnapshot(raw)
	if err != nil {
		s.log.Warn().Err(err).Msg("discarding unreadable session snapshot")
		if rmErr := s.storage.RemoveItem(ctx, domain.StorageKeySnapshot); rmErr != nil {
			s.log.Warn().Err(rmErr).Msg("failed to remove session snapshot")
		}
		return nil
	}

	s.mu.Lock()
	s.state = domain.FromPersisted(s.state, p)
	s.persisted = s.state.ToPersisted()
	snapshot, listeners := s.state.Clone(), s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, snapshot)
	return nil
}

// InitializeAuth waits for hydration, then reconciles the raw token keys: when
// both are present they win over the snapshot and the session is marked
// authenticated. It never contacts the backend, so the user may still be absent
// afterwards. Safe to call any number of times.
func (s *SessionStore) InitializeAuth(ctx context.Context) error {
	select {
	case <-s.hydrated:
	case <-ctx.Done():
		return ctx.Err()
	}

	access, okAccess, err := s.storage.GetItem(ctx, domain.StorageKeyAccessToken)
	if err != nil {
		return fmt.Errorf("initialize auth: %w", err)
	}
	refresh, okRefresh, err := s.storage.GetItem(ctx, domain.StorageKeyRefreshToken)
	if err != nil {
		return fmt.Errorf("initialize auth: %w", err)
	}
	if !okAccess || !okRefresh || access == "" || refresh == "" {
		return nil
	}

	s.commit(ctx, func(st *domain.SessionState) {
		st.AccessToken = access
		st.RefreshToken = refresh
		st.IsAuthenticated = true
	}, nil)
	return nil
}

// Login authenticates against the backend. On failure the session is left as
// it was (apart from the loading flag) and the backend error is returned as is.
func (s *SessionStore) Login(ctx context.Context, creds domain.Credentials) error {
	s.setLoading(ctx, true)

	res, err := s.gateway.Login(ctx, creds)
	if err == nil {
		err = checkResult(res)
	}
	if err != nil {
		s.setLoading(ctx, false)
		s.log.Debug().Err(err).Str("email", creds.Email).Msg("login rejected")
		return err
	}

	s.establish(ctx, res, true)
	s.log.Info().Str("user_id", res.User.ID).Str("user_type", string(res.User.UserType)).Msg("login succeeded")
	return nil
}

// Register creates the account and logs it in with the returned tokens.
func (s *SessionStore) Register(ctx context.Context, reg domain.Registration) error {
	s.setLoading(ctx, true)

	res, err := s.gateway.Register(ctx, reg)
	if err == nil {
		err = checkResult(res)
	}
	if err != nil {
		s.setLoading(ctx, false)
		s.log.Debug().Err(err).Str("email", reg.Email).Msg("registration rejected")
		return err
	}

	s.establish(ctx, res, true)
	s.log.Info().Str("user_id", res.User.ID).Str("user_type", string(res.User.UserType)).Msg("registration succeeded")
	return nil
}

// Logout clears the session and its durable keys. It cannot fail; storage
// errors are logged. The keys are removed even when ctx is already done, so a
// cancelled request cannot leave tokens behind for InitializeAuth to restore.
func (s *SessionStore) Logout(ctx context.Context) {
	ctx, cancel := s.detached(ctx, s.storageTimeout)
	defer cancel()

	s.mu.Lock()
	s.state = domain.SessionState{}
	s.persisted = domain.PersistedSession{}
	for _, key := range []string{domain.StorageKeyAccessToken, domain.StorageKeyRefreshToken, domain.StorageKeySnapshot} {
		if err := s.storage.RemoveItem(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to clear storage key on logout")
		}
	}
	snapshot, listeners := s.state.Clone(), s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, snapshot)
}

// RefreshAuthToken exchanges the refresh token for a new token pair. Any
// failure, including a missing refresh token, logs the session out before the
// error is returned. Concurrent calls share one backend round-trip.
//
// The round-trip is not bound to any caller's ctx. A caller whose ctx ends
// gets ctx.Err() back while the refresh carries on for the others; the session
// is only logged out when the refresh itself fails.
func (s *SessionStore) RefreshAuthToken(ctx context.Context) error {
	ch := s.refresh.DoChan("refresh", func() (any, error) {
		rctx, cancel := s.detached(ctx, s.refreshTimeout)
		defer cancel()
		return nil, s.refreshTokens(rctx)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SessionStore) refreshTokens(ctx context.Context) error {
	s.mu.RLock()
	token := s.state.RefreshToken
	s.mu.RUnlock()

	if token == "" {
		s.Logout(ctx)
		return domain.ErrNoRefreshToken
	}

	res, err := s.gateway.RefreshToken(ctx, token)
	if err == nil {
		err = checkResult(res)
	}
	if err != nil {
		s.log.Info().Err(err).Msg("token refresh failed, logging out")
		s.Logout(ctx)
		return err
	}

	s.establish(ctx, res, false)
	return nil
}

// UpdateUser merges patch into the cached user. It does nothing when no user
// is cached and never calls the backend.
func (s *SessionStore) UpdateUser(ctx context.Context, patch domain.UserPatch) {
	s.commit(ctx, func(st *domain.SessionState) {
		if st.User == nil {
			return
		}
		patch.Apply(st.User)
	}, nil)
}

// AccessTokenExpired reports whether the access token is a JWT whose exp claim
// is at or before now. The signature is not checked; the backend does that.
// Opaque tokens are never reported as expired.
func (s *SessionStore) AccessTokenExpired(now time.Time) bool {
	s.mu.RLock()
	token := s.state.AccessToken
	s.mu.RUnlock()
	if token == "" {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

type tokenPair struct {
	access  string
	refresh string
}

// establish installs a full session from a backend auth result.
func (s *SessionStore) establish(ctx context.Context, res *domain.AuthResult, clearLoading bool) {
	s.commit(ctx, func(st *domain.SessionState) {
		st.User = res.User.Clone()
		st.AccessToken = res.AccessToken
		st.RefreshToken = res.RefreshToken
		st.IsAuthenticated = true
		if clearLoading {
			st.IsLoading = false
		}
	}, &tokenPair{access: res.AccessToken, refresh: res.RefreshToken})
}

func (s *SessionStore) setLoading(ctx context.Context, loading bool) {
	s.commit(ctx, func(st *domain.SessionState) { st.IsLoading = loading }, nil)
}

// commit applies mutate and, in the same critical section, writes the raw
// token keys (when tokens is set) and the snapshot record (when the persisted
// projection changed). An empty projection removes the record.
func (s *SessionStore) commit(ctx context.Context, mutate func(*domain.SessionState), tokens *tokenPair) {
	ctx, cancel := s.detached(ctx, s.storageTimeout)
	defer cancel()

	s.mu.Lock()
	next := s.state.Clone()
	mutate(&next)
	s.state = next

	if tokens != nil {
		s.setItem(ctx, domain.StorageKeyAccessToken, tokens.access)
		if tokens.refresh != "" {
			s.setItem(ctx, domain.StorageKeyRefreshToken, tokens.refresh)
		} else {
			s.removeItem(ctx, domain.StorageKeyRefreshToken)
		}
	}

	if p := next.ToPersisted(); !p.Equal(s.persisted) {
		s.persisted = p
		s.writeSnapshot(ctx, p)
	}

	snapshot, listeners := s.state.Clone(), s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, snapshot)
}

func (s *SessionStore) writeSnapshot(ctx context.Context, p domain.PersistedSession) {
	if p.IsEmpty() {
		s.removeItem(ctx, domain.StorageKeySnapshot)
		return
	}
	raw, err := domain.EncodeSnapshot(p)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to encode session snapshot")
		return
	}
	s.setItem(ctx, domain.StorageKeySnapshot, raw)
}

// detached keeps ctx's values but not its cancellation, bounded by timeout.
func (s *SessionStore) detached(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

func (s *SessionStore) setItem(ctx context.Context, key, value string) {
	if err := s.storage.SetItem(ctx, key, value); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to persist session key")
	}
}

func (s *SessionStore) removeItem(ctx context.Context, key string) {
	if err := s.storage.RemoveItem(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to remove session key")
	}
}

func (s *SessionStore) listenersLocked() []func(domain.SessionState) {
	if len(s.listeners) == 0 {
		return nil
	}
	out := make([]func(domain.SessionState), 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}

func notify(listeners []func(domain.SessionState), st domain.SessionState) {
	for _, fn := range listeners {
		fn(st.Clone())
	}
}

// checkResult rejects a backend answer that would break the session invariants.
func checkResult(res *domain.AuthResult) error {
	if res == nil || res.AccessToken == "" || res.User == nil {
		return domain.ErrIncompleteResponse
	}
	return nil
}
