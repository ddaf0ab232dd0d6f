// Package session keeps one SessionStore per browser in memory, sharded by
// session id, and rebuilds stores from durable storage on demand.
package session

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/petconnect/web-gateway/internal/api/metrics"
	"github.com/petconnect/web-gateway/internal/core/domain"
	"github.com/petconnect/web-gateway/internal/core/ports"
	"github.com/petconnect/web-gateway/internal/core/service"
	"github.com/petconnect/web-gateway/internal/infrastructure/apiclient"
	"github.com/petconnect/web-gateway/internal/infrastructure/backend"
	"github.com/petconnect/web-gateway/internal/infrastructure/storage"
)

const (
	defaultShards      = 8
	defaultIdleTimeout = 30 * time.Minute
)

// Session is everything a request needs for one browser.
type Session struct {
	ID         string
	Scope      string
	Store      *service.SessionStore
	Auth       ports.AuthGateway
	Dashboards ports.DashboardGateway

	lastSeen atomic.Int64
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

type shard struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// Registry maps session ids to live sessions. Each shard has its own lock and
// its own janitor, so a slow hydrate only blocks the ids that hash to it.
type Registry struct {
	shards  []*shard
	backend ports.Storage
	client  *apiclient.Client
	idle    time.Duration
	log     zerolog.Logger

	active atomic.Int64
	now    func() time.Time
}

// Options tunes a Registry. Zero values select the defaults.
type Options struct {
	Shards      int
	IdleTimeout time.Duration
}

// NewRegistry returns a registry whose sessions store their keys in st and
// reach the backend through client.
func NewRegistry(st ports.Storage, client *apiclient.Client, opts Options, log zerolog.Logger) *Registry {
	n := opts.Shards
	if n <= 0 {
		n = defaultShards
	}
	idle := opts.IdleTimeout
	if idle <= 0 {
		idle = defaultIdleTimeout
	}

	r := &Registry{
		shards:  make([]*shard, n),
		backend: st,
		client:  client,
		idle:    idle,
		log:     log,
		now:     time.Now,
	}
	for i := range r.shards {
		r.shards[i] = &shard{sessions: make(map[string]*Session)}
	}
	return r
}

// Open returns the live session for id, building and hydrating it first when
// it is not cached. A session whose hydration fails is not kept, so the next
// request retries.
func (r *Registry) Open(ctx context.Context, id string) (*Session, error) {
	sh := r.shardFor(id)

	sh.mu.Lock()
	sess, ok := sh.sessions[id]
	if !ok {
		sess = r.build(id)
		sh.sessions[id] = sess
		r.setActive(r.active.Add(1))
	}
	sess.touch(r.now())
	sh.mu.Unlock()

	if err := sess.Store.Hydrate(ctx); err != nil {
		r.drop(id, sess)
		return nil, fmt.Errorf("open session: %w", err)
	}
	return sess, nil
}

func (r *Registry) build(id string) *Session {
	scope := storage.ScopeFor(id)
	st := storage.Namespace(r.backend, scope)
	log := r.log.With().Str("session_scope", scope).Logger()

	client := r.client.WithStorage(st).OnUnauthorized(func() { r.Evict(id) })
	auth := backend.NewAuthGateway(client)

	store := service.NewSessionStore(auth, st, log)
	store.Subscribe(watchAuth(log))

	return &Session{
		ID:         id,
		Scope:      scope,
		Store:      store,
		Auth:       auth,
		Dashboards: backend.NewDashboardGateway(client),
	}
}

// watchAuth logs and counts every change of a session's authenticated flag.
func watchAuth(log zerolog.Logger) func(domain.SessionState) {
	var authed atomic.Bool
	return func(st domain.SessionState) {
		if authed.Swap(st.IsAuthenticated) == st.IsAuthenticated {
			return
		}
		state := "anonymous"
		ev := log.Info()
		if st.IsAuthenticated {
			state = "authenticated"
			if st.User != nil {
				ev = ev.Str("user_type", string(st.User.UserType))
			}
		}
		metrics.SessionTransitionsTotal.WithLabelValues(state).Inc()
		ev.Str("state", state).Msg("session state changed")
	}
}

// Evict forgets the cached session for id. Its durable keys are untouched;
// the next Open rebuilds it from storage.
func (r *Registry) Evict(id string) {
	sh := r.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.sessions[id]; ok {
		delete(sh.sessions, id)
		r.setActive(r.active.Add(-1))
	}
}

// drop removes id only while it still maps to sess.
func (r *Registry) drop(id string, sess *Session) {
	sh := r.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if cur, ok := sh.sessions[id]; ok && cur == sess {
		delete(sh.sessions, id)
		r.setActive(r.active.Add(-1))
	}
}

// Len reports the number of cached sessions.
func (r *Registry) Len() int {
	return int(r.active.Load())
}

// Start launches one janitor per shard. Janitors stop when ctx is cancelled.
func (r *Registry) Start(ctx context.Context) {
	interval := r.idle / 2
	for i, sh := range r.shards {
		go r.runJanitor(ctx, i, sh, interval)
	}
}

func (r *Registry) runJanitor(ctx context.Context, id int, sh *shard, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.sweep(sh, r.now()); n > 0 {
				r.log.Debug().Int("shard", id).Int("evicted", n).Msg("idle sessions evicted")
			}
		}
	}
}

// sweep evicts every session in sh idle for longer than the timeout.
func (r *Registry) sweep(sh *shard, now time.Time) int {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	n := 0
	for id, sess := range sh.sessions {
		if sess.idleSince(now) > r.idle {
			delete(sh.sessions, id)
			n++
		}
	}
	if n > 0 {
		r.setActive(r.active.Add(int64(-n)))
	}
	return n
}

// shardFor maps a session id deterministically to a shard.
func (r *Registry) shardFor(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return r.shards[h.Sum32()%uint32(len(r.shards))]
}

func (r *Registry) setActive(n int64) {
	metrics.SessionsActive.Set(float64(n))
}
