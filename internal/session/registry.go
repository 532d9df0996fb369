package session

import (
	"context"
	"sync"
	"time"

	"opcdiary/internal/observability"

	"github.com/google/uuid"
)

// DefaultTTL is how long an idle session survives.
const DefaultTTL = 24 * time.Hour

type entry struct {
	manager  *Manager
	lastSeen time.Time
}

// Registry maps opaque session ids to managers for the HTTP layer.
type Registry struct {
	opts Options
	ttl  time.Duration
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

// NewRegistry creates a Registry whose managers share opts. A non-positive
// ttl uses DefaultTTL.
func NewRegistry(opts Options, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		opts:     opts,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Create registers a fresh logged-out manager and returns its id.
func (r *Registry) Create() (string, *Manager) {
	id := uuid.Must(uuid.NewV7()).String()
	m := NewManager(r.opts)

	r.mu.Lock()
	r.sessions[id] = &entry{manager: m, lastSeen: r.now()}
	n := len(r.sessions)
	r.mu.Unlock()

	observability.ActiveSessions.Set(float64(n))
	return id, m
}

// Get returns the manager for id and refreshes its expiry.
func (r *Registry) Get(id string) (*Manager, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	if r.now().Sub(e.lastSeen) > r.ttl {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.manager, true
}

// Remove closes and forgets the session.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	if ok {
		e.manager.Close()
	}
	observability.ActiveSessions.Set(float64(n))
}

// Len returns the number of registered sessions, expired ones included.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes every expired session and returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	var expired []*entry
	now := r.now()
	for id, e := range r.sessions {
		if now.Sub(e.lastSeen) > r.ttl {
			expired = append(expired, e)
			delete(r.sessions, id)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, e := range expired {
		e.manager.Close()
	}
	observability.ActiveSessions.Set(float64(n))
	return len(expired)
}

// Run sweeps on every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				observability.GlobalLogger.InfoContext(ctx, "expired sessions removed", "count", n)
			}
		}
	}
}

// CloseAll closes every session, e.g. on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range all {
		e.manager.Close()
	}
	observability.ActiveSessions.Set(0)
}
