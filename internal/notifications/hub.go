package notifications

import (
	"context"
	"strings"
	"sync"

	"opcdiary/internal/observability"
)

// Hub indexes running pollers by identity name so that a write made in one
// session can trigger an immediate rescan in the sessions it concerns.
// Polling stays authoritative: a lost nudge only delays a badge to the next
// tick.
type Hub struct {
	mu      sync.RWMutex
	pollers map[string]map[*Poller]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{pollers: make(map[string]map[*Poller]struct{})}
}

// Register adds p under name.
func (h *Hub) Register(name string, p *Poller) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.pollers[name]
	if !ok {
		m = make(map[*Poller]struct{})
		h.pollers[name] = m
	}
	m[p] = struct{}{}
}

// Unregister removes p from name.
func (h *Hub) Unregister(name string, p *Poller) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.pollers[name]; ok {
		delete(m, p)
		if len(m) == 0 {
			delete(h.pollers, name)
		}
	}
}

// Nudge asks every poller registered under name to rescan now.
func (h *Hub) Nudge(name string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for p := range h.pollers[name] {
		p.Nudge()
	}
}

// NudgeAll asks every registered poller to rescan now.
func (h *Hub) NudgeAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, m := range h.pollers {
		for p := range m {
			p.Nudge()
		}
	}
}

// Count returns the number of registered pollers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, m := range h.pollers {
		n += len(m)
	}
	return n
}

// StartWiring connects the Notifier to this hub: nudges published by any
// process sharing the Redis instance reach the local pollers.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(channel, _ string) {
		if channel == broadcastChannel {
			h.NudgeAll()
			return
		}
		name, ok := strings.CutPrefix(channel, userChannelPrefix)
		if !ok || name == "" {
			observability.GlobalLogger.WarnContext(ctx, "invalid notification channel", "channel", channel)
			return
		}
		h.Nudge(name)
	})
}
