package kvstore

import (
	"context"
	"sort"
	"sync"

	"opcdiary/internal/observability"
)

// MemoryStore keeps everything in a map. It is the default backend and the
// one tests use.
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[string]string
	used    int64
	quota   int64
	metrics *observability.StoreMetrics
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{
		data:    make(map[string]string),
		quota:   opts.Quota,
		metrics: observability.NewStoreMetrics("memory"),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	defer s.metrics.Track("get")()
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	defer s.metrics.Track("set")()
	s.mu.Lock()
	defer s.mu.Unlock()

	var oldSize int64
	if old, ok := s.data[key]; ok {
		oldSize = entrySize(key, old)
	}
	newSize := entrySize(key, value)
	if exceeds(s.quota, s.used, oldSize, newSize) {
		s.metrics.Quota()
		return ErrQuotaExceeded
	}
	s.data[key] = value
	s.used += newSize - oldSize
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	defer s.metrics.Track("remove")()
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.data[key]; ok {
		s.used -= entrySize(key, old)
		delete(s.data, key)
	}
	return nil
}

func (s *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	defer s.metrics.Track("keys")()
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if hasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Usage reports the bytes currently counted against the quota.
func (s *MemoryStore) Usage(_ context.Context) (int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used, s.quota, nil
}
