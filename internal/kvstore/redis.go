package kvstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"opcdiary/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	usageSuffix    = "__usage"
	maxTxAttempts  = 8
	scanBatchCount = 200
)

// RedisStore keeps every key as a plain Redis string under
// "{namespace}:{key}" and tracks bytes in use in "{namespace}:__usage".
// Quota check and write run in one WATCH/MULTI transaction.
type RedisStore struct {
	rdb       *redis.Client
	namespace string
	quota     int64
	metrics   *observability.StoreMetrics
	tracer    *observability.TraceLayer
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb *redis.Client, opts Options) *RedisStore {
	return &RedisStore{
		rdb:       rdb,
		namespace: opts.namespace(),
		quota:     opts.Quota,
		metrics:   observability.NewStoreMetrics("redis"),
		tracer:    observability.GetTraceLayer(),
	}
}

func (s *RedisStore) fullKey(key string) string {
	return s.namespace + ":" + key
}

func (s *RedisStore) usageKey() string {
	return s.fullKey(usageSuffix)
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	defer s.metrics.Track("get")()
	ctx, span := s.tracer.TraceStoreOperation(ctx, "redis", "get", key)
	defer span.End()

	v, err := s.rdb.Get(ctx, s.fullKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		s.metrics.Error("get")
		observability.RecordErrorInContext(ctx, err)
		return "", false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	defer s.metrics.Track("set")()
	ctx, span := s.tracer.TraceStoreOperation(ctx, "redis", "set", key)
	defer span.End()

	full := s.fullKey(key)
	newSize := entrySize(key, value)

	txf := func(tx *redis.Tx) error {
		oldSize, used, err := s.sizes(ctx, tx, key, full)
		if err != nil {
			return err
		}
		if exceeds(s.quota, used, oldSize, newSize) {
			return ErrQuotaExceeded
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, full, value, 0)
			pipe.IncrBy(ctx, s.usageKey(), newSize-oldSize)
			return nil
		})
		return err
	}

	err := s.watch(ctx, txf, full)
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		s.metrics.Quota()
		return err
	case err != nil:
		s.metrics.Error("set")
		observability.RecordErrorInContext(ctx, err)
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	defer s.metrics.Track("remove")()
	ctx, span := s.tracer.TraceStoreOperation(ctx, "redis", "remove", key)
	defer span.End()

	full := s.fullKey(key)
	txf := func(tx *redis.Tx) error {
		oldSize, _, err := s.sizes(ctx, tx, key, full)
		if err != nil {
			return err
		}
		if oldSize == 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, full)
			pipe.DecrBy(ctx, s.usageKey(), oldSize)
			return nil
		})
		return err
	}
	if err := s.watch(ctx, txf, full); err != nil {
		s.metrics.Error("remove")
		return fmt.Errorf("redis remove %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	defer s.metrics.Track("keys")()
	nsPrefix := s.namespace + ":"
	match := escapeGlob(nsPrefix+prefix) + "*"

	var keys []string
	iter := s.rdb.Scan(ctx, 0, match, scanBatchCount).Iterator()
	for iter.Next(ctx) {
		k := strings.TrimPrefix(iter.Val(), nsPrefix)
		if k == usageSuffix {
			continue
		}
		keys = append(keys, k)
	}
	if err := iter.Err(); err != nil {
		s.metrics.Error("keys")
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Ping checks the server connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Usage reports the bytes currently counted against the quota.
func (s *RedisStore) Usage(ctx context.Context) (int64, int64, error) {
	used, err := s.rdb.Get(ctx, s.usageKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, s.quota, nil
	}
	return used, s.quota, err
}

// sizes reads the current size of key and the namespace usage inside a
// watched transaction.
func (s *RedisStore) sizes(ctx context.Context, tx *redis.Tx, key, full string) (int64, int64, error) {
	var oldSize int64
	n, err := tx.StrLen(ctx, full).Result()
	if err != nil {
		return 0, 0, err
	}
	exists, err := tx.Exists(ctx, full).Result()
	if err != nil {
		return 0, 0, err
	}
	if exists > 0 {
		oldSize = int64(len(key)) + n
	}
	used, err := tx.Get(ctx, s.usageKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, err
	}
	return oldSize, used, nil
}

func (s *RedisStore) watch(ctx context.Context, txf func(*redis.Tx) error, full string) error {
	var err error
	for i := 0; i < maxTxAttempts; i++ {
		err = s.rdb.Watch(ctx, txf, full, s.usageKey())
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

func escapeGlob(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}
