// Package repository maps entity families onto store keys. Loads never fail
// outward: a missing, unreadable or malformed value comes back as the
// family's empty default. Saves replace the whole scope.
package repository

import (
	"context"
	"errors"
	"fmt"

	"opcdiary/internal/codec"
	"opcdiary/internal/kvstore"
	"opcdiary/internal/models"
	"opcdiary/internal/observability"
)

// family loads and saves one entity shape through the codec.
type family[T any] struct {
	name      string
	store     kvstore.Store
	codec     codec.Codec
	log       *observability.StoreLogger
	tracer    *observability.TraceLayer
	empty     func() T
	normalize func(*T)
}

func newFamily[T any](name string, store kvstore.Store, c codec.Codec, empty func() T, normalize func(*T)) *family[T] {
	if c == nil {
		c = codec.JSON{}
	}
	return &family[T]{
		name:      name,
		store:     store,
		codec:     c,
		log:       observability.NewStoreLogger(name),
		tracer:    observability.GetTraceLayer(),
		empty:     empty,
		normalize: normalize,
	}
}

// read returns the decoded value and whether the key was present. Decode and
// backend failures yield the empty default with present=true, so callers can
// tell "never written" from "written but unusable".
func (f *family[T]) read(ctx context.Context, key string) (T, bool) {
	ctx, span := f.tracer.TraceRepositoryMethod(ctx, f.name, "load")
	defer span.End()

	raw, ok, err := f.store.Get(ctx, key)
	if err != nil {
		f.log.LogError(ctx, err, "load", key)
		observability.RecordErrorInContext(ctx, err)
		return f.empty(), true
	}
	if !ok {
		return f.empty(), false
	}

	var v T
	if err := f.codec.Unmarshal(raw, &v); err != nil {
		decodeErr := models.NewDecodeError(key, err)
		observability.DecodeFailures.WithLabelValues(f.name).Inc()
		f.log.LogDecodeFailure(ctx, key, decodeErr)
		return f.empty(), true
	}
	if f.normalize != nil {
		f.normalize(&v)
	}
	return v, true
}

func (f *family[T]) load(ctx context.Context, key string) T {
	v, _ := f.read(ctx, key)
	return v
}

func (f *family[T]) save(ctx context.Context, key string, v T) error {
	ctx, span := f.tracer.TraceRepositoryMethod(ctx, f.name, "save")
	defer span.End()

	raw, err := f.codec.Marshal(v)
	if err != nil {
		return models.NewInternalError(fmt.Errorf("encode %s: %w", key, err))
	}
	if err := f.store.Set(ctx, key, raw); err != nil {
		return f.wrapSetError(ctx, key, len(raw), err)
	}
	f.log.LogSave(ctx, key, len(raw))
	return nil
}

// wrapSetError turns a store write failure into an AppError, keeping
// kvstore.ErrQuotaExceeded reachable through errors.Is.
func (f *family[T]) wrapSetError(ctx context.Context, key string, size int, err error) error {
	if errors.Is(err, kvstore.ErrQuotaExceeded) {
		f.log.LogQuota(ctx, key, size)
		return models.NewQuotaError(key, err)
	}
	f.log.LogError(ctx, err, "save", key)
	observability.RecordErrorInContext(ctx, err)
	return models.NewInternalError(err)
}

func (f *family[T]) remove(ctx context.Context, key string) error {
	if err := f.store.Remove(ctx, key); err != nil {
		f.log.LogError(ctx, err, "remove", key)
		return models.NewInternalError(err)
	}
	return nil
}

func emptySlice[E any]() func() []E {
	return func() []E { return []E{} }
}

func normalizeSlice[E any](fn func(*E)) func(*[]E) {
	return func(s *[]E) {
		if *s == nil {
			*s = []E{}
		}
		if fn == nil {
			return
		}
		for i := range *s {
			fn(&(*s)[i])
		}
	}
}
