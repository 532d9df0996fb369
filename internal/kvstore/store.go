// Package kvstore is the flat string-keyed, string-valued store every
// repository writes through. Backends share one contract: no transactions
// across keys, last write wins per key, and a byte budget that rejects writes
// with ErrQuotaExceeded.
package kvstore

import (
	"context"
	"errors"
	"strings"
)

// DefaultQuota is the byte budget used when none is configured.
const DefaultQuota int64 = 5 * 1024 * 1024

// ErrQuotaExceeded is returned by Set when the write would push the store
// past its capacity. The previous value of the key is left untouched.
var ErrQuotaExceeded = errors.New("kvstore: quota exceeded")

// Store is the key-value contract.
type Store interface {
	// Get returns the value and true, or "" and false when the key is absent.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes value under key, or returns ErrQuotaExceeded.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	// Keys lists the keys starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Pinger is implemented by backends that talk to an external server.
type Pinger interface {
	Ping(ctx context.Context) error
}

// UsageReporter is implemented by backends that can report bytes in use.
type UsageReporter interface {
	Usage(ctx context.Context) (used int64, quota int64, err error)
}

// Options configures a backend.
type Options struct {
	// Namespace isolates one application's keys inside a shared backend.
	Namespace string
	// Quota is the byte budget; zero or negative disables the check.
	Quota int64
}

func (o Options) namespace() string {
	if o.Namespace == "" {
		return "opc"
	}
	return o.Namespace
}

// entrySize is what one key/value pair counts against the quota.
func entrySize(key, value string) int64 {
	return int64(len(key) + len(value))
}

// exceeds reports whether writing newSize in place of oldSize breaks quota.
func exceeds(quota, used, oldSize, newSize int64) bool {
	if quota <= 0 {
		return false
	}
	return used-oldSize+newSize > quota
}

func hasPrefix(key, prefix string) bool {
	return prefix == "" || strings.HasPrefix(key, prefix)
}
