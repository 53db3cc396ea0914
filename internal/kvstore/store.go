// Package kvstore provides the persistent key-value storage behind the schedule cache.
//
// Every backend enforces the same contract: string keys, opaque byte values,
// prefix listing, and a distinguishable ErrQuotaExceeded when a write would
// push the store past its capacity.
package kvstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key does not exist
	ErrNotFound = errors.New("kvstore: key not found")
	// ErrQuotaExceeded is returned by Set when the write does not fit in the store
	ErrQuotaExceeded = errors.New("kvstore: quota exceeded")
)

// Store is a persistent key-value store
type Store interface {
	// Get returns the value stored under key or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)
	// Set creates or overwrites key. Returns an error wrapping ErrQuotaExceeded
	// when the store is full.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	// Keys lists every key starting with prefix in ascending order
	Keys(ctx context.Context, prefix string) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}

// entrySize is the number of bytes a key/value pair counts against a quota
func entrySize(key string, value []byte) int64 {
	return int64(len(key) + len(value))
}

func exceedsQuota(quota, used int64) bool {
	return quota > 0 && used > quota
}
