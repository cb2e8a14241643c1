// Package store is the shared document store every match participant reads
// and the match service mutates. Documents are JSON objects addressed by key;
// writes go through whole-document Set, field-level Update ops or
// multi-key transactions, and changes are pushed to subscribers.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrConflict      = errors.New("transaction conflict, retries exhausted")
	ErrUndeclaredKey = errors.New("key not declared in transaction")
	ErrNotObject     = errors.New("document is not a JSON object")
	ErrTypeMismatch  = errors.New("field has an incompatible type")
)

// Store is implemented by MemoryStore and RedisStore.
type Store interface {
	// Get decodes the document at key into out.
	Get(ctx context.Context, key string, out any) error
	Set(ctx context.Context, key string, v any) error
	// Update applies ops atomically to an existing document.
	Update(ctx context.Context, key string, ops ...Op) error
	Delete(ctx context.Context, key string) error
	// RunTransaction reads every key, runs fn and commits all staged writes
	// or none. fn may run more than once and must not keep side effects
	// from an aborted attempt.
	RunTransaction(ctx context.Context, keys []string, fn func(tx *Tx) error) error
	// Subscribe delivers the current snapshot and then the latest snapshot
	// after each change. Slow readers only see the newest one.
	Subscribe(ctx context.Context, key string) (*Subscription, error)
}

// Snapshot is the state of a document at one point in time.
type Snapshot struct {
	Key    string
	Exists bool
	Data   []byte
}

func (s Snapshot) Decode(out any) error {
	if !s.Exists {
		return ErrNotFound
	}
	return json.Unmarshal(s.Data, out)
}
