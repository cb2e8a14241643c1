package store

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore keeps documents in process. Transactions are serialized, so
// they never conflict.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string][]byte
	subs map[string]map[*feed]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string][]byte),
		subs: make(map[string]map[*feed]struct{}),
	}
}

func (m *MemoryStore) Get(ctx context.Context, key string, out any) error {
	m.mu.Lock()
	data, ok := m.docs[key]
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(data, out)
}

func (m *MemoryStore) Set(ctx context.Context, key string, v any) error {
	return m.RunTransaction(ctx, []string{key}, func(tx *Tx) error {
		return tx.Set(key, v)
	})
}

func (m *MemoryStore) Update(ctx context.Context, key string, ops ...Op) error {
	return m.RunTransaction(ctx, []string{key}, func(tx *Tx) error {
		return tx.Update(key, ops...)
	})
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	return m.RunTransaction(ctx, []string{key}, func(tx *Tx) error {
		return tx.Delete(key)
	})
}

func (m *MemoryStore) RunTransaction(ctx context.Context, keys []string, fn func(tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	reads := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if data, ok := m.docs[k]; ok {
			reads[k] = data
		}
	}
	tx := newTx(keys, reads)
	if err := fn(tx); err != nil {
		return err
	}
	for _, c := range tx.changes() {
		if c.Exists {
			m.docs[c.Key] = c.Data
		} else {
			delete(m.docs, c.Key)
		}
		for f := range m.subs[c.Key] {
			f.push(c)
		}
	}
	return nil
}

func (m *MemoryStore) Subscribe(ctx context.Context, key string) (*Subscription, error) {
	f := newFeed()

	m.mu.Lock()
	if m.subs[key] == nil {
		m.subs[key] = make(map[*feed]struct{})
	}
	m.subs[key][f] = struct{}{}
	data, ok := m.docs[key]
	f.push(Snapshot{Key: key, Exists: ok, Data: data})
	m.mu.Unlock()

	return newSubscription(ctx, f, func() {
		m.mu.Lock()
		delete(m.subs[key], f)
		if len(m.subs[key]) == 0 {
			delete(m.subs, key)
		}
		m.mu.Unlock()
	}), nil
}
