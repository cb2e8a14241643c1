package store

import (
	"encoding/json"
	"fmt"
)

// Tx stages reads and writes over the keys declared for one transaction.
type Tx struct {
	docs map[string]*txDoc
}

type txDoc struct {
	data   []byte
	exists bool
	dirty  bool
}

func newTx(keys []string, reads map[string][]byte) *Tx {
	tx := &Tx{docs: make(map[string]*txDoc, len(keys))}
	for _, k := range keys {
		data, ok := reads[k]
		tx.docs[k] = &txDoc{data: data, exists: ok}
	}
	return tx
}

func (tx *Tx) doc(key string) (*txDoc, error) {
	d, ok := tx.docs[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrUndeclaredKey)
	}
	return d, nil
}

func (tx *Tx) Exists(key string) bool {
	d, err := tx.doc(key)
	return err == nil && d.exists
}

// Get decodes the transaction's view of key, including staged writes.
func (tx *Tx) Get(key string, out any) error {
	d, err := tx.doc(key)
	if err != nil {
		return err
	}
	if !d.exists {
		return ErrNotFound
	}
	return json.Unmarshal(d.data, out)
}

func (tx *Tx) Set(key string, v any) error {
	d, err := tx.doc(key)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := decodeObject(data); err != nil {
		return err
	}
	d.data, d.exists, d.dirty = data, true, true
	return nil
}

func (tx *Tx) Update(key string, ops ...Op) error {
	d, err := tx.doc(key)
	if err != nil {
		return err
	}
	if !d.exists {
		return ErrNotFound
	}
	data, err := ApplyOps(d.data, ops...)
	if err != nil {
		return err
	}
	d.data, d.dirty = data, true
	return nil
}

func (tx *Tx) Delete(key string) error {
	d, err := tx.doc(key)
	if err != nil {
		return err
	}
	if d.exists {
		d.data, d.exists, d.dirty = nil, false, true
	}
	return nil
}

// changes returns the staged writes as snapshots; a deletion has Exists false.
func (tx *Tx) changes() []Snapshot {
	var out []Snapshot
	for k, d := range tx.docs {
		if d.dirty {
			out = append(out, Snapshot{Key: k, Exists: d.exists, Data: d.data})
		}
	}
	return out
}
