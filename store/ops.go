package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type opKind int

const (
	opSet opKind = iota
	opIncrement
	opArrayUnion
	opArrayRemove
	opDelete
)

// Op is one field-level mutation addressed by a dot path such as
// "players.abc.score".
type Op struct {
	kind   opKind
	path   string
	value  any
	values []any
	delta  int64
}

func SetField(path string, v any) Op {
	return Op{kind: opSet, path: path, value: v}
}

// Increment adds n to a numeric field, treating a missing field as 0.
func Increment(path string, n int64) Op {
	return Op{kind: opIncrement, path: path, delta: n}
}

// ArrayUnion appends each value not already present in the array.
func ArrayUnion(path string, vals ...any) Op {
	return Op{kind: opArrayUnion, path: path, values: vals}
}

// ArrayRemove drops every element equal to one of vals.
func ArrayRemove(path string, vals ...any) Op {
	return Op{kind: opArrayRemove, path: path, values: vals}
}

func DeleteField(path string) Op {
	return Op{kind: opDelete, path: path}
}

func (o Op) String() string {
	names := [...]string{"set", "increment", "arrayUnion", "arrayRemove", "delete"}
	return names[o.kind] + " " + o.path
}

// ApplyOps returns raw with ops applied in order.
func ApplyOps(raw []byte, ops ...Op) ([]byte, error) {
	doc, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	for _, op := range ops {
		if err := applyOp(doc, op); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return json.Marshal(doc)
}

func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return doc, nil
}

// normalize turns a Go value into the generic form documents decode to, so
// array membership can compare like with like.
func normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func applyOp(doc map[string]any, op Op) error {
	segs := strings.Split(op.path, ".")
	for _, s := range segs {
		if s == "" {
			return fmt.Errorf("invalid path %q", op.path)
		}
	}
	create := op.kind != opDelete && op.kind != opArrayRemove
	parent, err := walk(doc, segs[:len(segs)-1], create)
	if err != nil || parent == nil {
		return err
	}
	last := segs[len(segs)-1]

	switch op.kind {
	case opSet:
		v, err := normalize(op.value)
		if err != nil {
			return err
		}
		parent[last] = v
	case opDelete:
		delete(parent, last)
	case opIncrement:
		next, err := increment(parent[last], op.delta)
		if err != nil {
			return err
		}
		parent[last] = next
	case opArrayUnion, opArrayRemove:
		arr, ok := parent[last].([]any)
		if !ok && parent[last] != nil {
			return ErrTypeMismatch
		}
		if op.kind == opArrayRemove && arr == nil {
			return nil
		}
		vals := make([]any, 0, len(op.values))
		for _, v := range op.values {
			n, err := normalize(v)
			if err != nil {
				return err
			}
			vals = append(vals, n)
		}
		if op.kind == opArrayUnion {
			parent[last] = union(arr, vals)
		} else {
			parent[last] = remove(arr, vals)
		}
	}
	return nil
}

// walk descends to the map at segs. Missing maps are created when create is
// set, otherwise walk returns nil with no error.
func walk(doc map[string]any, segs []string, create bool) (map[string]any, error) {
	cur := doc
	for _, s := range segs {
		next, exists := cur[s]
		if !exists || next == nil {
			if !create {
				return nil, nil
			}
			m := make(map[string]any)
			cur[s] = m
			cur = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return nil, ErrTypeMismatch
		}
		cur = m
	}
	return cur, nil
}

func increment(cur any, delta int64) (any, error) {
	if cur == nil {
		return json.Number(strconv.FormatInt(delta, 10)), nil
	}
	n, ok := cur.(json.Number)
	if !ok {
		return nil, ErrTypeMismatch
	}
	if i, err := n.Int64(); err == nil {
		return json.Number(strconv.FormatInt(i+delta, 10)), nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, ErrTypeMismatch
	}
	return json.Number(strconv.FormatFloat(f+float64(delta), 'f', -1, 64)), nil
}

func union(arr, vals []any) []any {
	out := append([]any{}, arr...)
	for _, v := range vals {
		if indexOf(out, v) < 0 {
			out = append(out, v)
		}
	}
	return out
}

func remove(arr, vals []any) []any {
	out := make([]any, 0, len(arr))
	for _, el := range arr {
		if indexOf(vals, el) < 0 {
			out = append(out, el)
		}
	}
	return out
}

func indexOf(arr []any, v any) int {
	want, _ := json.Marshal(v)
	for i, el := range arr {
		got, _ := json.Marshal(el)
		if bytes.Equal(got, want) {
			return i
		}
	}
	return -1
}
