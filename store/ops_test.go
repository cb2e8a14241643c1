package store

import (
	"encoding/json"
	"errors"
	"testing"
)

func applyJSON(t *testing.T, doc string, ops ...Op) map[string]any {
	t.Helper()
	out, err := ApplyOps([]byte(doc), ops...)
	if err != nil {
		t.Fatalf("ApplyOps: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return m
}

func TestSetFieldCreatesIntermediateMaps(t *testing.T) {
	m := applyJSON(t, `{}`, SetField("players.p1.name", "Ana"))
	p1 := m["players"].(map[string]any)["p1"].(map[string]any)
	if p1["name"] != "Ana" {
		t.Fatalf("unexpected doc %v", m)
	}
}

func TestIncrement(t *testing.T) {
	m := applyJSON(t, `{"players":{"p1":{"score":10}}}`,
		Increment("players.p1.score", -4),
		Increment("players.p1.combo", 1),
	)
	p1 := m["players"].(map[string]any)["p1"].(map[string]any)
	if p1["score"].(float64) != 6 || p1["combo"].(float64) != 1 {
		t.Fatalf("unexpected player %v", p1)
	}
}

func TestArrayUnionAndRemove(t *testing.T) {
	m := applyJSON(t, `{"playerList":["a","b"]}`,
		ArrayUnion("playerList", "b", "c"),
		ArrayRemove("playerList", "a"),
	)
	list := m["playerList"].([]any)
	if len(list) != 2 || list[0] != "b" || list[1] != "c" {
		t.Fatalf("unexpected list %v", list)
	}

	m = applyJSON(t, `{"effects":[{"id":"x","n":1}]}`,
		ArrayUnion("effects", map[string]any{"n": 1, "id": "x"}),
	)
	if len(m["effects"].([]any)) != 1 {
		t.Fatalf("union should compare objects by value: %v", m["effects"])
	}
}

func TestDeleteField(t *testing.T) {
	m := applyJSON(t, `{"activeEvent":{"type":"BOMB"},"code":"X"}`,
		DeleteField("activeEvent"),
		DeleteField("missing.deep.path"),
	)
	if _, ok := m["activeEvent"]; ok {
		t.Fatalf("activeEvent not deleted: %v", m)
	}
	if _, ok := m["missing"]; ok {
		t.Fatalf("delete should not create parents: %v", m)
	}
}

func TestTypeMismatch(t *testing.T) {
	if _, err := ApplyOps([]byte(`{"code":"X"}`), Increment("code", 1)); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	if _, err := ApplyOps([]byte(`{"code":"X"}`), SetField("code.inner", 1)); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	if _, err := ApplyOps([]byte(`[1,2]`), SetField("a", 1)); !errors.Is(err, ErrNotObject) {
		t.Fatalf("expected ErrNotObject, got %v", err)
	}
}
