package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type doc struct {
	Status string         `json:"status"`
	Score  int            `json:"score"`
	Tags   []string       `json:"tags,omitempty"`
	Extra  map[string]int `json:"extra,omitempty"`
}

func next(t *testing.T, sub *Subscription) Snapshot {
	t.Helper()
	select {
	case s, ok := <-sub.C:
		if !ok {
			t.Fatalf("subscription closed")
		}
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}
	return Snapshot{}
}

// storeContract runs the behaviour every Store must share.
func storeContract(t *testing.T, s Store) {
	ctx := context.Background()

	var d doc
	if err := s.Get(ctx, "match:A", &d); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Update(ctx, "match:A", Increment("score", 1)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update of missing doc: expected ErrNotFound, got %v", err)
	}

	if err := s.Set(ctx, "match:A", doc{Status: "lobby"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Update(ctx, "match:A", Increment("score", 5), ArrayUnion("tags", "x"), SetField("extra.k", 2)); err != nil {
		t.Fatal(err)
	}
	if err := s.Get(ctx, "match:A", &d); err != nil {
		t.Fatal(err)
	}
	if d.Score != 5 || len(d.Tags) != 1 || d.Extra["k"] != 2 {
		t.Fatalf("unexpected doc %+v", d)
	}

	// An aborted transaction writes nothing.
	abort := errors.New("abort")
	err := s.RunTransaction(ctx, []string{"match:A", "match:B"}, func(tx *Tx) error {
		if err := tx.Set("match:B", doc{Status: "new"}); err != nil {
			return err
		}
		if err := tx.Update("match:A", SetField("status", "playing")); err != nil {
			return err
		}
		return abort
	})
	if !errors.Is(err, abort) {
		t.Fatalf("expected abort, got %v", err)
	}
	if err := s.Get(ctx, "match:B", &d); !errors.Is(err, ErrNotFound) {
		t.Fatalf("aborted create leaked: %v", err)
	}
	s.Get(ctx, "match:A", &d)
	if d.Status != "lobby" {
		t.Fatalf("aborted update leaked: %+v", d)
	}

	// A committed transaction writes all keys and reads its own writes.
	err = s.RunTransaction(ctx, []string{"match:A", "match:B"}, func(tx *Tx) error {
		if tx.Exists("match:B") {
			return errors.New("B should not exist yet")
		}
		if err := tx.Set("match:B", doc{Status: "new"}); err != nil {
			return err
		}
		var b doc
		if err := tx.Get("match:B", &b); err != nil || b.Status != "new" {
			return errors.New("read-your-writes failed")
		}
		return tx.Delete("match:A")
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Get(ctx, "match:A", &d); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected A deleted, got %v", err)
	}
	if err := s.Get(ctx, "match:B", &d); err != nil || d.Status != "new" {
		t.Fatalf("expected B created, got %+v %v", d, err)
	}

	err = s.RunTransaction(ctx, []string{"match:B"}, func(tx *Tx) error {
		return tx.Set("match:C", doc{})
	})
	if !errors.Is(err, ErrUndeclaredKey) {
		t.Fatalf("expected ErrUndeclaredKey, got %v", err)
	}
}

func subscriptionContract(t *testing.T, s Store) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := s.Subscribe(ctx, "match:S")
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	if snap := next(t, sub); snap.Exists {
		t.Fatalf("expected missing snapshot first, got %+v", snap)
	}

	if err := s.Set(ctx, "match:S", doc{Status: "lobby"}); err != nil {
		t.Fatal(err)
	}
	var d doc
	if err := next(t, sub).Decode(&d); err != nil || d.Status != "lobby" {
		t.Fatalf("unexpected snapshot %+v %v", d, err)
	}

	if err := s.Update(ctx, "match:S", SetField("status", "playing")); err != nil {
		t.Fatal(err)
	}
	if err := next(t, sub).Decode(&d); err != nil || d.Status != "playing" {
		t.Fatalf("unexpected snapshot %+v %v", d, err)
	}

	if err := s.Delete(ctx, "match:S"); err != nil {
		t.Fatal(err)
	}
	if snap := next(t, sub); snap.Exists {
		t.Fatalf("expected deletion snapshot, got %+v", snap)
	}

	cancel()
	select {
	case _, ok := <-sub.C:
		if ok {
			// drain at most one pending snapshot
			<-sub.C
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("subscription not closed on cancel")
	}
}

func TestMemoryStoreContract(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestMemoryStoreSubscription(t *testing.T) {
	subscriptionContract(t, NewMemoryStore())
}

func TestMemorySubscriptionCoalesces(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Set(ctx, "k", doc{})
	sub, _ := s.Subscribe(ctx, "k")
	defer sub.Close()

	for i := 0; i < 5; i++ {
		s.Update(ctx, "k", Increment("score", 1))
	}
	var d doc
	next(t, sub).Decode(&d)
	if d.Score != 5 {
		t.Fatalf("expected only the latest snapshot, got score %d", d.Score)
	}
}

func TestMemoryConcurrentIncrements(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Set(ctx, "k", doc{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Update(ctx, "k", Increment("score", 2)); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	var d doc
	s.Get(ctx, "k", &d)
	if d.Score != 100 {
		t.Fatalf("expected 100, got %d", d.Score)
	}
}

func TestMemoryLocker(t *testing.T) {
	l := NewMemoryLocker()
	now := time.Unix(0, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	if ok, _ := l.TryLock(ctx, "host:A", "n1", 5*time.Second); !ok {
		t.Fatalf("first lock should succeed")
	}
	if ok, _ := l.TryLock(ctx, "host:A", "n2", 5*time.Second); ok {
		t.Fatalf("second owner should not get a held lock")
	}
	if ok, _ := l.Refresh(ctx, "host:A", "n2", 5*time.Second); ok {
		t.Fatalf("non-owner refresh should fail")
	}
	now = now.Add(4 * time.Second)
	if ok, _ := l.Refresh(ctx, "host:A", "n1", 5*time.Second); !ok {
		t.Fatalf("owner refresh should succeed")
	}
	now = now.Add(6 * time.Second)
	if ok, _ := l.TryLock(ctx, "host:A", "n2", 5*time.Second); !ok {
		t.Fatalf("expired lock should be takeable")
	}
	l.Unlock(ctx, "host:A", "n1")
	if ok, _ := l.TryLock(ctx, "host:A", "n1", 5*time.Second); ok {
		t.Fatalf("unlock by non-owner must not release")
	}
}
