package services

import (
	"testing"
	"time"

	"github.com/DIPEDEV/batalla-numeros/models"
	"github.com/DIPEDEV/batalla-numeros/store"
)

var fastTicks = SchedulerConfig{
	LockTTL:     5 * time.Second,
	FastTick:    5 * time.Millisecond,
	TimeoutTick: 5 * time.Millisecond,
	SlowTick:    10 * time.Millisecond,
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSchedulerDrivesLaunchWhileHoldingLease(t *testing.T) {
	f := newFixture(t)
	code := f.lobby(t, "p1")
	if err := f.svc.StartMatch(ctx, code, "host"); err != nil {
		t.Fatalf("StartMatch: %v", err)
	}
	f.clock.Advance(LaunchDelay)

	locker := store.NewMemoryLocker()
	sched := NewScheduler(f.svc, locker, "node-a", fastTicks)
	sched.Ensure(code)
	sched.Ensure(code)

	waitFor(t, "match to start playing", func() bool {
		m, err := f.svc.GetMatch(ctx, code)
		return err == nil && m.Status == models.StatusPlaying
	})
	if ok, _ := locker.TryLock(ctx, lockName(code), "node-b", time.Second); ok {
		t.Fatalf("second node took the lease of a running host")
	}

	sched.Stop()
	if sched.Running(code) {
		t.Fatalf("runner still registered after Stop")
	}
	if ok, _ := locker.TryLock(ctx, lockName(code), "node-b", time.Second); !ok {
		t.Fatalf("lease not released on Stop")
	}
}

func TestSchedulerExitsWhenMatchFinishes(t *testing.T) {
	f := newFixture(t)
	code := f.lobby(t)
	f.play(t, code)

	sched := NewScheduler(f.svc, store.NewMemoryLocker(), "node-a", fastTicks)
	defer sched.Stop()
	sched.Ensure(code)
	if !sched.Running(code) {
		t.Fatalf("runner not started")
	}

	f.clock.Advance(time.Duration(models.DefaultDuration) * time.Minute)
	waitFor(t, "runner to exit", func() bool { return !sched.Running(code) })

	if m := f.match(t, code); m.Status != models.StatusFinished {
		t.Fatalf("expected finished, got %s", m.Status)
	}
	if f.rec.count() != 1 {
		t.Fatalf("expected one recorded match, got %d", f.rec.count())
	}
}

func TestSchedulerIgnoresLobbyMatch(t *testing.T) {
	f := newFixture(t)
	code := f.lobby(t)

	sched := NewScheduler(f.svc, store.NewMemoryLocker(), "node-a", fastTicks)
	defer sched.Stop()
	sched.Ensure(code)
	waitFor(t, "runner to give up", func() bool { return !sched.Running(code) })
}
