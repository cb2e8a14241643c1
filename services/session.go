package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/DIPEDEV/batalla-numeros/models"
	"github.com/DIPEDEV/batalla-numeros/store"
)

// Broadcaster fans a message out to every client in a match room.
type Broadcaster interface {
	BroadcastToMatch(code string, messageType string, payload interface{})
}

// MatchRunner starts host loops for a live match.
type MatchRunner interface {
	Ensure(code string)
}

// Orchestrator keeps one store subscription per watched match, relays each
// snapshot to the room and pushes a countdown derived from the
// authoritative end time.
type Orchestrator struct {
	store   store.Store
	out     Broadcaster
	runner  MatchRunner
	now     func() time.Time
	tick    time.Duration
	retry   time.Duration
	mu      sync.Mutex
	watches map[string]context.CancelFunc
}

func NewOrchestrator(st store.Store, out Broadcaster, runner MatchRunner) *Orchestrator {
	return &Orchestrator{
		store:   st,
		out:     out,
		runner:  runner,
		now:     time.Now,
		tick:    time.Second,
		retry:   2 * time.Second,
		watches: make(map[string]context.CancelFunc),
	}
}

type TimerUpdate struct {
	RemainingSeconds int   `json:"remaining_seconds"`
	EndTime          int64 `json:"end_time"`
}

// timerUpdate is only defined while playing with a known end time; without
// one the clients get nothing rather than a guess.
func timerUpdate(status models.MatchStatus, endTime int64, now time.Time) (TimerUpdate, bool) {
	if status != models.StatusPlaying || endTime == 0 {
		return TimerUpdate{}, false
	}
	remaining := max(0, (endTime-now.UnixMilli())/1000)
	return TimerUpdate{RemainingSeconds: int(remaining), EndTime: endTime}, true
}

func (o *Orchestrator) Watch(code string) {
	code = NormalizeCode(code)
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.watches[code]; ok {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	o.watches[code] = cancel
	go o.watch(ctx, code)
}

func (o *Orchestrator) Unwatch(code string) {
	code = NormalizeCode(code)
	o.mu.Lock()
	defer o.mu.Unlock()
	if cancel, ok := o.watches[code]; ok {
		cancel()
		delete(o.watches, code)
	}
}

func (o *Orchestrator) Watching(code string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.watches[NormalizeCode(code)]
	return ok
}

// watch re-subscribes whenever the subscription drops until the room is
// unwatched.
func (o *Orchestrator) watch(ctx context.Context, code string) {
	for {
		sub, err := o.store.Subscribe(ctx, MatchKey(code))
		if err != nil {
			log.Printf("Failed to subscribe to match %s: %v", code, err)
		} else {
			o.follow(ctx, code, sub)
			sub.Close()
		}
		if ctx.Err() != nil {
			return
		}
		log.Printf("Subscription to match %s dropped, retrying in %v", code, o.retry)
		select {
		case <-ctx.Done():
			return
		case <-time.After(o.retry):
		}
	}
}

func (o *Orchestrator) follow(ctx context.Context, code string, sub *store.Subscription) {
	ticker := time.NewTicker(o.tick)
	defer ticker.Stop()

	var (
		status  models.MatchStatus
		endTime int64
	)
	for {
		select {
		case <-ctx.Done():
			return

		case snap, ok := <-sub.C:
			if !ok {
				return
			}
			if !snap.Exists {
				status, endTime = "", 0
				o.out.BroadcastToMatch(code, "match_deleted", map[string]interface{}{"code": code})
				continue
			}
			var m models.Match
			if err := snap.Decode(&m); err != nil {
				log.Printf("Bad snapshot for match %s: %v", code, err)
				continue
			}
			status, endTime = m.Status, m.EndTime
			o.out.BroadcastToMatch(code, "match_state", &m)
			if live(m.Status) && o.runner != nil {
				o.runner.Ensure(code)
			}

		case <-ticker.C:
			if update, ok := timerUpdate(status, endTime, o.now()); ok {
				o.out.BroadcastToMatch(code, "timer_update", update)
			}
		}
	}
}
