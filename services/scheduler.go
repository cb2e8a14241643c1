package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/DIPEDEV/batalla-numeros/models"
	"github.com/DIPEDEV/batalla-numeros/store"
)

// SchedulerConfig sets the lease and tick periods of the host loops.
type SchedulerConfig struct {
	LockTTL     time.Duration
	FastTick    time.Duration // launch countdown and bots
	TimeoutTick time.Duration
	SlowTick    time.Duration // chaos, end check and lease refresh
}

var DefaultSchedulerConfig = SchedulerConfig{
	LockTTL:     5 * time.Second,
	FastTick:    200 * time.Millisecond,
	TimeoutTick: 500 * time.Millisecond,
	SlowTick:    time.Second,
}

// Scheduler runs the host loops of every live match this process knows
// about. A runner only ticks while it holds the match's "host:<CODE>"
// lease, so across all processes exactly one runner drives a match.
type Scheduler struct {
	matches *MatchService
	locker  store.Locker
	owner   string
	cfg     SchedulerConfig

	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	runners map[string]struct{}
	wg      sync.WaitGroup
}

func NewScheduler(matches *MatchService, locker store.Locker, owner string, cfg SchedulerConfig) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		matches: matches,
		locker:  locker,
		owner:   owner,
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
		runners: make(map[string]struct{}),
	}
}

// Ensure starts a runner for code unless one is already running here.
func (s *Scheduler) Ensure(code string) {
	code = NormalizeCode(code)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return
	}
	if _, ok := s.runners[code]; ok {
		return
	}
	s.runners[code] = struct{}{}
	s.wg.Add(1)
	go s.run(code)
}

func (s *Scheduler) Running(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.runners[NormalizeCode(code)]
	return ok
}

// Stop ends every runner and releases held leases.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func lockName(code string) string {
	return "host:" + code
}

func live(status models.MatchStatus) bool {
	return status == models.StatusLaunching || status == models.StatusPlaying
}

// stillLive reports whether the match still needs host loops.
func (s *Scheduler) stillLive(code string) bool {
	m, err := s.matches.GetMatch(s.ctx, code)
	if errors.Is(err, ErrMatchNotFound) {
		return false
	}
	if err != nil {
		log.Printf("Scheduler could not read match %s: %v", code, err)
		return true
	}
	return live(m.Status)
}

func (s *Scheduler) run(code string) {
	defer func() {
		s.mu.Lock()
		delete(s.runners, code)
		s.mu.Unlock()
		s.wg.Done()
	}()

	wait := time.NewTicker(s.cfg.SlowTick)
	defer wait.Stop()
	for {
		if !s.stillLive(code) {
			return
		}
		ok, err := s.locker.TryLock(s.ctx, lockName(code), s.owner, s.cfg.LockTTL)
		if err != nil {
			log.Printf("Scheduler lock error for match %s: %v", code, err)
		}
		if ok {
			log.Printf("Instance %s is now host for match %s", s.owner, code)
			done := s.drive(code)
			s.locker.Unlock(context.Background(), lockName(code), s.owner)
			if done {
				return
			}
		}
		select {
		case <-s.ctx.Done():
			return
		case <-wait.C:
		}
	}
}

// drive ticks the match while the lease holds. It returns true when the
// match no longer needs a host, false when the lease was lost.
func (s *Scheduler) drive(code string) bool {
	fast := time.NewTicker(s.cfg.FastTick)
	timeouts := time.NewTicker(s.cfg.TimeoutTick)
	slow := time.NewTicker(s.cfg.SlowTick)
	defer fast.Stop()
	defer timeouts.Stop()
	defer slow.Stop()

	logErr := func(what string, err error) {
		if err != nil && !errors.Is(err, ErrMatchNotFound) && !errors.Is(err, context.Canceled) {
			log.Printf("Host %s failed for match %s: %v", what, code, err)
		}
	}

	for {
		select {
		case <-s.ctx.Done():
			return true

		case <-fast.C:
			_, err := s.matches.BeginPlaying(s.ctx, code)
			logErr("launch", err)
			_, err = s.matches.TickBots(s.ctx, code)
			logErr("bots", err)

		case <-timeouts.C:
			_, err := s.matches.TickTimeouts(s.ctx, code)
			logErr("timeouts", err)

		case <-slow.C:
			held, err := s.locker.Refresh(s.ctx, lockName(code), s.owner, s.cfg.LockTTL)
			if err != nil || !held {
				log.Printf("Instance %s lost host lease for match %s", s.owner, code)
				return false
			}
			_, err = s.matches.TickChaos(s.ctx, code)
			logErr("chaos", err)
			_, err = s.matches.TickEndCheck(s.ctx, code)
			logErr("end check", err)
			if !s.stillLive(code) {
				return true
			}
		}
	}
}
