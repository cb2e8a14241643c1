package services

import (
	"context"
	"errors"
	"log"

	"github.com/DIPEDEV/batalla-numeros/engine"
	"github.com/DIPEDEV/batalla-numeros/models"
	"github.com/DIPEDEV/batalla-numeros/store"
)

var errNotDue = errors.New("match end not reached")

// The Tick* methods are the host-only periodic work. Each is one
// transaction and safe to repeat: a tick that finds nothing to do writes
// nothing.

// TickTimeouts penalizes every human competitor whose question outlived its
// budget and hands them a fresh one. The fresh generatedAt keeps the same
// question from being penalized twice.
func (s *MatchService) TickTimeouts(ctx context.Context, code string) (int, error) {
	var penalized []string
	err := s.mutate(ctx, code, func(m *models.Match) ([]store.Op, error) {
		penalized = penalized[:0]
		if m.Status != models.StatusPlaying {
			return nil, nil
		}
		now := s.now()
		ms := now.UnixMilli()
		if m.EndTime > 0 && ms >= m.EndTime {
			return nil, nil
		}
		k := kindOf(m)
		penalty := engine.PenaltyFor(m.ActiveChaos(ms))

		var ops []store.Op
		sharedReplaced := false
		for _, id := range m.Competitors() {
			p := m.Players[id]
			if p.IsBot {
				continue
			}
			if !engine.TimedOut(m.Config.Range, k.question(m, id), now) {
				continue
			}
			path := k.roundPath(id)
			if path == "currentRound" && sharedReplaced {
				continue
			}
			q, err := s.newRound(m.Config.Range, now)
			if err != nil {
				return nil, err
			}
			sharedReplaced = sharedReplaced || path == "currentRound"
			ops = append(ops,
				store.SetField(playerPath(id, "score"), engine.ApplyDelta(p.Score, -penalty)),
				store.SetField(playerPath(id, "combo"), 0),
				store.SetField(path, q),
			)
			penalized = append(penalized, id)
		}
		return ops, nil
	})
	if err != nil {
		return 0, err
	}
	if len(penalized) > 0 {
		log.Printf("Timeout penalty applied to %v in match %s", penalized, NormalizeCode(code))
	}
	return len(penalized), nil
}

// TickChaos resolves an expired chaos event or triggers the next one once
// the cooldown has passed. It returns the event type that changed, if any.
func (s *MatchService) TickChaos(ctx context.Context, code string) (models.ChaosType, error) {
	var (
		changed  models.ChaosType
		resolved bool
	)
	err := s.mutate(ctx, code, func(m *models.Match) ([]store.Op, error) {
		changed, resolved = "", false
		if m.Status != models.StatusPlaying || !kindOf(m).chaosEnabled(m) {
			return nil, nil
		}
		now := s.now()
		ms := now.UnixMilli()

		if ev := m.ActiveEvent; ev != nil {
			if ev.ExpiresAt > ms {
				return nil, nil
			}
			ops := []store.Op{
				store.DeleteField("activeEvent"),
				store.SetField("nextChaosAt", now.Add(engine.ChaosCooldown(m.Config)).UnixMilli()),
			}
			if ev.Type == models.ChaosBomb {
				if holder, ok := m.Players[ev.Holder]; ok {
					ops = append(ops, store.SetField(playerPath(ev.Holder, "score"), holder.Score/2))
				}
			}
			changed, resolved = ev.Type, true
			return ops, nil
		}

		if ms < m.NextChaosAt {
			return nil, nil
		}
		t, d := engine.PickChaos(s.rng, m.Config.HotPotato)
		ev := models.ChaosEvent{Type: t, ExpiresAt: now.Add(d).UnixMilli()}
		if t == models.ChaosBomb {
			holder, ok := engine.PickHolder(m.Competitors(), s.rng)
			if !ok {
				return []store.Op{store.SetField("nextChaosAt", now.Add(engine.ChaosCooldown(m.Config)).UnixMilli())}, nil
			}
			ev.Holder = holder
		}
		changed = t
		return []store.Op{store.SetField("activeEvent", ev)}, nil
	})
	if err != nil {
		return "", err
	}
	switch {
	case resolved:
		log.Printf("Chaos event %s resolved in match %s", changed, NormalizeCode(code))
	case changed != "":
		log.Printf("Chaos event %s triggered in match %s", changed, NormalizeCode(code))
	}
	return changed, nil
}

// TickBots lets every bot whose next action time has come answer once.
func (s *MatchService) TickBots(ctx context.Context, code string) (int, error) {
	var acted int
	err := s.mutate(ctx, code, func(m *models.Match) ([]store.Op, error) {
		acted = 0
		if m.Status != models.StatusPlaying || !kindOf(m).social() {
			return nil, nil
		}
		now := s.now()
		ms := now.UnixMilli()
		if m.EndTime > 0 && ms >= m.EndTime {
			return nil, nil
		}
		chaos := m.ActiveChaos(ms)

		var ops []store.Op
		for _, id := range m.Competitors() {
			p := m.Players[id]
			if !p.IsBot || ms < p.NextActionTime {
				continue
			}
			profile := engine.Profile(p.Difficulty)
			next := now.Add(profile.NextDelay(s.rng)).UnixMilli()
			ops = append(ops, store.SetField(playerPath(id, "nextActionTime"), next))
			if p.NextActionTime == 0 {
				continue
			}

			correct := profile.Answers(s.rng)
			delta := profile.Delta(m.Config.Range, correct)
			ops = append(ops, store.SetField(playerPath(id, "score"), engine.ApplyDelta(p.Score, delta)))
			if correct {
				q, err := s.newRound(m.Config.Range, now)
				if err != nil {
					return nil, err
				}
				ops = append(ops, store.SetField(playerPath(id, "currentQuestion"), q))
				if chaos == models.ChaosBomb && m.ActiveEvent.Holder == id {
					if holder, ok := engine.PassBomb(m.Competitors(), id, s.rng); ok {
						ops = append(ops, store.SetField("activeEvent.holder", holder))
					}
				}
			}
			acted++
		}
		return ops, nil
	})
	if err != nil {
		return 0, err
	}
	return acted, nil
}

// TickEndCheck finishes the match once its authoritative end time passes.
func (s *MatchService) TickEndCheck(ctx context.Context, code string) (bool, error) {
	finished, err := s.finishIf(ctx, code, func(m *models.Match) error {
		if m.Status == models.StatusPlaying && (m.EndTime == 0 || s.now().UnixMilli() < m.EndTime) {
			return errNotDue
		}
		return nil
	})
	if errors.Is(err, errNotDue) {
		return false, nil
	}
	return finished, err
}
