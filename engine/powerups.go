package engine

import (
	"time"

	"github.com/DIPEDEV/batalla-numeros/models"
)

var PowerUpPool = []models.PowerUp{
	models.PowerUpInk,
	models.PowerUpFreeze,
	models.PowerUpShake,
	models.PowerUpSwap,
	models.PowerUpFlash,
	models.PowerUpShield,
	models.PowerUpBoost,
}

func RandomPowerUp(rng Rand) models.PowerUp {
	return PowerUpPool[rng.Intn(len(PowerUpPool))]
}

func EffectDuration(p models.PowerUp) time.Duration {
	switch p {
	case models.PowerUpInk:
		return 3 * time.Second
	case models.PowerUpFreeze:
		return 2 * time.Second
	case models.PowerUpShake:
		return 4 * time.Second
	case models.PowerUpSwap, models.PowerUpFlash:
		return 5 * time.Second
	case models.PowerUpShield, models.PowerUpBoost:
		return 8 * time.Second
	default:
		return 0
	}
}

func IsSelfTarget(p models.PowerUp) bool {
	return p == models.PowerUpShield || p == models.PowerUpBoost
}

func IsPowerUp(p models.PowerUp) bool {
	return EffectDuration(p) > 0
}

// SelectTarget picks who receives the attacker's power-up: the attacker for
// self effects, otherwise the highest scoring opponent (other team in team
// mode). Ties go to the earliest joiner.
func SelectTarget(m *models.Match, attacker string, p models.PowerUp) (string, bool) {
	if IsSelfTarget(p) {
		return attacker, m.HasPlayer(attacker)
	}
	self := m.Players[attacker]
	best, bestScore := "", -1
	for _, id := range m.Competitors() {
		if id == attacker {
			continue
		}
		pl := m.Players[id]
		if m.TeamMode && self != nil && self.Team != models.TeamNone && pl.Team == self.Team {
			continue
		}
		if pl.Score > bestScore {
			best, bestScore = id, pl.Score
		}
	}
	return best, best != ""
}

// LiveEffects drops effects that expired at or before now.
func LiveEffects(effects []models.Effect, now int64) []models.Effect {
	out := make([]models.Effect, 0, len(effects))
	for _, e := range effects {
		if e.ExpiresAt > now {
			out = append(out, e)
		}
	}
	return out
}
