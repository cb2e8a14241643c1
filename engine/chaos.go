package engine

import (
	"time"

	"github.com/DIPEDEV/batalla-numeros/models"
)

var ChaosTypes = []models.ChaosType{
	models.ChaosMirror,
	models.ChaosRain,
	models.ChaosDouble,
	models.ChaosBlackout,
	models.ChaosGravity,
	models.ChaosGlitch,
	models.ChaosMidas,
	models.ChaosBomb,
}

const (
	ChaosDuration     = 10 * time.Second
	BombDuration      = 15 * time.Second
	HotPotatoCooldown = 2 * time.Second
)

// PickChaos draws the next event type and its lifetime. Hot-potato matches
// only ever get the bomb.
func PickChaos(rng Rand, hotPotato bool) (models.ChaosType, time.Duration) {
	t := models.ChaosBomb
	if !hotPotato {
		t = ChaosTypes[rng.Intn(len(ChaosTypes))]
	}
	if t == models.ChaosBomb {
		return t, BombDuration
	}
	return t, ChaosDuration
}

// ChaosCooldown is the gap between an event clearing and the next one.
func ChaosCooldown(cfg models.MatchConfig) time.Duration {
	if cfg.HotPotato {
		return HotPotatoCooldown
	}
	freq := cfg.ChaosFrequency
	if freq <= 0 {
		freq = models.DefaultChaosFrequency
	}
	return time.Duration(freq) * time.Second
}

// PassBomb picks a uniformly random holder among candidates other than the
// current one.
func PassBomb(candidates []string, holder string, rng Rand) (string, bool) {
	others := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if id != holder {
			others = append(others, id)
		}
	}
	if len(others) == 0 {
		return holder, false
	}
	return others[rng.Intn(len(others))], true
}

// PickHolder picks the first holder of a new bomb.
func PickHolder(candidates []string, rng Rand) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[rng.Intn(len(candidates))], true
}
