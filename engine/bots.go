package engine

import (
	"time"

	"github.com/DIPEDEV/batalla-numeros/models"
)

// BotProfile describes how a simulated player behaves.
type BotProfile struct {
	Accuracy     float64
	MinDelay     time.Duration
	MaxDelay     time.Duration
	ReactionTime time.Duration
}

var botProfiles = map[models.BotDifficulty]BotProfile{
	models.BotEasy:   {Accuracy: 0.60, MinDelay: 3 * time.Second, MaxDelay: 6 * time.Second, ReactionTime: 4 * time.Second},
	models.BotMedium: {Accuracy: 0.75, MinDelay: 2 * time.Second, MaxDelay: 4 * time.Second, ReactionTime: 2500 * time.Millisecond},
	models.BotHard:   {Accuracy: 0.88, MinDelay: 1200 * time.Millisecond, MaxDelay: 2500 * time.Millisecond, ReactionTime: 1500 * time.Millisecond},
	models.BotExpert: {Accuracy: 0.96, MinDelay: 700 * time.Millisecond, MaxDelay: 1500 * time.Millisecond, ReactionTime: 800 * time.Millisecond},
}

func IsBotDifficulty(d models.BotDifficulty) bool {
	_, ok := botProfiles[d]
	return ok
}

// Profile returns the profile for d, medium when unknown.
func Profile(d models.BotDifficulty) BotProfile {
	if p, ok := botProfiles[d]; ok {
		return p
	}
	return botProfiles[models.BotMedium]
}

// NextDelay draws the wait before the bot's next answer.
func (p BotProfile) NextDelay(rng Rand) time.Duration {
	span := p.MaxDelay - p.MinDelay
	if span <= 0 {
		return p.MinDelay
	}
	return p.MinDelay + time.Duration(rng.Float64()*float64(span))
}

// Answers draws whether the bot answers correctly.
func (p BotProfile) Answers(rng Rand) bool {
	return rng.Float64() < p.Accuracy
}

// Delta is the score change of a bot answer: the potential at the bot's
// reaction time, halved and negated on a miss. No combo applies.
func (p BotProfile) Delta(selector string, correct bool) int {
	potential := Potential(p.ReactionTime, MaxTime(selector))
	if correct {
		return potential
	}
	return -(potential / 2)
}
