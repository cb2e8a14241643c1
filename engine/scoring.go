package engine

import (
	"math"
	"time"

	"github.com/DIPEDEV/batalla-numeros/models"
)

const (
	MaxPotential     = 500
	MinPotential     = 100
	decaySpan        = 400
	comboStep        = 0.2
	comboCap         = 5
	PowerUpEvery     = 3
	TimeoutPenalty   = 200
	chaosDoubleScale = 2
	chaosMidasScale  = 3
	boostScale       = 2
)

// Modifiers are the effects in force for the answering player.
type Modifiers struct {
	Boost bool
	Chaos models.ChaosType
}

// Attempt is one answer submitted against a question.
type Attempt struct {
	Selector    string
	Question    *models.Question
	AnsweredAt  time.Time
	Selected    models.Answer
	ComboBefore int
	Modifiers   Modifiers
}

type Outcome struct {
	Delta        int  `json:"delta"`
	ComboAfter   int  `json:"comboAfter"`
	IsCorrect    bool `json:"isCorrect"`
	GrantPowerUp bool `json:"grantPowerUp"`
	Potential    int  `json:"potential"`
}

// Potential decays linearly from 500 at t=0 to 100 at maxTime and never
// drops below 100. Time counts in whole milliseconds.
func Potential(elapsed, maxTime time.Duration) int {
	ms := max(0, elapsed.Milliseconds())
	span := maxTime.Milliseconds()
	decay := (decaySpan*ms + span - 1) / span
	return max(MinPotential, MaxPotential-int(decay))
}

// ComboMultiplier is the combo-only multiplier, 1.2 per step up to 2.0.
func ComboMultiplier(combo int) float64 {
	return 1 + float64(min(combo, comboCap))*comboStep
}

// Score evaluates an attempt. The caller clamps the resulting score with ApplyDelta.
func Score(a Attempt) Outcome {
	elapsed := time.Duration(a.AnsweredAt.UnixMilli()-a.Question.GeneratedAt) * time.Millisecond
	potential := Potential(elapsed, MaxTime(a.Selector))

	if a.Selected != a.Question.TargetVal {
		delta := -(potential / 2)
		if a.Modifiers.Chaos == models.ChaosDouble {
			delta *= chaosDoubleScale
		}
		return Outcome{Delta: delta, ComboAfter: 0, Potential: potential}
	}

	combo := a.ComboBefore + 1
	multiplier := ComboMultiplier(combo)
	if a.Modifiers.Boost {
		multiplier *= boostScale
	}
	switch a.Modifiers.Chaos {
	case models.ChaosMidas:
		multiplier *= chaosMidasScale
	case models.ChaosDouble:
		multiplier *= chaosDoubleScale
	}
	return Outcome{
		Delta:        int(math.Round(float64(potential) * multiplier)),
		ComboAfter:   combo,
		IsCorrect:    true,
		GrantPowerUp: combo%PowerUpEvery == 0,
		Potential:    potential,
	}
}

// ApplyDelta adds delta to score, flooring the result at zero.
func ApplyDelta(score, delta int) int {
	return max(0, score+delta)
}

// TimedOut reports whether q has outlived its budget at now.
func TimedOut(selector string, q *models.Question, now time.Time) bool {
	if q == nil || q.GeneratedAt == 0 {
		return false
	}
	return now.UnixMilli()-q.GeneratedAt > MaxTime(selector).Milliseconds()
}

// PenaltyFor is the timeout penalty under the given chaos event.
func PenaltyFor(chaos models.ChaosType) int {
	if chaos == models.ChaosDouble {
		return TimeoutPenalty * chaosDoubleScale
	}
	return TimeoutPenalty
}
