package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/DIPEDEV/batalla-numeros/models"
)

// Rand is the subset of *math/rand.Rand the generators draw from.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

var ErrRangeTooSmall = errors.New("number range has fewer than 4 values")

const (
	optionCount   = 4
	mathRetries   = 20
	maxPerturb    = 10
	mathDomainMax = 100
)

// GenerateRound builds a question for the selector. GeneratedAt is left zero
// for the caller to stamp.
func GenerateRound(selector string, rng Rand) (*models.Question, error) {
	d, err := ParseDifficulty(selector)
	if err != nil {
		return nil, err
	}
	if d.Max-d.Min+1 < optionCount {
		return nil, fmt.Errorf("%w: %s", ErrRangeTooSmall, selector)
	}
	return generate(d, d.Mode, rng), nil
}

func generate(d Difficulty, mode Mode, rng Rand) *models.Question {
	switch mode {
	case ModeMixed:
		if rng.Float64() < 0.5 {
			return wordToNumber(d, rng)
		}
		return numberToWord(d, rng)
	case ModeSum:
		return mathRound(d, '+', rng)
	case ModeSub:
		return mathRound(d, '-', rng)
	case ModeMathMixed:
		return randomMath(d, rng)
	case ModeReverseMath:
		return reverseMath(d, rng)
	case ModeCrazy:
		switch r := rng.Float64(); {
		case r < 0.4:
			return reverseMath(d, rng)
		case r < 0.7:
			return generate(d, ModeMixed, rng)
		default:
			return randomMath(d, rng)
		}
	default:
		return wordToNumber(d, rng)
	}
}

func randomMath(d Difficulty, rng Rand) *models.Question {
	if rng.Float64() < 0.5 {
		return mathRound(d, '+', rng)
	}
	return mathRound(d, '-', rng)
}

// distinctValues draws n distinct values from [min,max], the first being target.
func distinctValues(d Difficulty, target, n int, rng Rand) []int {
	vals := []int{target}
	for len(vals) < n {
		v := d.Min + rng.Intn(d.Max-d.Min+1)
		if !containsInt(vals, v) {
			vals = append(vals, v)
		}
	}
	return vals
}

func wordToNumber(d Difficulty, rng Rand) *models.Question {
	target := d.Min + rng.Intn(d.Max-d.Min+1)
	vals := distinctValues(d, target, optionCount, rng)
	options := make([]models.Answer, len(vals))
	for i, v := range vals {
		options[i] = models.NumberAnswer(v)
	}
	shuffle(options, rng)
	return &models.Question{
		TargetVal:   models.NumberAnswer(target),
		TargetText:  Display(target),
		Options:     options,
		DisplayMode: models.DisplayDefault,
	}
}

func numberToWord(d Difficulty, rng Rand) *models.Question {
	target := d.Min + rng.Intn(d.Max-d.Min+1)
	vals := distinctValues(d, target, optionCount, rng)
	options := make([]models.Answer, len(vals))
	for i, v := range vals {
		options[i] = models.TextAnswer(Display(v))
	}
	shuffle(options, rng)
	return &models.Question{
		TargetVal:   models.TextAnswer(Display(target)),
		TargetText:  strconv.Itoa(target),
		Options:     options,
		DisplayMode: models.DisplayDefault,
	}
}

func mathRound(d Difficulty, op byte, rng Rand) *models.Question {
	var a, b, result int
	for attempt := 0; attempt < mathRetries; attempt++ {
		a, b = rng.Intn(d.Max+1), rng.Intn(d.Max+1)
		if op == '-' && b > a {
			a, b = b, a
		}
		result = apply(a, op, b)
		if result >= d.Min && result <= d.Max {
			break
		}
	}
	if result < d.Min || result > d.Max {
		a, b = d.Min+rng.Intn(d.Max-d.Min+1), 0
		result = a
	}

	vals := []int{result}
	for len(vals) < optionCount {
		v := clamp(result+perturbation(rng), 0, mathDomainMax)
		if !containsInt(vals, v) {
			vals = append(vals, v)
		}
	}
	options := make([]models.Answer, len(vals))
	for i, v := range vals {
		options[i] = models.NumberAnswer(v)
	}
	shuffle(options, rng)
	return &models.Question{
		TargetVal:   models.NumberAnswer(result),
		TargetText:  expressionText(a, op, b),
		Options:     options,
		DisplayMode: models.DisplayMath,
	}
}

func reverseMath(d Difficulty, rng Rand) *models.Question {
	target := clamp(d.Min+rng.Intn(d.Max-d.Min+1), 0, mathDomainMax)
	correct := expressionFor(target, rng)
	texts := []string{correct}
	for len(texts) < optionCount {
		v := clamp(target+perturbation(rng), 0, mathDomainMax)
		if v == target {
			continue
		}
		e := expressionFor(v, rng)
		if !containsString(texts, e) {
			texts = append(texts, e)
		}
	}
	options := make([]models.Answer, len(texts))
	for i, t := range texts {
		options[i] = models.TextAnswer(t)
	}
	shuffle(options, rng)
	return &models.Question{
		TargetVal:   models.TextAnswer(correct),
		TargetText:  strconv.Itoa(target),
		Options:     options,
		DisplayMode: models.DisplayReverseMath,
	}
}

// expressionFor renders a random sum or difference of operands in [0,100]
// that evaluates to v.
func expressionFor(v int, rng Rand) string {
	if rng.Float64() < 0.5 {
		a := rng.Intn(v + 1)
		return expressionText(a, '+', v-a)
	}
	b := rng.Intn(mathDomainMax - v + 1)
	return expressionText(v+b, '-', b)
}

func expressionText(a int, op byte, b int) string {
	return Display(a) + " " + string(op) + " " + Display(b)
}

// EvaluateExpression computes the value of an expression produced for
// reverse-math and math prompts, e.g. "Vingt + Cinq".
func EvaluateExpression(expr string) (int, bool) {
	for _, op := range []byte{'+', '-'} {
		left, right, ok := strings.Cut(expr, " "+string(op)+" ")
		if !ok {
			continue
		}
		a, okA := ParseWord(left)
		b, okB := ParseWord(right)
		if !okA || !okB {
			return 0, false
		}
		return apply(a, op, b), true
	}
	return 0, false
}

func apply(a int, op byte, b int) int {
	if op == '-' {
		return a - b
	}
	return a + b
}

func perturbation(rng Rand) int {
	off := 1 + rng.Intn(maxPerturb)
	if rng.Float64() < 0.5 {
		return -off
	}
	return off
}

func shuffle[T any](s []T, rng Rand) {
	for i := len(s) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func containsString(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
