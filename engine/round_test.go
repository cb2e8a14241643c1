package engine

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/DIPEDEV/batalla-numeros/models"
)

func checkQuestion(t *testing.T, selector string, q *models.Question) {
	t.Helper()
	if len(q.Options) != 4 {
		t.Fatalf("%s: expected 4 options, got %d", selector, len(q.Options))
	}
	seen := make(map[models.Answer]bool)
	matches := 0
	for _, o := range q.Options {
		if seen[o] {
			t.Fatalf("%s: duplicate option %v in %v", selector, o, q.Options)
		}
		seen[o] = true
		if o == q.TargetVal {
			matches++
		}
	}
	if matches != 1 {
		t.Fatalf("%s: expected target %v exactly once in %v", selector, q.TargetVal, q.Options)
	}
}

func TestGenerateRoundInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, sel := range append(Selectors, "0-100-reverse-math", "5-8") {
		for i := 0; i < 500; i++ {
			q, err := GenerateRound(sel, rng)
			if err != nil {
				t.Fatalf("%s: %v", sel, err)
			}
			checkQuestion(t, sel, q)
		}
	}
}

func TestReverseMathOneOptionEvaluatesToTarget(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 500; i++ {
		q, err := GenerateRound("0-100-reverse-math", rng)
		if err != nil {
			t.Fatal(err)
		}
		if q.DisplayMode != models.DisplayReverseMath {
			t.Fatalf("expected reverse-math display, got %s", q.DisplayMode)
		}
		target, ok := ParseWord(q.TargetText)
		if !ok {
			t.Fatalf("target text %q is not a number", q.TargetText)
		}
		hits := 0
		for _, o := range q.Options {
			v, ok := EvaluateExpression(o.Text)
			if !ok {
				t.Fatalf("option %q does not evaluate", o.Text)
			}
			if v == target {
				hits++
			}
		}
		if hits != 1 {
			t.Fatalf("expected one option equal to %d, got %d in %v", target, hits, q.Options)
		}
	}
}

func TestMathRoundsStayInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, sel := range []string{"0-100-sum", "0-100-sub"} {
		for i := 0; i < 500; i++ {
			q, err := GenerateRound(sel, rng)
			if err != nil {
				t.Fatal(err)
			}
			if q.TargetVal.IsText || q.TargetVal.Num < 0 || q.TargetVal.Num > 100 {
				t.Fatalf("%s: target %v out of range", sel, q.TargetVal)
			}
			v, ok := EvaluateExpression(q.TargetText)
			if !ok || v != q.TargetVal.Num {
				t.Fatalf("%s: prompt %q evaluates to %d, target %d", sel, q.TargetText, v, q.TargetVal.Num)
			}
			for _, o := range q.Options {
				if o.Num < 0 || o.Num > 100 {
					t.Fatalf("%s: option %d out of [0,100]", sel, o.Num)
				}
			}
		}
	}
}

func TestMixedUsesBothDirections(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	var words, numbers int
	for i := 0; i < 200; i++ {
		q, err := GenerateRound("0-50-mixed", rng)
		if err != nil {
			t.Fatal(err)
		}
		if q.TargetVal.IsText {
			words++
			if _, ok := ParseWord(q.TargetVal.Text); !ok {
				t.Fatalf("word target %q does not parse", q.TargetVal.Text)
			}
		} else {
			numbers++
		}
	}
	if words == 0 || numbers == 0 {
		t.Fatalf("expected both directions, got words=%d numbers=%d", words, numbers)
	}
}

func TestGenerateRoundFailsClosedOnSmallRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if _, err := GenerateRound("0-2", rng); !errors.Is(err, ErrRangeTooSmall) {
		t.Fatalf("expected ErrRangeTooSmall, got %v", err)
	}
	if _, err := GenerateRound("banana", rng); !errors.Is(err, ErrUnknownDifficulty) {
		t.Fatalf("expected ErrUnknownDifficulty, got %v", err)
	}
	if _, err := GenerateRound("0-500-sum", rng); !errors.Is(err, ErrUnknownDifficulty) {
		t.Fatalf("expected arithmetic range over 100 to be rejected, got %v", err)
	}
}

func TestMaxTimeTable(t *testing.T) {
	cases := map[string]int64{
		"0-10": 3000, "0-69": 5000, "0-100": 5000, "0-50-mixed": 5000, "0-100-mixed": 7000,
		"0-100-sum": 10000, "0-100-sub": 15000, "0-100-math-mixed": 15000, "crazy-mode": 20000,
	}
	for sel, want := range cases {
		if got := MaxTime(sel).Milliseconds(); got != want {
			t.Fatalf("MaxTime(%s) = %d, want %d", sel, got, want)
		}
	}
}
