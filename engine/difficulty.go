package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Mode string

const (
	ModeNormal      Mode = "normal"
	ModeMixed       Mode = "mixed"
	ModeSum         Mode = "sum"
	ModeSub         Mode = "sub"
	ModeMathMixed   Mode = "math-mixed"
	ModeCrazy       Mode = "crazy-mode"
	ModeReverseMath Mode = "reverse-math"
)

const CrazyMode = "crazy-mode"

var ErrUnknownDifficulty = errors.New("unknown difficulty selector")

// Difficulty is the parsed form of a selector such as "0-100-sum".
type Difficulty struct {
	Selector string `json:"selector"`
	Min      int    `json:"min"`
	Max      int    `json:"max"`
	Mode     Mode   `json:"mode"`
}

// Selectors lists the difficulties offered to hosts, easiest first.
var Selectors = []string{
	"0-10", "0-69", "0-100", "0-50-mixed", "0-100-mixed",
	"0-100-sum", "0-100-sub", "0-100-math-mixed", CrazyMode,
}

// ParseDifficulty accepts "crazy-mode" or "<min>-<max>[-<mode>]".
func ParseDifficulty(selector string) (Difficulty, error) {
	if selector == CrazyMode {
		return Difficulty{Selector: selector, Min: 0, Max: 100, Mode: ModeCrazy}, nil
	}
	parts := strings.SplitN(selector, "-", 3)
	if len(parts) < 2 {
		return Difficulty{}, fmt.Errorf("%w: %q", ErrUnknownDifficulty, selector)
	}
	lo, err := strconv.Atoi(parts[0])
	if err != nil {
		return Difficulty{}, fmt.Errorf("%w: %q", ErrUnknownDifficulty, selector)
	}
	hi, err := strconv.Atoi(parts[1])
	if err != nil || hi < lo || lo < 0 {
		return Difficulty{}, fmt.Errorf("%w: %q", ErrUnknownDifficulty, selector)
	}
	d := Difficulty{Selector: selector, Min: lo, Max: hi, Mode: ModeNormal}
	if len(parts) == 3 {
		switch m := Mode(parts[2]); m {
		case ModeMixed, ModeSum, ModeSub, ModeMathMixed, ModeReverseMath:
			d.Mode = m
			if m != ModeMixed && hi > 100 {
				return Difficulty{}, fmt.Errorf("%w: arithmetic modes stop at 100: %q", ErrUnknownDifficulty, selector)
			}
		default:
			return Difficulty{}, fmt.Errorf("%w: %q", ErrUnknownDifficulty, selector)
		}
	}
	return d, nil
}

// MaxTime is the answer budget of a question for the selector.
func MaxTime(selector string) time.Duration {
	switch selector {
	case "0-10":
		return 3 * time.Second
	case "0-100":
		return 5 * time.Second
	case "0-50-mixed":
		return 5 * time.Second
	case "0-100-mixed":
		return 7 * time.Second
	case "0-100-sum":
		return 10 * time.Second
	case "0-100-sub":
		return 15 * time.Second
	case "0-100-math-mixed":
		return 15 * time.Second
	case CrazyMode:
		return 20 * time.Second
	default:
		return 5 * time.Second
	}
}
