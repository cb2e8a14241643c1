package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

type DisplayMode string

const (
	DisplayDefault     DisplayMode = "default"
	DisplayMath        DisplayMode = "math"
	DisplayReverseMath DisplayMode = "reverse-math"
)

// Question is one prompt with exactly four distinct options, one of which is TargetVal.
type Question struct {
	TargetVal   Answer      `json:"targetVal"`
	TargetText  string      `json:"targetText"`
	Options     []Answer    `json:"options"`
	DisplayMode DisplayMode `json:"displayMode"`
	GeneratedAt int64       `json:"generatedAt"`
}

// Answer is an option value: a number in numeric modes, a text key in
// word and reverse-math modes. It encodes as a bare JSON number or string.
type Answer struct {
	Num    int
	Text   string
	IsText bool
}

func NumberAnswer(n int) Answer {
	return Answer{Num: n}
}

func TextAnswer(s string) Answer {
	return Answer{Text: s, IsText: true}
}

func (a Answer) String() string {
	if a.IsText {
		return a.Text
	}
	return strconv.Itoa(a.Num)
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.IsText {
		return json.Marshal(a.Text)
	}
	return json.Marshal(a.Num)
}

func (a *Answer) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = TextAnswer(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("answer must be a number or a string: %w", err)
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return fmt.Errorf("answer must be a whole number, got %s", b)
	}
	*a = NumberAnswer(int(f))
	return nil
}
