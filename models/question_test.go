package models

import (
	"encoding/json"
	"testing"
)

func TestAnswerUnmarshal(t *testing.T) {
	cases := []struct {
		in   string
		want Answer
	}{
		{`5`, NumberAnswer(5)},
		{`5.0`, NumberAnswer(5)},
		{` -3 `, NumberAnswer(-3)},
		{`"Cinq"`, TextAnswer("Cinq")},
	}
	for _, tc := range cases {
		var a Answer
		if err := json.Unmarshal([]byte(tc.in), &a); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tc.in, err)
		}
		if a != tc.want {
			t.Fatalf("Unmarshal(%s) = %+v, want %+v", tc.in, a, tc.want)
		}
	}
}

func TestAnswerRejectsFractionsAndJunk(t *testing.T) {
	for _, in := range []string{`5.9`, `0.5`, `1e12`, `true`, `{}`} {
		var a Answer
		if err := json.Unmarshal([]byte(in), &a); err == nil {
			t.Fatalf("Unmarshal(%s) accepted %+v", in, a)
		}
	}
}

func TestAnswerInsideRequestAndQuestion(t *testing.T) {
	var req struct {
		Value Answer `json:"value"`
	}
	if err := json.Unmarshal([]byte(`{"value": 5.9}`), &req); err == nil {
		t.Fatalf("fractional answer accepted as %+v", req.Value)
	}
	b, err := json.Marshal(Question{TargetVal: NumberAnswer(7), Options: []Answer{TextAnswer("Sept")}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var q Question
	if err := json.Unmarshal(b, &q); err != nil {
		t.Fatalf("Unmarshal question: %v", err)
	}
	if q.TargetVal != NumberAnswer(7) || q.Options[0] != TextAnswer("Sept") {
		t.Fatalf("question changed in transit: %+v", q)
	}
}
