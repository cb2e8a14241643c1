package engine

import (
	"strconv"
	"strings"
)

var (
	units = [...]string{"", "un", "deux", "trois", "quatre", "cinq", "six", "sept", "huit", "neuf"}
	teens = map[int]string{
		10: "dix", 11: "onze", 12: "douze", 13: "treize", 14: "quatorze", 15: "quinze", 16: "seize",
	}
	tens = map[int]string{
		20: "vingt", 30: "trente", 40: "quarante", 50: "cinquante", 60: "soixante",
	}
)

// Word returns the lowercase French name of n for 0..100. Values outside
// that range fall back to the numeral.
func Word(n int) string {
	switch {
	case n < 0 || n > 100:
		return strconv.Itoa(n)
	case n == 0:
		return "zéro"
	case n == 100:
		return "cent"
	case n < 10:
		return units[n]
	case n < 20:
		return tenToNineteen(n)
	case n < 70:
		t, u := n/10*10, n%10
		switch u {
		case 0:
			return tens[t]
		case 1:
			return tens[t] + " et un"
		default:
			return tens[t] + "-" + units[u]
		}
	case n < 80:
		if n == 71 {
			return "soixante et onze"
		}
		return "soixante-" + tenToNineteen(n-60)
	case n == 80:
		return "quatre-vingts"
	case n < 90:
		return "quatre-vingt-" + units[n-80]
	default:
		return "quatre-vingt-" + tenToNineteen(n-80)
	}
}

func tenToNineteen(n int) string {
	if w, ok := teens[n]; ok {
		return w
	}
	return "dix-" + units[n-10]
}

// Display is Word with the first letter upper-cased, the form shown to players.
func Display(n int) string {
	w := Word(n)
	if w == "" {
		return w
	}
	r := []rune(w)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

var wordValues = func() map[string]int {
	m := make(map[string]int, 101)
	for i := 0; i <= 100; i++ {
		m[Word(i)] = i
	}
	return m
}()

// ParseWord maps a French number name (any case) back to its value.
func ParseWord(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if v, ok := wordValues[s]; ok {
		return v, true
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	return 0, false
}

// CheatSheetEntry groups examples of one numbering rule.
type CheatSheetEntry struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Details     string         `json:"details,omitempty"`
	Examples    []CheatExample `json:"examples"`
}

type CheatExample struct {
	Val  int    `json:"val"`
	Text string `json:"text"`
}

func examples(vals ...int) []CheatExample {
	out := make([]CheatExample, 0, len(vals))
	for _, v := range vals {
		out = append(out, CheatExample{Val: v, Text: Display(v)})
	}
	return out
}

func CheatSheet() []CheatSheetEntry {
	return []CheatSheetEntry{
		{
			Title:       "Unités (0 - 9)",
			Description: "La base de tout.",
			Examples:    examples(0, 1, 2, 3, 4, 5, 6, 7, 8, 9),
		},
		{
			Title:       "Dizaines (10 - 90)",
			Description: "Les piliers.",
			Examples:    examples(10, 20, 30, 40, 50, 60, 70, 80, 90),
		},
		{
			Title:       "Règles de combinaison",
			Description: "Comment former le reste.",
			Details:     "'et un' pour le 1 (21, 31, ... 71) sauf dans les quatre-vingts; trait d'union pour le reste.",
			Examples:    examples(17, 21, 35, 71, 75, 81, 95),
		},
		{
			Title:       "Cent",
			Description: "La limite du jeu.",
			Examples:    examples(100),
		},
	}
}
