package models

type Team string

const (
	TeamNone Team = ""
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

type BotDifficulty string

const (
	BotEasy   BotDifficulty = "easy"
	BotMedium BotDifficulty = "medium"
	BotHard   BotDifficulty = "hard"
	BotExpert BotDifficulty = "expert"
)

// Player is a participant embedded in a Match document under players.<id>.
type Player struct {
	Name            string        `json:"name"`
	PhotoURL        string        `json:"photoURL,omitempty"`
	Score           int           `json:"score"`
	Combo           int           `json:"combo"`
	Team            Team          `json:"team,omitempty"`
	CurrentQuestion *Question     `json:"currentQuestion,omitempty"`
	IsBot           bool          `json:"isBot,omitempty"`
	IsAnonymous     bool          `json:"isAnonymous,omitempty"`
	Difficulty      BotDifficulty `json:"difficulty,omitempty"`
	ActiveEffects   []Effect      `json:"activeEffects,omitempty"`
	PowerUp         PowerUp       `json:"powerUp,omitempty"`
	NextActionTime  int64         `json:"nextActionTime,omitempty"`
	JoinedAt        int64         `json:"joinedAt"`
}

// HasEffect reports whether an unexpired effect of the given type is attached.
func (p *Player) HasEffect(t PowerUp, now int64) bool {
	for _, e := range p.ActiveEffects {
		if e.Type == t && e.ExpiresAt > now {
			return true
		}
	}
	return false
}
