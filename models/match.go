package models

// MatchStatus is the lifecycle stage of a match.
type MatchStatus string

const (
	StatusSetup     MatchStatus = "setup" // practice only
	StatusLobby     MatchStatus = "lobby"
	StatusWaiting   MatchStatus = "waiting"
	StatusLaunching MatchStatus = "launching"
	StatusPlaying   MatchStatus = "playing"
	StatusFinished  MatchStatus = "finished"
)

type MatchMode string

const (
	ModeMultiplayer MatchMode = "multiplayer"
	ModePractice    MatchMode = "practice"
)

const (
	DefaultMaxPlayers     = 30
	DefaultRange          = "0-69"
	DefaultDuration       = 3
	DefaultChaosFrequency = 20
)

type MatchConfig struct {
	Range          string `json:"range"`
	Duration       int    `json:"duration"` // minutes
	InfiniteTime   bool   `json:"infiniteTime,omitempty"`
	ChaosEnabled   bool   `json:"chaosEnabled"`
	ChaosFrequency int    `json:"chaosFrequency"` // seconds between chaos events
	HotPotato      bool   `json:"hotPotato"`
}

// Match is the shared document every participant reads and the host loops mutate.
// Timestamps are epoch milliseconds.
type Match struct {
	Code           string             `json:"code"`
	Mode           MatchMode          `json:"mode"`
	Status         MatchStatus        `json:"status"`
	Host           string             `json:"host"`
	HostPlays      bool               `json:"hostPlays"`
	TeamMode       bool               `json:"teamMode"`
	MaxPlayers     int                `json:"maxPlayers"`
	Config         MatchConfig        `json:"config"`
	CurrentRound   *Question          `json:"currentRound,omitempty"`
	CreatedAt      int64              `json:"createdAt"`
	LaunchingAt    int64              `json:"launchingAt,omitempty"`
	StartTime      int64              `json:"startTime,omitempty"`
	EndTime        int64              `json:"endTime,omitempty"`
	ActiveEvent    *ChaosEvent        `json:"activeEvent,omitempty"`
	NextChaosAt    int64              `json:"nextChaosAt,omitempty"`
	LatestReaction *Reaction          `json:"latestReaction,omitempty"`
	PlayerList     []string           `json:"playerList"`
	Players        map[string]*Player `json:"players"`
}

func (m *Match) IsPractice() bool {
	return m.Mode == ModePractice
}

func (m *Match) HasPlayer(id string) bool {
	_, ok := m.Players[id]
	return ok
}

func (m *Match) Capacity() int {
	if m.MaxPlayers <= 0 {
		return DefaultMaxPlayers
	}
	return m.MaxPlayers
}

// IsCompetitor reports whether the player takes part in scoring. A host that
// does not play only runs the match.
func (m *Match) IsCompetitor(id string) bool {
	if !m.HasPlayer(id) {
		return false
	}
	if id == m.Host && !m.HostPlays && !m.IsPractice() {
		return false
	}
	return true
}

// Competitors returns competing player ids in join order.
func (m *Match) Competitors() []string {
	ids := make([]string, 0, len(m.PlayerList))
	for _, id := range m.PlayerList {
		if m.IsCompetitor(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// ActiveChaos returns the chaos event type in force at now, or "" if none.
func (m *Match) ActiveChaos(now int64) ChaosType {
	if m.ActiveEvent == nil || m.ActiveEvent.ExpiresAt <= now {
		return ""
	}
	return m.ActiveEvent.Type
}
