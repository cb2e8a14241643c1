package services

import (
	"time"

	"github.com/DIPEDEV/batalla-numeros/models"
)

// matchKind holds everything that differs between a solo practice match and
// a multiplayer match. The state machine and scoring core are shared.
type matchKind interface {
	// configStatus is the pre-game status where config may change and
	// where ReturnToLobby lands.
	configStatus() models.MatchStatus
	// startStatus is the status a start request moves to.
	startStatus() models.MatchStatus
	question(m *models.Match, playerID string) *models.Question
	roundPath(playerID string) string
	endTime(m *models.Match, start time.Time) int64
	chaosEnabled(m *models.Match) bool
	// social covers bots, teams, reactions and power-ups.
	social() bool
}

func kindOf(m *models.Match) matchKind {
	if m.IsPractice() {
		return practiceKind{}
	}
	return multiplayerKind{}
}

type practiceKind struct{}

func (practiceKind) configStatus() models.MatchStatus { return models.StatusSetup }
func (practiceKind) startStatus() models.MatchStatus  { return models.StatusPlaying }

func (practiceKind) question(m *models.Match, _ string) *models.Question {
	return m.CurrentRound
}

func (practiceKind) roundPath(string) string { return "currentRound" }

func (practiceKind) endTime(m *models.Match, start time.Time) int64 {
	if m.Config.InfiniteTime {
		return 0
	}
	return start.Add(time.Duration(m.Config.Duration) * time.Minute).UnixMilli()
}

func (practiceKind) chaosEnabled(*models.Match) bool { return false }
func (practiceKind) social() bool                    { return false }

type multiplayerKind struct{}

func (multiplayerKind) configStatus() models.MatchStatus { return models.StatusLobby }
func (multiplayerKind) startStatus() models.MatchStatus  { return models.StatusLaunching }

// question falls back to the shared round for players who have not been
// handed their own yet.
func (multiplayerKind) question(m *models.Match, playerID string) *models.Question {
	if p := m.Players[playerID]; p != nil && p.CurrentQuestion != nil {
		return p.CurrentQuestion
	}
	return m.CurrentRound
}

func (multiplayerKind) roundPath(playerID string) string {
	return playerPath(playerID, "currentQuestion")
}

func (multiplayerKind) endTime(m *models.Match, start time.Time) int64 {
	return start.Add(time.Duration(m.Config.Duration) * time.Minute).UnixMilli()
}

func (multiplayerKind) chaosEnabled(m *models.Match) bool {
	return m.Config.ChaosEnabled || m.Config.HotPotato
}

func (multiplayerKind) social() bool { return true }

func playerPath(playerID string, field ...string) string {
	p := "players." + playerID
	for _, f := range field {
		p += "." + f
	}
	return p
}
