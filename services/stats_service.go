package services

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/DIPEDEV/batalla-numeros/models"

	"gorm.io/gorm"
)

type StatsService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db, now: time.Now}
}

// Standing is one competitor's final position.
type Standing struct {
	PlayerID  string
	Player    *models.Player
	Placement int
}

// Standings ranks the human competitors of m by score. Equal scores share a
// placement and keep join order.
func Standings(m *models.Match) []Standing {
	var out []Standing
	for _, id := range m.Competitors() {
		p := m.Players[id]
		if p == nil || p.IsBot {
			continue
		}
		out = append(out, Standing{PlayerID: id, Player: p})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Player.Score > out[j].Player.Score
	})
	for i := range out {
		if i > 0 && out[i].Player.Score == out[i-1].Player.Score {
			out[i].Placement = out[i-1].Placement
		} else {
			out[i].Placement = i + 1
		}
	}
	return out
}

func millisToTime(ms int64) *time.Time {
	if ms == 0 {
		return nil
	}
	t := time.UnixMilli(ms)
	return &t
}

// RecordMatch stores the finished match and bumps the lifetime stats of its
// registered players.
func (s *StatsService) RecordMatch(ctx context.Context, m *models.Match) error {
	standings := Standings(m)
	record := models.MatchRecord{
		Code:      m.Code,
		Mode:      string(m.Mode),
		Range:     m.Config.Range,
		Duration:  m.Config.Duration,
		HostID:    m.Host,
		TeamMode:  m.TeamMode,
		StartedAt: millisToTime(m.StartTime),
		EndedAt:   millisToTime(m.EndTime),
	}
	for _, st := range standings {
		record.Results = append(record.Results, models.MatchResult{
			PlayerID:    st.PlayerID,
			Name:        st.Player.Name,
			Team:        string(st.Player.Team),
			Score:       st.Player.Score,
			Placement:   st.Placement,
			IsAnonymous: st.Player.IsAnonymous,
		})
	}

	now := s.now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		for _, st := range standings {
			if st.Player.IsAnonymous {
				continue
			}
			err := tx.Model(&models.User{}).
				Where("id = ? AND is_anonymous = ?", st.PlayerID, false).
				Updates(map[string]interface{}{
					"total_score":  gorm.Expr("total_score + ?", st.Player.Score),
					"games_played": gorm.Expr("games_played + ?", 1),
					"last_played":  now,
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("Recorded match %s with %d results", m.Code, len(record.Results))
	return nil
}

// History lists the most recent matches a user took part in.
func (s *StatsService) History(ctx context.Context, userID string, limit int) ([]models.MatchRecord, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	var records []models.MatchRecord
	err := s.db.WithContext(ctx).
		Preload("Results", func(db *gorm.DB) *gorm.DB {
			return db.Order("placement ASC")
		}).
		Where("id IN (?)", s.db.Model(&models.MatchResult{}).Select("match_record_id").Where("player_id = ?", userID)).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Leaderboard returns registered users ordered by lifetime score.
func (s *StatsService) Leaderboard(ctx context.Context, limit int) ([]models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("is_anonymous = ? AND games_played > 0", false).
		Order("total_score DESC").
		Limit(limit).
		Find(&users).Error
	return users, err
}
