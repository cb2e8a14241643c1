package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/DIPEDEV/batalla-numeros/engine"
	"github.com/DIPEDEV/batalla-numeros/models"
	"github.com/DIPEDEV/batalla-numeros/store"

	"github.com/google/uuid"
)

const (
	LaunchDelay   = 3500 * time.Millisecond
	codeLength    = 6
	createRetries = 5
	maxNameLength = 20
)

var errCodeTaken = errors.New("match code already in use")

// NameReserver reports whether a display name belongs to another registered user.
type NameReserver interface {
	IsReserved(ctx context.Context, name, userID string) (bool, error)
}

// MatchRecorder persists a finished match.
type MatchRecorder interface {
	RecordMatch(ctx context.Context, m *models.Match) error
}

// PlayerIdentity is who is acting, as resolved from the session token.
type PlayerIdentity struct {
	ID          string
	Name        string
	PhotoURL    string
	IsAnonymous bool
}

type MatchService struct {
	store    store.Store
	names    NameReserver
	recorder MatchRecorder
	runner   MatchRunner
	now      func() time.Time
	rng      engine.Rand
}

func NewMatchService(st store.Store, names NameReserver, recorder MatchRecorder) *MatchService {
	return &MatchService{
		store:    st,
		names:    names,
		recorder: recorder,
		now:      time.Now,
		rng:      defaultRand(),
	}
}

// SetRunner installs the scheduler that drives started matches.
func (s *MatchService) SetRunner(r MatchRunner) {
	s.runner = r
}

type PracticeConfigRequest struct {
	Range        string `json:"range"`
	Duration     int    `json:"duration"`
	InfiniteTime bool   `json:"infinite_time"`
}

// LobbyConfigRequest carries only the fields being changed.
type LobbyConfigRequest struct {
	MaxPlayers     *int    `json:"max_players"`
	Duration       *int    `json:"duration"`
	Range          *string `json:"range"`
	InfiniteTime   *bool   `json:"infinite_time"`
	HostPlays      *bool   `json:"host_plays"`
	TeamMode       *bool   `json:"team_mode"`
	ChaosEnabled   *bool   `json:"chaos_enabled"`
	ChaosFrequency *int    `json:"chaos_frequency"`
	HotPotato      *bool   `json:"hot_potato"`
}

func (r LobbyConfigRequest) multiplayerOnly() bool {
	return r.MaxPlayers != nil || r.HostPlays != nil || r.TeamMode != nil ||
		r.ChaosEnabled != nil || r.ChaosFrequency != nil || r.HotPotato != nil
}

type AnswerResult struct {
	Applied      bool           `json:"applied"`
	IsCorrect    bool           `json:"is_correct"`
	Delta        int            `json:"delta"`
	Combo        int            `json:"combo"`
	Score        int            `json:"score"`
	PowerUp      models.PowerUp `json:"power_up,omitempty"`
	BombPassedTo string         `json:"bomb_passed_to,omitempty"`
}

type AttackResult struct {
	PowerUp models.PowerUp `json:"power_up"`
	Target  string         `json:"target"`
	Effect  models.Effect  `json:"effect"`
}

func MatchKey(code string) string {
	return "match:" + NormalizeCode(code)
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// mutate runs fn against the current match inside a transaction and
// commits the ops it returns. fn may run more than once.
func (s *MatchService) mutate(ctx context.Context, code string, fn func(m *models.Match) ([]store.Op, error)) error {
	key := MatchKey(code)
	return s.store.RunTransaction(ctx, []string{key}, func(tx *store.Tx) error {
		var m models.Match
		if err := tx.Get(key, &m); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrMatchNotFound
			}
			return err
		}
		ops, err := fn(&m)
		if err != nil || len(ops) == 0 {
			return err
		}
		return tx.Update(key, ops...)
	})
}

func (s *MatchService) GetMatch(ctx context.Context, code string) (*models.Match, error) {
	var m models.Match
	if err := s.store.Get(ctx, MatchKey(code), &m); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &m, nil
}

func validName(p PlayerIdentity) (string, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

// checkReserved keeps anonymous players off names registered users own.
func (s *MatchService) checkReserved(ctx context.Context, p PlayerIdentity, name string) error {
	if !p.IsAnonymous || s.names == nil {
		return nil
	}
	reserved, err := s.names.IsReserved(ctx, name, p.ID)
	if err != nil {
		return fmt.Errorf("failed to check name: %w", err)
	}
	if reserved {
		return ErrReservedName
	}
	return nil
}

func (s *MatchService) newPlayer(p PlayerIdentity, name string) *models.Player {
	return &models.Player{
		Name:        name,
		PhotoURL:    p.PhotoURL,
		IsAnonymous: p.IsAnonymous,
		JoinedAt:    s.now().UnixMilli(),
	}
}

func (s *MatchService) create(ctx context.Context, m *models.Match) error {
	for attempt := 0; attempt < createRetries; attempt++ {
		m.Code = generateCode(codeLength)
		key := MatchKey(m.Code)
		err := s.store.RunTransaction(ctx, []string{key}, func(tx *store.Tx) error {
			if tx.Exists(key) {
				return errCodeTaken
			}
			return tx.Set(key, m)
		})
		if errors.Is(err, errCodeTaken) {
			continue
		}
		return err
	}
	return errCodeTaken
}

func (s *MatchService) CreateMatch(ctx context.Context, host PlayerIdentity) (*models.Match, error) {
	name, err := validName(host)
	if err != nil {
		return nil, err
	}
	if err := s.checkReserved(ctx, host, name); err != nil {
		return nil, err
	}

	m := &models.Match{
		Mode:       models.ModeMultiplayer,
		Status:     models.StatusLobby,
		Host:       host.ID,
		HostPlays:  true,
		MaxPlayers: models.DefaultMaxPlayers,
		Config: models.MatchConfig{
			Range:          models.DefaultRange,
			Duration:       models.DefaultDuration,
			ChaosFrequency: models.DefaultChaosFrequency,
		},
		CreatedAt:  s.now().UnixMilli(),
		PlayerList: []string{host.ID},
		Players:    map[string]*models.Player{host.ID: s.newPlayer(host, name)},
	}
	if err := s.create(ctx, m); err != nil {
		return nil, err
	}

	log.Printf("Created match %s hosted by %s (%s)", m.Code, host.ID, name)
	return m, nil
}

func validatePractice(cfg models.MatchConfig) error {
	if _, err := engine.ParseDifficulty(cfg.Range); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if !cfg.InfiniteTime && (cfg.Duration < 1 || cfg.Duration > 30) {
		return fmt.Errorf("%w: duration must be 1-30 minutes", ErrInvalidConfig)
	}
	return nil
}

func (s *MatchService) CreatePractice(ctx context.Context, player PlayerIdentity, req PracticeConfigRequest) (*models.Match, error) {
	name := strings.TrimSpace(player.Name)
	if name == "" {
		name = "Invitado"
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, ErrInvalidName
	}

	cfg := models.MatchConfig{Range: req.Range, Duration: req.Duration, InfiniteTime: req.InfiniteTime}
	if cfg.Range == "" {
		cfg.Range = models.DefaultRange
	}
	if cfg.Duration == 0 {
		cfg.Duration = 1
	}
	if err := validatePractice(cfg); err != nil {
		return nil, err
	}

	m := &models.Match{
		Mode:       models.ModePractice,
		Status:     models.StatusSetup,
		Host:       player.ID,
		HostPlays:  true,
		MaxPlayers: 1,
		Config:     cfg,
		CreatedAt:  s.now().UnixMilli(),
		PlayerList: []string{player.ID},
		Players:    map[string]*models.Player{player.ID: s.newPlayer(player, name)},
	}
	if err := s.create(ctx, m); err != nil {
		return nil, err
	}

	log.Printf("Created practice match %s for %s", m.Code, player.ID)
	return m, nil
}

// smallerTeam picks the team with fewer competitors, red on a tie.
func smallerTeam(m *models.Match) models.Team {
	red, blue := 0, 0
	for _, id := range m.Competitors() {
		switch m.Players[id].Team {
		case models.TeamRed:
			red++
		case models.TeamBlue:
			blue++
		}
	}
	if blue < red {
		return models.TeamBlue
	}
	return models.TeamRed
}

func (s *MatchService) JoinMatch(ctx context.Context, code string, p PlayerIdentity) (*models.Match, error) {
	name, err := validName(p)
	if err != nil {
		return nil, err
	}

	// Reservations live in postgres, outside the match transaction. The
	// lookup runs last inside the closure so it is repeated on every retry.
	err = s.mutate(ctx, code, func(m *models.Match) ([]store.Op, error) {
		if m.IsPractice() {
			return nil, ErrPracticeMatch
		}
		if m.HasPlayer(p.ID) {
			return nil, nil
		}
		if m.Status != models.StatusLobby {
			return nil, ErrMatchInProgress
		}
		if len(m.PlayerList) >= m.Capacity() {
			return nil, ErrMatchFull
		}
		for _, other := range m.Players {
			if strings.EqualFold(other.Name, name) {
				return nil, ErrNameTaken
			}
		}
		if err := s.checkReserved(ctx, p, name); err != nil {
			return nil, err
		}

		player := s.newPlayer(p, name)
		if m.TeamMode {
			player.Team = smallerTeam(m)
		}
		return []store.Op{
			store.ArrayUnion("playerList", p.ID),
			store.SetField(playerPath(p.ID), player),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Player %s (%s) joined match %s", p.ID, name, NormalizeCode(code))
	return s.GetMatch(ctx, code)
}

// teamOps deals competitors alternately into red and blue in join order,
// or clears teams when team mode is off.
func teamOps(m *models.Match) []store.Op {
	var ops []store.Op
	assigned := make(map[string]bool)
	if m.TeamMode {
		for i, id := range m.Competitors() {
			team := models.TeamRed
			if i%2 == 1 {
				team = models.TeamBlue
			}
			assigned[id] = true
			ops = append(ops, store.SetField(playerPath(id, "team"), team))
		}
	}
	for _, id := range m.PlayerList {
		if !assigned[id] && m.Players[id].Team != models.TeamNone {
			ops = append(ops, store.DeleteField(playerPath(id, "team")))
		}
	}
	return ops
}

func (s *MatchService) UpdateLobbyConfig(ctx context.Context, code, userID string, req LobbyConfigRequest) (*models.Match, error) {
	err := s.mutate(ctx, code, func(m *models.Match) ([]store.Op, error) {
		if m.Host != userID {
			return nil, ErrNotHost
		}
		k := kindOf(m)
		if m.Status != k.configStatus() && m.Status != models.StatusWaiting {
			return nil, ErrIllegalTransition
		}

		cfg := m.Config
		if req.Range != nil {
			cfg.Range = *req.Range
		}
		if req.Duration != nil {
			cfg.Duration = *req.Duration
		}

		if !k.social() {
			if req.multiplayerOnly() {
				return nil, ErrPracticeMatch
			}
			if req.InfiniteTime != nil {
				cfg.InfiniteTime = *req.InfiniteTime
			}
			if err := validatePractice(cfg); err != nil {
				return nil, err
			}
			return []store.Op{store.SetField("config", cfg)}, nil
		}

		if req.InfiniteTime != nil && *req.InfiniteTime {
			return nil, fmt.Errorf("%w: multiplayer matches need a duration", ErrInvalidConfig)
		}
		if req.ChaosEnabled != nil {
			cfg.ChaosEnabled = *req.ChaosEnabled
		}
		if req.ChaosFrequency != nil {
			cfg.ChaosFrequency = *req.ChaosFrequency
		}
		if req.HotPotato != nil {
			cfg.HotPotato = *req.HotPotato
		}
		if _, err := engine.ParseDifficulty(cfg.Range); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if cfg.Duration < 1 || cfg.Duration > 30 {
			return nil, fmt.Errorf("%w: duration must be 1-30 minutes", ErrInvalidConfig)
		}
		if cfg.ChaosFrequency < 5 || cfg.ChaosFrequency > 120 {
			return nil, fmt.Errorf("%w: chaos frequency must be 5-120 seconds", ErrInvalidConfig)
		}

		ops := []store.Op{store.SetField("config", cfg)}
		if req.MaxPlayers != nil {
			n := *req.MaxPlayers
			if n < 1 || n > models.DefaultMaxPlayers || n < len(m.PlayerList) {
				return nil, fmt.Errorf("%w: max players must be between %d and %d", ErrInvalidConfig, max(1, len(m.PlayerList)), models.DefaultMaxPlayers)
			}
			ops = append(ops, store.SetField("maxPlayers", n))
		}

		rebalance := false
		if req.HostPlays != nil && *req.HostPlays != m.HostPlays {
			m.HostPlays = *req.HostPlays
			ops = append(ops, store.SetField("hostPlays", m.HostPlays))
			rebalance = m.TeamMode
		}
		if req.TeamMode != nil && *req.TeamMode != m.TeamMode {
			m.TeamMode = *req.TeamMode
			ops = append(ops, store.SetField("teamMode", m.TeamMode))
			rebalance = true
		}
		if rebalance {
			ops = append(ops, teamOps(m)...)
		}
		return ops, nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetMatch(ctx, code)
}

// SetTeam moves a player to a team. Players move themselves; the host may
// move anyone.
func (s *MatchService) SetTeam(ctx context.Context, code, userID, playerID string, team models.Team) error {
	if team != models.TeamRed && team != models.TeamBlue {
		return fmt.Errorf("%w: unknown team %q", ErrInvalidConfig, team)
	}
	return s.mutate(ctx, code, func(m *models.Match) ([]store.Op, error) {
		if userID != playerID && userID != m.Host {
			return nil, ErrNotHost
		}
		if !m.TeamMode {
			return nil, fmt.Errorf("%w: team mode is off", ErrInvalidConfig)
		}
		if m.Status != models.StatusLobby && m.Status != models.StatusWaiting {
			return nil, ErrIllegalTransition
		}
		if !m.IsCompetitor(playerID) {
			return nil, ErrNotInMatch
		}
		return []store.Op{store.SetField(playerPath(playerID, "team"), team)}, nil
	})
}

var botNames = map[models.BotDifficulty]string{
	models.BotEasy:   "Bot Fácil",
	models.BotMedium: "Bot Medio",
	models.BotHard:   "Bot Difícil",
	models.BotExpert: "Bot Experto",
}

func (s *MatchService) AddBot(ctx context.Context, code, userID string, difficulty models.BotDifficulty) (string, error) {
	if !engine.IsBotDifficulty(difficulty) {
		return "", fmt.Errorf("%w: unknown bot difficulty %q", ErrInvalidConfig, difficulty)
	}
	botID := "bot-" + uuid.NewString()

	err := s.mutate(ctx, code, func(m *models.Match) ([]store.Op, error) {
		if m.Host != userID {
			return nil, ErrNotHost
		}
		if !kindOf(m).social() {
			return nil, ErrPracticeMatch
		}
		if m.Status != models.StatusLobby && m.Status != models.StatusWaiting {
			return nil, ErrIllegalTransition
		}
		if len(m.PlayerList) >= m.Capacity() {
			return nil, ErrMatchFull
		}

		name := botNames[difficulty]
		taken := make(map[string]bool)
		for _, p := range m.Players {
			taken[strings.ToLower(p.Name)] = true
		}
		for n := 2; taken[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s %d", botNames[difficulty], n)
		}

		bot := &models.Player{
			Name:       name,
			IsBot:      true,
			Difficulty: difficulty,
			JoinedAt:   s.now().UnixMilli(),
		}
		if m.TeamMode {
			bot.Team = smallerTeam(m)
		}
		return []store.Op{
			store.ArrayUnion("playerList", botID),
			store.SetField(playerPath(botID), bot),
		}, nil
	})
	if err != nil {
		return "", err
	}

	log.Printf("Added %s bot %s to match %s", difficulty, botID, NormalizeCode(code))
	return botID, nil
}

func (s *MatchService) RemoveBot(ctx context.Context, code, userID, botID string) error {
	return s.mutate(ctx, code, func(m *models.Match) ([]store.Op, error) {
		if m.Host != userID {
			return nil, ErrNotHost
		}
		p, ok := m.Players[botID]
		if !ok {
			return nil, ErrNotInMatch
		}
		if !p.IsBot {
			return nil, ErrNotBot
		}
		return append(removePlayerOps(botID), bombHandoffOps(m, botID, s.rng)...), nil
	})
}

func removePlayerOps(id string) []store.Op {
	return []store.Op{
		store.ArrayRemove("playerList", id),
		store.DeleteField(playerPath(id)),
	}
}

// bombHandoffOps passes the bomb away from a departing holder, or drops
// the event when nobody is left to hold it.
func bombHandoffOps(m *models.Match, leaving string, rng engine.Rand) []store.Op {
	ev := m.ActiveEvent
	if ev == nil || ev.Type != models.ChaosBomb || ev.Holder != leaving {
		return nil
	}
	if next, ok := engine.PassBomb(m.Competitors(), leaving, rng); ok {
		return []store.Op{store.SetField("activeEvent.holder", next)}
	}
	return []store.Op{store.DeleteField("activeEvent")}
}

func (s *MatchService) newRound(selector string, now time.Time) (*models.Question, error) {
	q, err := engine.GenerateRound(selector, s.rng)
	if err != nil {
		return nil, err
	}
	q.GeneratedAt = now.UnixMilli()
	return q, nil
}

// playingOps moves a match into playing: start and end instants, the first
// rounds, bot schedules and the chaos clock.
func (s *MatchService) playingOps(m *models.Match, now time.Time) ([]store.Op, error) {
	k := kindOf(m)
	ms := now.UnixMilli()
	ops := []store.Op{
		store.SetField("status", models.StatusPlaying),
		store.SetField("startTime", ms),
		store.DeleteField("activeEvent"),
	}
	if end := k.endTime(m, now); end > 0 {
		ops = append(ops, store.SetField("endTime", end))
	} else {
		ops = append(ops, store.DeleteField("endTime"))
	}

	shared, err := s.newRound(m.Config.Range, now)
	if err != nil {
		return nil, err
	}
	ops = append(ops, store.SetField("currentRound", shared))

	if k.social() {
		for _, id := range m.Competitors() {
			q, err := s.newRound(m.Config.Range, now)
			if err != nil {
				return nil, err
			}
			ops = append(ops, store.SetField(k.roundPath(id), q))
			if p := m.Players[id]; p.IsBot {
				delay := engine.Profile(p.Difficulty).NextDelay(s.rng)
				ops = append(ops, store.SetField(playerPath(id, "nextActionTime"), now.Add(delay).UnixMilli()))
			}
		}
	}

	if k.chaosEnabled(m) {
		next := ms
		if !m.Config.HotPotato {
			next = now.Add(engine.ChaosCooldown(m.Config)).UnixMilli()
		}
		ops = append(ops, store.SetField("nextChaosAt", next))
	}
	return ops, nil
}

// StartMatch is the host's start request: multiplayer matches enter the
// launch countdown, practice matches start playing at once.
func (s *MatchService) StartMatch(ctx context.Context, code, userID string) error {
	err := s.mutate(ctx, code, func(m *models.Match) ([]store.Op, error) {
		if m.Host != userID {
			return nil, ErrNotHost
		}
		k := kindOf(m)
		if m.Status != k.configStatus() && m.Status != models.StatusWaiting {
			return nil, ErrIllegalTransition
		}
		if len(m.Competitors()) == 0 {
			return nil, ErrNoCompetitors
		}
		if k.startStatus() == models.StatusPlaying {
			return s.playingOps(m, s.now())
		}
		return []store.Op{
			store.SetField("status", models.StatusLaunching),
			store.SetField("launchingAt", s.now().UnixMilli()),
		}, nil
	})
	if err != nil {
		return err
	}

	log.Printf("Match %s started by %s", NormalizeCode(code), userID)
	if s.runner != nil {
		s.runner.Ensure(code)
	}
	return nil
}

// BeginPlaying ends the launch countdown once LaunchDelay has passed. It
// reports whether this call made the transition.
func (s *MatchService) BeginPlaying(ctx context.Context, code string) (bool, error) {
	var began bool
	err := s.mutate(ctx, code, func(m *models.Match) ([]store.Op, error) {
		began = false
		now := s.now()
		if m.Status != models.StatusLaunching || now.UnixMilli()-m.LaunchingAt < LaunchDelay.Milliseconds() {
			return nil, nil
		}
		ops, err := s.playingOps(m, now)
		if err != nil {
			return nil, err
		}
		began = true
		return ops, nil
	})
	if err != nil {
		return false, err
	}
	if began {
		log.Printf("Match %s is now playing", NormalizeCode(code))
	}
	return began, nil
}

func (s *MatchService) SubmitAnswer(ctx context.Context, code, playerID string, selected models.Answer) (*AnswerResult, error) {
	var res AnswerResult
	err := s.mutate(ctx, code, func(m *models.Match) ([]store.Op, error) {
		res = AnswerResult{}
		now := s.now()
		ms := now.UnixMilli()
		if m.Status != models.StatusPlaying || !m.IsCompetitor(playerID) {
			return nil, nil
		}
		if m.EndTime > 0 && ms >= m.EndTime {
			return nil, nil
		}
		k := kindOf(m)
		q := k.question(m, playerID)
		if q == nil || q.GeneratedAt == 0 {
			return nil, nil
		}
		p := m.Players[playerID]
		chaos := m.ActiveChaos(ms)

		out := engine.Score(engine.Attempt{
			Selector:    m.Config.Range,
			Question:    q,
			AnsweredAt:  now,
			Selected:    selected,
			ComboBefore: p.Combo,
			Modifiers: engine.Modifiers{
				Boost: p.HasEffect(models.PowerUpBoost, ms),
				Chaos: chaos,
			},
		})
		score := engine.ApplyDelta(p.Score, out.Delta)
		res = AnswerResult{
			Applied:   true,
			IsCorrect: out.IsCorrect,
			Delta:     out.Delta,
			Combo:     out.ComboAfter,
			Score:     score,
		}

		ops := []store.Op{
			store.SetField(playerPath(playerID, "score"), score),
			store.SetField(playerPath(playerID, "combo"), out.ComboAfter),
		}
		if !out.IsCorrect {
			return ops, nil
		}

		next, err := s.newRound(m.Config.Range, now)
		if err != nil {
			return nil, err
		}
		ops = append(ops, store.SetField(k.roundPath(playerID), next))

		if out.GrantPowerUp && k.social() {
			res.PowerUp = engine.RandomPowerUp(s.rng)
			ops = append(ops, store.SetField(playerPath(playerID, "powerUp"), res.PowerUp))
		}
		if chaos == models.ChaosBomb && m.ActiveEvent.Holder == playerID {
			if holder, ok := engine.PassBomb(m.Competitors(), playerID, s.rng); ok {
				res.BombPassedTo = holder
				ops = append(ops, store.SetField("activeEvent.holder", holder))
			}
		}
		return ops, nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// LaunchAttack spends the player's held power-up on its target.
func (s *MatchService) LaunchAttack(ctx context.Context, code, playerID string) (*AttackResult, error) {
	var res AttackResult
	err := s.mutate(ctx, code, func(m *models.Match) ([]store.Op, error) {
		res = AttackResult{}
		if m.Status != models.StatusPlaying {
			return nil, ErrIllegalTransition
		}
		p, ok := m.Players[playerID]
		if !ok {
			return nil, ErrNotInMatch
		}
		if !engine.IsPowerUp(p.PowerUp) {
			return nil, ErrNoPowerUp
		}
		target, ok := engine.SelectTarget(m, playerID, p.PowerUp)
		if !ok {
			return nil, ErrNoTarget
		}

		ms := s.now().UnixMilli()
		effect := models.Effect{
			ID:        uuid.NewString(),
			Type:      p.PowerUp,
			ExpiresAt: ms + engine.EffectDuration(p.PowerUp).Milliseconds(),
			Sender:    playerID,
			TargetID:  target,
		}
		res = AttackResult{PowerUp: p.PowerUp, Target: target, Effect: effect}

		effectsPath := playerPath(target, "activeEffects")
		ops := []store.Op{store.DeleteField(playerPath(playerID, "powerUp"))}
		var expired []any
		for _, e := range m.Players[target].ActiveEffects {
			if e.ExpiresAt <= ms {
				expired = append(expired, e)
			}
		}
		if len(expired) > 0 {
			ops = append(ops, store.ArrayRemove(effectsPath, expired...))
		}
		return append(ops, store.ArrayUnion(effectsPath, effect)), nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Player %s launched %s at %s in match %s", playerID, res.PowerUp, res.Target, NormalizeCode(code))
	return &res, nil
}

var Reactions = []string{"bien", "llorar", "nerd", "enojado", "skull"}

func isReaction(t string) bool {
	for _, r := range Reactions {
		if r == t {
			return true
		}
	}
	return false
}

func (s *MatchService) SendReaction(ctx context.Context, code, playerID, reactionType string) error {
	if !isReaction(reactionType) {
		return ErrUnknownReaction
	}
	return s.mutate(ctx, code, func(m *models.Match) ([]store.Op, error) {
		if !kindOf(m).social() {
			return nil, ErrPracticeMatch
		}
		p, ok := m.Players[playerID]
		if !ok {
			return nil, ErrNotInMatch
		}
		return []store.Op{store.SetField("latestReaction", models.Reaction{
			Type:      reactionType,
			ID:        uuid.NewString(),
			Timestamp: s.now().UnixMilli(),
			Sender:    p.Name,
		})}, nil
	})
}

// LeaveMatch removes the player. A departing host abandons the match and
// the document is deleted.
func (s *MatchService) LeaveMatch(ctx context.Context, code, playerID string) error {
	key := MatchKey(code)
	var deleted bool
	err := s.store.RunTransaction(ctx, []string{key}, func(tx *store.Tx) error {
		deleted = false
		var m models.Match
		if err := tx.Get(key, &m); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrMatchNotFound
			}
			return err
		}
		if !m.HasPlayer(playerID) {
			return nil
		}
		if m.Host == playerID {
			deleted = true
			return tx.Delete(key)
		}
		ops := bombHandoffOps(&m, playerID, s.rng)
		return tx.Update(key, append(removePlayerOps(playerID), ops...)...)
	})
	if err != nil {
		return err
	}

	if deleted {
		log.Printf("Host %s left match %s, match deleted", playerID, NormalizeCode(code))
	} else {
		log.Printf("Player %s left match %s", playerID, NormalizeCode(code))
	}
	return nil
}

// ReturnToLobby resets a finished match for another game with the same
// players and config.
func (s *MatchService) ReturnToLobby(ctx context.Context, code, userID string) error {
	return s.mutate(ctx, code, func(m *models.Match) ([]store.Op, error) {
		if m.Host != userID {
			return nil, ErrNotHost
		}
		if m.Status != models.StatusFinished {
			return nil, ErrIllegalTransition
		}
		ops := []store.Op{
			store.SetField("status", kindOf(m).configStatus()),
			store.DeleteField("launchingAt"),
			store.DeleteField("startTime"),
			store.DeleteField("endTime"),
			store.DeleteField("currentRound"),
			store.DeleteField("activeEvent"),
			store.DeleteField("nextChaosAt"),
		}
		for _, id := range m.PlayerList {
			ops = append(ops,
				store.SetField(playerPath(id, "score"), 0),
				store.SetField(playerPath(id, "combo"), 0),
				store.DeleteField(playerPath(id, "currentQuestion")),
				store.DeleteField(playerPath(id, "nextActionTime")),
				store.DeleteField(playerPath(id, "activeEffects")),
				store.DeleteField(playerPath(id, "powerUp")),
			)
		}
		return ops, nil
	})
}

// FinishMatch lets a practice player stop early. Multiplayer matches only
// finish on their authoritative end time.
func (s *MatchService) FinishMatch(ctx context.Context, code, userID string) error {
	_, err := s.finishIf(ctx, code, func(m *models.Match) error {
		if m.Host != userID {
			return ErrNotHost
		}
		if m.Status != models.StatusPlaying {
			return ErrIllegalTransition
		}
		if !m.IsPractice() && (m.EndTime == 0 || s.now().UnixMilli() < m.EndTime) {
			return ErrIllegalTransition
		}
		return nil
	})
	return err
}

// finishIf moves a playing match to finished when check allows it. Only the
// call whose transaction commits the transition records the result.
func (s *MatchService) finishIf(ctx context.Context, code string, check func(m *models.Match) error) (bool, error) {
	var (
		finished bool
		final    models.Match
	)
	err := s.mutate(ctx, code, func(m *models.Match) ([]store.Op, error) {
		finished = false
		if err := check(m); err != nil {
			return nil, err
		}
		if m.Status != models.StatusPlaying {
			return nil, nil
		}
		ms := s.now().UnixMilli()
		ops := []store.Op{
			store.SetField("status", models.StatusFinished),
			store.DeleteField("activeEvent"),
		}
		final = *m
		final.Status = models.StatusFinished
		final.ActiveEvent = nil
		if m.EndTime == 0 || ms < m.EndTime {
			final.EndTime = ms
			ops = append(ops, store.SetField("endTime", ms))
		}
		finished = true
		return ops, nil
	})
	if err != nil || !finished {
		return false, err
	}

	log.Printf("Match %s finished", final.Code)
	if s.recorder != nil {
		if err := s.recorder.RecordMatch(ctx, &final); err != nil {
			log.Printf("Failed to record match %s: %v", final.Code, err)
		}
	}
	return true, nil
}
