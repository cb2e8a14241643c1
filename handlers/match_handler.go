package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/DIPEDEV/batalla-numeros/models"
	"github.com/DIPEDEV/batalla-numeros/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// IdentityResolver tells how a signed-in user appears inside a match.
type IdentityResolver interface {
	Identity(ctx context.Context, userID, name string) (services.PlayerIdentity, error)
}

type MatchHandler struct {
	matches    *services.MatchService
	identities IdentityResolver
	hub        *services.Hub
	upgrader   websocket.Upgrader
}

func NewMatchHandler(matches *services.MatchService, identities IdentityResolver, hub *services.Hub) *MatchHandler {
	return &MatchHandler{
		matches:    matches,
		identities: identities,
		hub:        hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
	}
}

type nameRequest struct {
	Name string `json:"name"`
}

type practiceRequest struct {
	Name string `json:"name"`
	services.PracticeConfigRequest
}

type teamRequest struct {
	PlayerID string      `json:"player_id"`
	Team     models.Team `json:"team" binding:"required"`
}

type botRequest struct {
	Difficulty models.BotDifficulty `json:"difficulty" binding:"required"`
}

type answerRequest struct {
	Value models.Answer `json:"value"`
}

type reactionRequest struct {
	Type string `json:"type" binding:"required"`
}

// identity resolves the caller, with an optional display name from the body.
func (h *MatchHandler) identity(c *gin.Context, name string) (services.PlayerIdentity, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return services.PlayerIdentity{}, false
	}
	p, err := h.identities.Identity(c.Request.Context(), userID, name)
	if err != nil {
		respondError(c, err)
		return services.PlayerIdentity{}, false
	}
	return p, true
}

func (h *MatchHandler) CreateMatch(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, ok := h.identity(c, req.Name)
	if !ok {
		return
	}

	m, err := h.matches.CreateMatch(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *MatchHandler) CreatePractice(c *gin.Context) {
	var req practiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, ok := h.identity(c, req.Name)
	if !ok {
		return
	}

	m, err := h.matches.CreatePractice(c.Request.Context(), p, req.PracticeConfigRequest)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *MatchHandler) GetMatch(c *gin.Context) {
	m, err := h.matches.GetMatch(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *MatchHandler) JoinMatch(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, ok := h.identity(c, req.Name)
	if !ok {
		return
	}

	m, err := h.matches.JoinMatch(c.Request.Context(), c.Param("code"), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *MatchHandler) UpdateConfig(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req services.LobbyConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := h.matches.UpdateLobbyConfig(c.Request.Context(), c.Param("code"), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *MatchHandler) SetTeam(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req teamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.PlayerID == "" {
		req.PlayerID = userID
	}

	if err := h.matches.SetTeam(c.Request.Context(), c.Param("code"), userID, req.PlayerID, req.Team); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Team updated"})
}

func (h *MatchHandler) AddBot(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req botRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	botID, err := h.matches.AddBot(c.Request.Context(), c.Param("code"), userID, req.Difficulty)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"bot_id": botID})
}

func (h *MatchHandler) RemoveBot(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.matches.RemoveBot(c.Request.Context(), c.Param("code"), userID, c.Param("botID")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bot removed"})
}

func (h *MatchHandler) StartMatch(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	code := c.Param("code")
	if err := h.matches.StartMatch(c.Request.Context(), code, userID); err != nil {
		respondError(c, err)
		return
	}

	log.Printf("Match %s started. Connected players: %v", services.NormalizeCode(code), h.hub.ConnectedPlayers(code))
	c.JSON(http.StatusOK, gin.H{"message": "Match started successfully"})
}

func (h *MatchHandler) SubmitAnswer(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.matches.SubmitAnswer(c.Request.Context(), c.Param("code"), userID, req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *MatchHandler) LaunchAttack(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := h.matches.LaunchAttack(c.Request.Context(), c.Param("code"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *MatchHandler) SendReaction(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req reactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.matches.SendReaction(c.Request.Context(), c.Param("code"), userID, req.Type); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reaction sent"})
}

func (h *MatchHandler) LeaveMatch(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.matches.LeaveMatch(c.Request.Context(), c.Param("code"), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Left match"})
}

func (h *MatchHandler) ReturnToLobby(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.matches.ReturnToLobby(c.Request.Context(), c.Param("code"), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Match back in lobby"})
}

func (h *MatchHandler) FinishMatch(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.matches.FinishMatch(c.Request.Context(), c.Param("code"), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Match finished"})
}

func (h *MatchHandler) ConnectedPlayers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"players": h.hub.ConnectedPlayers(c.Param("code"))})
}

// ServeWS upgrades a participant of the match to the realtime channel.
func (h *MatchHandler) ServeWS(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	code := services.NormalizeCode(c.Param("code"))
	log.Printf("WebSocket connection attempt - Match: %s, User: %s", code, userID)

	m, err := h.matches.GetMatch(c.Request.Context(), code)
	if err != nil {
		respondError(c, err)
		return
	}
	player, ok := m.Players[userID]
	if !ok {
		log.Printf("Player access validation failed for match %s, user %s", code, userID)
		c.JSON(http.StatusForbidden, gin.H{"error": "Player not found in match"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed for match %s, user %s: %v", code, userID, err)
		return
	}

	log.Printf("WebSocket connection established for match %s, player %s (%s)", code, userID, player.Name)
	h.hub.RegisterClient(conn, code, userID, player.Name)
}
