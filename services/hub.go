package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/DIPEDEV/batalla-numeros/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	actionTimeout  = 5 * time.Second
	errorClearTime = 3000
)

// RoomWatcher is told when a match room gains its first client and loses
// its last one.
type RoomWatcher interface {
	Watch(code string)
	Unwatch(code string)
}

type Hub struct {
	clients    map[*Client]bool
	rooms      map[string]map[*Client]bool
	broadcast  chan roomMessage
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	matches    *MatchService
	watcher    RoomWatcher
}

type Client struct {
	hub        *Hub
	id         string
	socket     *websocket.Conn
	send       chan []byte
	matchCode  string
	playerID   string
	playerName string
	inRoom     bool
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type roomMessage struct {
	code string
	data []byte
}

func NewHub(matches *MatchService) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan roomMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		matches:    matches,
	}
}

// SetWatcher wires the orchestrator that feeds rooms with match updates.
func (h *Hub) SetWatcher(w RoomWatcher) {
	h.watcher = w
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			room := h.rooms[client.matchCode]
			if room == nil {
				room = make(map[*Client]bool)
				h.rooms[client.matchCode] = room
			}
			room[client] = true
			client.inRoom = true
			first := len(room) == 1
			h.mutex.Unlock()
			log.Printf("Client registered: %s for match %s (player %s: %s) - Total clients: %d", client.id, client.matchCode, client.playerID, client.playerName, len(h.clients))

			if first && h.watcher != nil {
				h.watcher.Watch(client.matchCode)
			} else {
				go h.SendMatchState(client)
			}

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Printf("Client unregistered: %s for match %s (player %s: %s) - Total clients: %d", client.id, client.matchCode, client.playerID, client.playerName, len(h.clients))
			}
			empty := h.removeFromRoom(client)
			h.mutex.Unlock()
			if empty && h.watcher != nil {
				h.watcher.Unwatch(client.matchCode)
			}

		case msg := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.rooms[msg.code] {
				select {
				case client.send <- msg.data:
				default:
					log.Printf("Client %s (player %s) send buffer full, closing connection", client.id, client.playerID)
					delete(h.clients, client)
					close(client.send)
					h.removeFromRoom(client)
				}
			}
			empty := len(h.rooms[msg.code]) == 0
			h.mutex.Unlock()
			if empty && h.watcher != nil {
				h.watcher.Unwatch(msg.code)
			}
		}
	}
}

// removeFromRoom must be called with the mutex held. It reports whether the
// client's room became empty.
func (h *Hub) removeFromRoom(client *Client) bool {
	if !client.inRoom {
		return false
	}
	client.inRoom = false
	room := h.rooms[client.matchCode]
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, client.matchCode)
		return true
	}
	return false
}

// leaveRoom stops room broadcasts to the client while keeping its socket.
func (h *Hub) leaveRoom(client *Client) {
	h.mutex.Lock()
	empty := h.removeFromRoom(client)
	h.mutex.Unlock()
	if empty && h.watcher != nil {
		h.watcher.Unwatch(client.matchCode)
	}
}

func encode(messageType string, payload interface{}) ([]byte, error) {
	return json.Marshal(Message{Type: messageType, Payload: payload})
}

func (h *Hub) BroadcastToMatch(code string, messageType string, payload interface{}) {
	data, err := encode(messageType, payload)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}
	h.broadcast <- roomMessage{code: NormalizeCode(code), data: data}
}

// sendTo delivers one message to a single registered client.
func (h *Hub) sendTo(client *Client, messageType string, payload interface{}) {
	data, err := encode(messageType, payload)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if !h.clients[client] {
		return
	}
	select {
	case client.send <- data:
	default:
		log.Printf("Client %s (player %s) send buffer full, dropping %s", client.id, client.playerID, messageType)
	}
}

func (h *Hub) sendError(client *Client, err error) {
	h.sendTo(client, "error", map[string]interface{}{
		"message":        err.Error(),
		"clear_after_ms": errorClearTime,
	})
}

func (h *Hub) SendMatchState(client *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	m, err := h.matches.GetMatch(ctx, client.matchCode)
	if errors.Is(err, ErrMatchNotFound) {
		h.sendTo(client, "match_deleted", map[string]interface{}{"code": client.matchCode})
		return
	}
	if err != nil {
		log.Printf("Error getting match state for client %s: %v", client.id, err)
		h.sendError(client, errors.New("connection error"))
		return
	}
	h.sendTo(client, "match_state", m)
}

func (h *Hub) ConnectedPlayers(code string) []string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	var ids []string
	for client := range h.rooms[NormalizeCode(code)] {
		ids = append(ids, client.playerID)
	}
	return ids
}

func (h *Hub) RegisterClient(conn *websocket.Conn, code, playerID, playerName string) *Client {
	client := &Client{
		hub:        h,
		id:         uuid.NewString(),
		socket:     conn,
		send:       make(chan []byte, 256),
		matchCode:  NormalizeCode(code),
		playerID:   playerID,
		playerName: playerName,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()

	return client
}

func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.socket.Close()
	}()

	c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		c.socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var msg inboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Error unmarshaling message: %v", err)
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.socket.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.socket.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg inboundMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	switch msg.Type {
	case "ping":
		c.hub.sendTo(c, "pong", "pong")

	case "request_game_state":
		c.hub.SendMatchState(c)

	case "answer":
		var payload struct {
			Value models.Answer `json:"value"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			log.Printf("Bad answer payload from player %s: %v", c.playerID, err)
			return
		}
		res, err := c.hub.matches.SubmitAnswer(ctx, c.matchCode, c.playerID, payload.Value)
		if err != nil {
			log.Printf("Error submitting answer for player %s in match %s: %v", c.playerID, c.matchCode, err)
			c.hub.sendError(c, err)
			return
		}
		c.hub.sendTo(c, "answer_result", res)

	case "launch_attack":
		c.launchAttack(ctx)

	case "reaction":
		var payload struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return
		}
		if err := c.hub.matches.SendReaction(ctx, c.matchCode, c.playerID, payload.Type); err != nil {
			c.hub.sendError(c, err)
		}

	case "leave":
		c.leave(ctx)

	default:
		log.Printf("Unknown message type: %s from player %s (%s) in match %s", msg.Type, c.playerID, c.playerName, c.matchCode)
	}
}

// launchAttack clears the held power-up on the client first and restores
// it if the store rejects the launch.
func (c *Client) launchAttack(ctx context.Context) {
	var res *AttackResult
	RunPending(ctx, "launch_attack", PendingSteps{
		Apply: func(a *PendingAction) {
			c.hub.sendTo(c, "powerup_pending", map[string]interface{}{"action_id": a.ID})
		},
		Remote: func(ctx context.Context) error {
			var err error
			res, err = c.hub.matches.LaunchAttack(ctx, c.matchCode, c.playerID)
			return err
		},
		Confirmed: func(a *PendingAction) {
			c.hub.sendTo(c, "powerup_confirmed", map[string]interface{}{
				"action_id": a.ID,
				"power_up":  res.PowerUp,
				"target":    res.Target,
				"effect":    res.Effect,
			})
		},
		RolledBack: func(a *PendingAction, err error) {
			c.hub.sendTo(c, "powerup_rolled_back", map[string]interface{}{
				"action_id": a.ID,
				"message":   err.Error(),
			})
			c.hub.sendError(c, err)
		},
	})
}

// leave drops the client from the room before the remote write. A failed
// write is reported but never puts the client back.
func (c *Client) leave(ctx context.Context) {
	RunPending(ctx, "leave", PendingSteps{
		Apply: func(a *PendingAction) {
			c.hub.leaveRoom(c)
		},
		Remote: func(ctx context.Context) error {
			return c.hub.matches.LeaveMatch(ctx, c.matchCode, c.playerID)
		},
		Confirmed: func(a *PendingAction) {
			c.hub.sendTo(c, "left", map[string]interface{}{"action_id": a.ID, "state": a.State()})
		},
		RolledBack: func(a *PendingAction, err error) {
			log.Printf("Error leaving match %s for player %s: %v", c.matchCode, c.playerID, err)
			c.hub.sendTo(c, "left", map[string]interface{}{"action_id": a.ID, "state": a.State()})
		},
	})
}
