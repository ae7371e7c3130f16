package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/socialzwater/backend/internal/logger"
)

// Event types pushed to operators.
const (
	EventScanCreated    = "scan:created"
	EventScanSubmitted  = "scan:submitted"
	EventRewardUpdated  = "reward:updated"
	EventBudgetExceeded = "budget:exceeded"
)

// FeedRoom receives every event. Clients join it on connect and may leave it
// to follow only the campaign rooms they joined explicitly.
const FeedRoom = "feed"

// CampaignRoom is the room for events about one campaign.
func CampaignRoom(uid string) string {
	return "campaign:" + uid
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Message represents a WebSocket message
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Client represents a WebSocket client
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	operatorID string
	rooms      map[string]bool
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	clients    map[*Client]bool
	rooms      map[string]map[*Client]bool // room -> clients
	broadcast  chan *BroadcastMessage
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

type BroadcastMessage struct {
	Rooms   []string
	Type    string
	Payload interface{}
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan *BroadcastMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// SetAllowedOrigin restricts upgrades to one origin. "*" allows any.
func SetAllowedOrigin(origin string) {
	upgrader.CheckOrigin = func(r *http.Request) bool {
		return origin == "*" || r.Header.Get("Origin") == "" || r.Header.Get("Origin") == origin
	}
}

// Run starts the Hub main loop until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.joinLocked(client, FeedRoom)
			h.mu.Unlock()
			logger.Debug().Str("operator_id", client.operatorID).Msg("Live feed client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()
			logger.Debug().Str("operator_id", client.operatorID).Msg("Live feed client disconnected")

		case msg := <-h.broadcast:
			h.handleBroadcast(msg)
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	for room := range client.rooms {
		if roomClients, ok := h.rooms[room]; ok {
			delete(roomClients, client)
			if len(roomClients) == 0 {
				delete(h.rooms, room)
			}
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		h.removeLocked(client)
	}
}

// handleBroadcast delivers msg once to every client in any of its rooms.
// Clients whose buffer is full are dropped.
func (h *Hub) handleBroadcast(msg *BroadcastMessage) {
	data, err := json.Marshal(Message{
		Type:    msg.Type,
		Payload: msg.Payload,
	})
	if err != nil {
		logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal live feed message")
		return
	}

	var slow []*Client

	h.mu.RLock()
	seen := make(map[*Client]bool)
	for _, room := range msg.Rooms {
		for client := range h.rooms[room] {
			if seen[client] {
				continue
			}
			seen[client] = true
			select {
			case client.send <- data:
			default:
				slow = append(slow, client)
			}
		}
	}
	h.mu.RUnlock()

	if len(slow) > 0 {
		h.mu.Lock()
		for _, client := range slow {
			h.removeLocked(client)
		}
		h.mu.Unlock()
	}
}

// Publish queues an event for the feed and for the campaign's room.
// It never blocks: when the queue is full the event is dropped.
// Safe to call on a nil Hub.
func (h *Hub) Publish(campaignUID, msgType string, payload interface{}) {
	if h == nil {
		return
	}
	rooms := []string{FeedRoom}
	if campaignUID != "" {
		rooms = append(rooms, CampaignRoom(campaignUID))
	}
	select {
	case h.broadcast <- &BroadcastMessage{Rooms: rooms, Type: msgType, Payload: payload}:
	default:
		logger.Warn().Str("type", msgType).Msg("Live feed queue full, dropping event")
	}
}

func (h *Hub) joinLocked(client *Client, room string) {
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
	client.rooms[room] = true
}

// JoinRoom adds a client to a room
func (h *Hub) JoinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	h.joinLocked(client, room)
}

// LeaveRoom removes a client from a room
func (h *Hub) LeaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if roomClients, ok := h.rooms[room]; ok {
		delete(roomClients, client)
	}
	delete(client.rooms, room)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWs upgrades an already authenticated operator request.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request, operatorID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &Client{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, 256),
		operatorID: operatorID,
		rooms:      make(map[string]bool),
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn().Err(err).Msg("WebSocket read error")
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second) // Ping interval
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes incoming WebSocket messages
func (c *Client) handleMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}

	room, _ := msg.Payload.(string)

	switch msg.Type {
	case "join_room":
		if room == FeedRoom || strings.HasPrefix(room, "campaign:") {
			c.hub.JoinRoom(c, room)
		}

	case "leave_room":
		if room != "" {
			c.hub.LeaveRoom(c, room)
		}
	}
}
