// ABOUTME: WebSocket hub with per-conversation rooms
// ABOUTME: Fans out conversation events in order; slow subscribers are dropped, never block the room

package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Valey88/Profit-AI/internal/store"
)

// Server-to-client event types.
const (
	EventStatus      = "status"
	EventTypingStart = "typing_start"
	EventNewMessage  = "new_message"
)

// Client-to-server frame types.
const (
	frameJoinChat    = "join_chat"
	frameSendMessage = "send_message"
)

// Event is a server-to-client frame.
type Event struct {
	Type           string          `json:"type"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Content        string          `json:"content,omitempty"`
	Message        *MessagePayload `json:"message,omitempty"`
}

// MessagePayload is the wire shape of a persisted message carried inside a
// new_message event.
type MessagePayload struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// MessageOf converts a stored message into its wire payload.
func MessageOf(msg *store.Message) *MessagePayload {
	return &MessagePayload{
		ID:        msg.ID,
		Role:      string(msg.Role),
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt.Format(time.RFC3339),
	}
}

// clientFrame is a client-to-server frame.
type clientFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	Content        string `json:"content,omitempty"`
}

// InboundHandler receives send_message frames from connected operator
// consoles. The hub does not interpret the text; routing mode changes and
// persistence are the handler's business.
type InboundHandler func(ctx context.Context, conversationID, text string)

// sendBuffer is the per-client outbound queue depth. A client that falls this
// far behind is disconnected rather than allowed to stall the room.
const sendBuffer = 64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub tracks connected clients grouped into per-conversation rooms.
type Hub struct {
	logger  *slog.Logger
	handler InboundHandler

	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

type client struct {
	conn      *websocket.Conn
	send      chan []byte
	closeSend sync.Once

	// room is guarded by the hub mutex.
	room string
}

// close shuts the send queue exactly once, ending the write pump.
func (c *client) close() {
	c.closeSend.Do(func() { close(c.send) })
}

func NewHub(handler InboundHandler, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:  logger.With("component", "realtime"),
		handler: handler,
		rooms:   make(map[string]map[*client]struct{}),
	}
}

// Broadcast delivers an event to every client joined to the conversation.
// Events enqueue in call order; a client whose queue is full is closed.
func (h *Hub) Broadcast(conversationID string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("marshaling event", "error", err, "type", event.Type)
		return
	}

	// Full lock: dropping a slow client mutates the room.
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[conversationID] {
		select {
		case c.send <- data:
		default:
			// Slow consumer. Closing send makes the write pump exit,
			// which tears the connection down.
			h.logger.Warn("dropping slow websocket client", "conversation_id", conversationID)
			c.close()
			delete(h.rooms[conversationID], c)
			c.room = ""
		}
	}
}

// RoomSize reports how many clients are joined to a conversation.
func (h *Hub) RoomSize(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

// ServeHTTP makes the hub mountable on any mux.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.ServeWS(w, r)
}

// ServeWS upgrades the request and runs the client until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	go c.writePump()

	h.logger.Info("websocket client connected", "remote", r.RemoteAddr)
	h.readPump(r.Context(), c)
}

// readPump consumes client frames until the connection drops, then removes
// the client from its room.
func (h *Hub) readPump(ctx context.Context, c *client) {
	defer func() {
		h.leave(c)
		c.close()
		c.conn.Close()
		h.logger.Info("websocket client disconnected")
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			h.logger.Warn("invalid websocket frame", "error", err)
			continue
		}

		switch frame.Type {
		case frameJoinChat:
			if frame.ConversationID == "" {
				continue
			}
			h.join(c, frame.ConversationID)
			c.enqueue(Event{
				Type:           EventStatus,
				ConversationID: frame.ConversationID,
				Content:        "joined",
			})

		case frameSendMessage:
			if h.handler == nil || c.currentRoom(h) == "" {
				continue
			}
			h.handler(ctx, c.currentRoom(h), frame.Content)

		default:
			h.logger.Debug("unknown websocket frame type", "type", frame.Type)
		}
	}
}

// join moves the client into a room, leaving its previous room implicitly.
func (h *Hub) join(c *client, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.room != "" {
		delete(h.rooms[c.room], c)
		if len(h.rooms[c.room]) == 0 {
			delete(h.rooms, c.room)
		}
	}
	if h.rooms[conversationID] == nil {
		h.rooms[conversationID] = make(map[*client]struct{})
	}
	h.rooms[conversationID][c] = struct{}{}
	c.room = conversationID
}

func (h *Hub) leave(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.room == "" {
		return
	}
	if room, ok := h.rooms[c.room]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.room)
		}
	}
	c.room = ""
}

func (c *client) currentRoom(h *Hub) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return c.room
}

// enqueue queues a frame directly for this client, bypassing rooms.
func (c *client) enqueue(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// writePump drains the send queue onto the wire. A closed queue ends the
// connection.
func (c *client) writePump() {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	c.conn.Close()
}
