// Package hub maintains the set of active websocket connections, grouped by
// room, and shuttles JSON messages between them and the session layer. It is
// deliberately dumb about game rules: inbound envelopes are handed to a single
// IntentHandler and outbound views are pushed per player.
package hub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/gorilla/websocket"

	katmannames "github.com/katmannames/katmannames"
)

// Envelope is the wire framing for every message in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ErrorPayload is the payload of "error" and "warning" envelopes.
type ErrorPayload struct {
	Message string `json:"message"`
}

// IntentHandler processes one inbound intent from a registered connection.
// The returned error is reported back to that connection only.
type IntentHandler func(code katmannames.RoomCode, player katmannames.PlayerID, kind string, payload json.RawMessage) error

// Hub tracks connections per room and broadcasts messages to them.
type Hub struct {
	handler IntentHandler

	// Registered connections, by room.
	connections map[katmannames.RoomCode][]*connection

	// Messages to send to everyone in a room.
	broadcast chan *broadcastMsg

	// Messages to send to a single player in a room.
	user chan *userMsg

	// Register requests from new connections.
	register chan *connection

	// Unregister requests from closing connections.
	unregister chan *connection
}

// New creates a Hub and starts it in a background goroutine.
func New(handler IntentHandler) *Hub {
	h := &Hub{
		handler:     handler,
		connections: make(map[katmannames.RoomCode][]*connection),
		broadcast:   make(chan *broadcastMsg),
		user:        make(chan *userMsg),
		register:    make(chan *connection),
		unregister:  make(chan *connection),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.connections[c.code] = append(h.connections[c.code], c)
		case c := <-h.unregister:
			h.deleteConn(c)
		case m := <-h.broadcast:
			// Deletions wait until the range is done; deleteConn shifts
			// the very slice being iterated.
			var doomed []*connection
			for _, c := range h.connections[m.code] {
				select {
				case c.send <- m.msg:
				default:
					doomed = append(doomed, c)
				}
			}
			for _, c := range doomed {
				h.deleteConn(c)
			}
		case m := <-h.user:
			var doomed []*connection
			for _, c := range h.connections[m.code] {
				if c.player != m.player {
					continue
				}
				select {
				case c.send <- m.msg:
				default:
					doomed = append(doomed, c)
				}
			}
			for _, c := range doomed {
				h.deleteConn(c)
			}
		}
	}
}

func (h *Hub) deleteConn(c *connection) {
	conns := h.connections[c.code]
	for i, conn := range conns {
		if conn.id == c.id {
			close(c.send)
			copy(conns[i:], conns[i+1:])
			conns[len(conns)-1] = nil
			h.connections[c.code] = conns[:len(conns)-1]
			return
		}
	}
}

type broadcastMsg struct {
	code katmannames.RoomCode
	msg  []byte
}

type userMsg struct {
	code   katmannames.RoomCode
	player katmannames.PlayerID
	msg    []byte
}

// ToRoom sends an envelope to every connection in a room.
func (h *Hub) ToRoom(code katmannames.RoomCode, typ string, payload interface{}) error {
	msg, err := encode(typ, payload)
	if err != nil {
		return err
	}
	h.broadcast <- &broadcastMsg{code: code, msg: msg}
	return nil
}

// ToPlayer sends an envelope to one player's connections in a room.
func (h *Hub) ToPlayer(code katmannames.RoomCode, player katmannames.PlayerID, typ string, payload interface{}) error {
	msg, err := encode(typ, payload)
	if err != nil {
		return err
	}
	h.user <- &userMsg{code: code, player: player, msg: msg}
	return nil
}

func encode(typ string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %q payload: %w", typ, err)
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(Envelope{Type: typ, Payload: raw}); err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return buf.Bytes(), nil
}

// GameState pushes a projected view to one player. Implements the session
// layer's notifier.
func (h *Hub) GameState(code katmannames.RoomCode, player katmannames.PlayerID, view *katmannames.GameView) {
	_ = h.ToPlayer(code, player, "state", view)
}

// Warning pushes an advisory message to everyone in the room.
func (h *Hub) Warning(code katmannames.RoomCode, message string) {
	_ = h.ToRoom(code, "warning", ErrorPayload{Message: message})
}

// Register associates a websocket with a room and player and starts its read
// and write pumps. The hub owns the socket from here on.
func (h *Hub) Register(ws *websocket.Conn, code katmannames.RoomCode, player katmannames.PlayerID) {
	c := newConnection(h, ws, code, player)
	h.register <- c
	go c.writePump()
	go c.readPump()
}

func newID(code katmannames.RoomCode) string {
	return fmt.Sprintf("%s-%d", code, rand.Int63())
}
