package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	katmannames "github.com/katmannames/katmannames"
)

// WSHooks are callbacks for server-pushed messages. All of them are optional,
// and all of them are invoked from a single goroutine so implementations
// don't need their own locking.
type WSHooks struct {
	// OnJoined fires once the server has seated us.
	OnJoined func(code katmannames.RoomCode, player katmannames.PlayerID)
	// OnState fires for every projected view the server pushes.
	OnState func(view *katmannames.GameView)
	// OnWarning fires for room-wide advisories.
	OnWarning func(message string)
	// OnError fires when the server rejects one of our intents.
	OnError func(message string)
	// OnClose fires when the connection dies, with the read error.
	OnClose func(err error)
}

// WSClient is one websocket session with the server.
type WSClient struct {
	conn  *websocket.Conn
	hooks WSHooks

	mu sync.Mutex // guards writes to conn

	done chan struct{}
	// Buffered in case messages come in while the caller is waiting on user
	// input. Messages are processed one at a time, in order.
	msgs chan []byte
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DialWS connects to the server's websocket endpoint. No room is joined yet;
// follow up with CreateRoom or JoinRoom.
func (c *Client) DialWS(hooks WSHooks) (*WSClient, error) {
	scheme := "ws"
	if c.scheme == "https" {
		scheme = "wss"
	}

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 45 * time.Second,
		Jar:              c.http.Jar,
	}
	conn, _, err := dialer.Dial(scheme+"://"+c.addr+"/ws", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}

	ws := &WSClient{
		conn:  conn,
		hooks: hooks,
		done:  make(chan struct{}),
		msgs:  make(chan []byte, 100),
	}
	go ws.handleMessages()
	go ws.read()
	return ws, nil
}

// CreateRoom asks the server for a fresh room with us as owner.
func (ws *WSClient) CreateRoom(username string) error {
	return ws.Send("create_room", struct {
		Username string `json:"username"`
	}{username})
}

// JoinRoom joins an existing room. A non-empty playerID reclaims a previous
// seat.
func (ws *WSClient) JoinRoom(code, username string, playerID katmannames.PlayerID) error {
	return ws.Send("join_room", struct {
		RoomCode string               `json:"roomCode"`
		Username string               `json:"username"`
		PlayerID katmannames.PlayerID `json:"playerId,omitempty"`
	}{code, username, playerID})
}

// Send submits one intent envelope.
func (ws *WSClient) Send(kind string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %q payload: %w", kind, err)
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := ws.conn.WriteJSON(envelope{Type: kind, Payload: raw}); err != nil {
		return fmt.Errorf("failed to send %q: %w", kind, err)
	}
	return nil
}

// Close tears the connection down.
func (ws *WSClient) Close() error {
	return ws.conn.Close()
}

func (ws *WSClient) read() {
	defer close(ws.done)
	for {
		messageType, message, err := ws.conn.ReadMessage()
		if err != nil {
			if ws.hooks.OnClose != nil {
				ws.hooks.OnClose(err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		ws.msgs <- message
	}
}

func (ws *WSClient) handleMessages() {
	for {
		select {
		case <-ws.done:
			return
		case msg := <-ws.msgs:
			ws.handle(msg)
		}
	}
}

func (ws *WSClient) handle(msg []byte) {
	var env envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		zap.L().Debug("malformed message from server", zap.Error(err))
		return
	}

	switch env.Type {
	case "joined":
		var payload struct {
			RoomCode katmannames.RoomCode `json:"roomCode"`
			PlayerID katmannames.PlayerID `json:"playerId"`
		}
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			zap.L().Debug("malformed joined payload", zap.Error(err))
			return
		}
		if ws.hooks.OnJoined != nil {
			ws.hooks.OnJoined(payload.RoomCode, payload.PlayerID)
		}
	case "state":
		var view katmannames.GameView
		if err := json.Unmarshal(env.Payload, &view); err != nil {
			zap.L().Debug("malformed state payload", zap.Error(err))
			return
		}
		if ws.hooks.OnState != nil {
			ws.hooks.OnState(&view)
		}
	case "warning":
		ws.handleMessagePayload(env.Payload, ws.hooks.OnWarning)
	case "error":
		ws.handleMessagePayload(env.Payload, ws.hooks.OnError)
	default:
		zap.L().Debug("unknown message type from server", zap.String("type", env.Type))
	}
}

func (ws *WSClient) handleMessagePayload(raw json.RawMessage, hook func(string)) {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		zap.L().Debug("malformed message payload", zap.Error(err))
		return
	}
	if hook != nil {
		hook(payload.Message)
	}
}
