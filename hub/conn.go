package hub

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	katmannames "github.com/katmannames/katmannames"
)

const (
	// writeWait is how long a single socket write may take.
	writeWait = 10 * time.Second
	// pongWait is how long we wait for a pong before declaring the peer dead.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize bounds inbound frames; intents are tiny.
	maxMessageSize = 4 << 10

	// Inbound intents are throttled per connection. A burst covers a player
	// clicking through lobby settings quickly.
	intentRate  = 10
	intentBurst = 20
)

type connection struct {
	id     string
	h      *Hub
	code   katmannames.RoomCode
	player katmannames.PlayerID

	send    chan []byte
	ws      *websocket.Conn
	limiter *rate.Limiter
}

func newConnection(h *Hub, ws *websocket.Conn, code katmannames.RoomCode, player katmannames.PlayerID) *connection {
	return &connection{
		id:      newID(code),
		h:       h,
		code:    code,
		player:  player,
		send:    make(chan []byte, 256),
		ws:      ws,
		limiter: rate.NewLimiter(intentRate, intentBurst),
	}
}

// readPump relays inbound envelopes to the hub's handler until the socket
// dies. Handler errors go back to this connection only; the game state the
// other players see is unaffected.
func (c *connection) readPump() {
	defer func() {
		c.h.unregister <- c
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("websocket read failed",
					zap.String("room", string(c.code)), zap.Error(err))
			}
			return
		}

		if !c.limiter.Allow() {
			c.reportError(errors.New("slow down"))
			continue
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.reportError(errors.New("malformed message"))
			continue
		}
		if err := c.h.handler(c.code, c.player, env.Type, env.Payload); err != nil {
			c.reportError(err)
		}
	}
}

func (c *connection) reportError(err error) {
	msg, encErr := encode("error", ErrorPayload{Message: err.Error()})
	if encErr != nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// writePump drains the send channel to the socket and keeps the peer alive
// with pings.
func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
