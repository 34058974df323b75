package socket

import (
	"encoding/json"
	"time"

	"github.com/SAADX25/SafeChat/internal/models"
	"github.com/SAADX25/SafeChat/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = 54 * time.Second
	maxFrameSize    = 64 * 1024
	rateLimitWindow = 3 * time.Second
	rateLimitBurst  = 10
)

// Conn is one live socket session. The userID and roomID fields are owned by
// the hub loop: they are written only while handling this connection's
// events, never from the pump goroutines.
type Conn struct {
	hub  *Hub
	ws   *websocket.Conn
	send chan []byte
	id   string

	userID   string
	username string
	roomID   string

	frameTimes []time.Time
}

func NewConn(hub *Hub, ws *websocket.Conn) *Conn {
	return &Conn{
		hub:  hub,
		ws:   ws,
		send: make(chan []byte, 256),
		id:   uuid.NewString(),
	}
}

// ID returns the opaque session id.
func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) ReadPump() {
	defer func() {
		select {
		case c.hub.Unregister <- c:
		case <-c.hub.shutdown:
		}
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxFrameSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error: %v", err)
			}
			break
		}

		var env models.Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			logger.Debug("Dropping malformed frame from session %s: %v", c.id, err)
			continue
		}

		if !c.allowFrame(time.Now()) {
			c.notifyRateLimit()
			continue
		}

		c.hub.Dispatch(c, env)
	}
}

func (c *Conn) WritePump() {
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
				logger.Error("Write error: %v", err)
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

// allowFrame enforces a sliding-window limit on inbound frames. Only the
// read pump touches frameTimes.
func (c *Conn) allowFrame(now time.Time) bool {
	cutoff := now.Add(-rateLimitWindow)
	kept := c.frameTimes[:0]
	for _, t := range c.frameTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	c.frameTimes = kept
	if len(c.frameTimes) >= rateLimitBurst {
		return false
	}
	c.frameTimes = append(c.frameTimes, now)
	return true
}

func (c *Conn) notifyRateLimit() {
	data, err := models.EncodeEvent(models.EventError, models.ErrorPayload{
		Message: "rate limit exceeded, slow down",
	})
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
