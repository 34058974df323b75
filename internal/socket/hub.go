package socket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/SAADX25/SafeChat/internal/models"
	"github.com/SAADX25/SafeChat/internal/store"
	"github.com/SAADX25/SafeChat/pkg/logger"
)

const defaultHistoryLimit = 50

// inbound pairs a decoded frame with the connection it arrived on.
type inbound struct {
	conn *Conn
	env  models.Envelope
}

// Hub owns every live connection and the per-room rosters. All mutation of
// that state happens on the Run goroutine; connections talk to it over
// channels, so handlers never need a lock. Room rosters keep join order,
// which makes first-seen-wins de-duplication of room_users deterministic.
type Hub struct {
	Register   chan *Conn
	Unregister chan *Conn
	inbound    chan inbound
	settle     chan string
	shutdown   chan struct{}

	conns    map[*Conn]bool
	rooms    map[string][]*Conn
	presence *PresenceTracker
	db       store.Store
	grace    time.Duration
}

func NewHub(db store.Store, presence *PresenceTracker, grace time.Duration) *Hub {
	return &Hub{
		Register:   make(chan *Conn),
		Unregister: make(chan *Conn),
		inbound:    make(chan inbound, 64),
		settle:     make(chan string, 16),
		shutdown:   make(chan struct{}),
		conns:      make(map[*Conn]bool),
		rooms:      make(map[string][]*Conn),
		presence:   presence,
		db:         db,
		grace:      grace,
	}
}

// Presence exposes the tracker for HTTP handlers.
func (h *Hub) Presence() *PresenceTracker {
	return h.presence
}

// Connect registers the connection with the hub loop. It reports false when
// the hub has already stopped.
func (h *Hub) Connect(c *Conn) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.shutdown:
		return false
	}
}

// Dispatch hands an inbound frame to the hub loop.
func (h *Hub) Dispatch(c *Conn, env models.Envelope) {
	select {
	case h.inbound <- inbound{conn: c, env: env}:
	case <-h.shutdown:
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.shutdown:
			for c := range h.conns {
				close(c.send)
			}
			return

		case c := <-h.Register:
			h.handleRegister(c)

		case c := <-h.Unregister:
			h.handleUnregister(c)

		case in := <-h.inbound:
			h.handleFrame(in.conn, in.env)

		case roomID := <-h.settle:
			h.notifyRoom(roomID)
		}
	}
}

func (h *Hub) Stop() {
	close(h.shutdown)
}

func (h *Hub) handleRegister(c *Conn) {
	h.conns[c] = true
	// The new connection gets the current online list privately.
	h.send(c, models.EventOnlineUsers, h.onlineUsersPayload())
}

func (h *Hub) handleUnregister(c *Conn) {
	if !h.conns[c] {
		return
	}
	delete(h.conns, c)
	close(c.send)

	ctx := context.Background()
	if c.userID != "" {
		if last := h.presence.Detach(ctx, c.userID); last {
			h.broadcastOnlineUsers()
		}
		logger.Debug("User %s disconnected (session %s)", c.userID, c.id)
	}

	if c.roomID != "" {
		h.removeFromRoom(c.roomID, c)
		h.scheduleSettle(c.roomID)
	}
}

func (h *Hub) handleFrame(c *Conn, env models.Envelope) {
	if !h.conns[c] {
		// Frame raced with the connection's teardown.
		return
	}

	switch env.Type {
	case models.EventJoin:
		var p models.JoinPayload
		if decodeInto(env, &p) {
			h.handleJoin(c, p)
		}
	case models.EventMessage:
		var p models.SendMessagePayload
		if decodeInto(env, &p) {
			h.handleMessage(c, p)
		}
	case models.EventTyping:
		var p models.TypingPayload
		if decodeInto(env, &p) {
			h.handleTyping(c, p)
		}
	case models.EventEdit:
		var p models.EditPayload
		if decodeInto(env, &p) {
			h.handleEdit(c, p)
		}
	case models.EventReact:
		var p models.ReactPayload
		if decodeInto(env, &p) {
			h.handleReact(c, p)
		}
	default:
		logger.Debug("Ignoring frame type %q from session %s", env.Type, c.id)
	}
}

// handleJoin attaches the connection to the declared user and moves it into
// the requested room. A join naming an unknown user is silently ignored.
func (h *Hub) handleJoin(c *Conn, p models.JoinPayload) {
	ctx := context.Background()

	user, err := h.db.GetUserByID(ctx, p.UserID)
	if err != nil {
		logger.Debug("Join for unknown user %q ignored", p.UserID)
		return
	}

	if c.userID != p.UserID {
		// Detach the previous identity and attach the new one as one
		// step, so interleaved observers never see both or neither.
		changed := false
		if c.userID != "" {
			if last := h.presence.Detach(ctx, c.userID); last {
				changed = true
			}
		}
		if first := h.presence.Attach(ctx, p.UserID); first {
			changed = true
		}
		c.userID = p.UserID
		c.username = user.Username
		if changed {
			h.broadcastOnlineUsers()
		}
	}

	h.moveToRoom(c, p.ChannelID)

	if p.ChannelID != "" {
		h.sendHistory(c, p.ChannelID)
	}
}

func (h *Hub) handleMessage(c *Conn, p models.SendMessagePayload) {
	if c.userID == "" || c.roomID == "" {
		return
	}

	kind := p.Kind
	if kind == "" {
		kind = models.MessageKindText
	}
	switch kind {
	case models.MessageKindText:
		if p.Text == "" {
			return
		}
	case models.MessageKindFile, models.MessageKindVoice:
		if p.FileID == "" {
			return
		}
	default:
		h.sendError(c, "unknown message kind")
		return
	}

	msg := &models.Message{
		ChannelID:  c.roomID,
		UserID:     c.userID,
		Username:   c.username,
		Kind:       kind,
		Text:       p.Text,
		FileID:     p.FileID,
		DurationMs: p.DurationMs,
	}

	ctx := context.Background()
	if err := h.db.SaveMessage(ctx, msg); err != nil {
		logger.Error("Error saving message: %v", err)
	}

	h.broadcastToRoom(c.roomID, models.EventMessage, models.MessagePayload{Message: msg})
}

func (h *Hub) handleTyping(c *Conn, p models.TypingPayload) {
	if c.userID == "" || c.roomID == "" {
		return
	}

	ctx := context.Background()
	user, err := h.db.GetUserByID(ctx, c.userID)
	if err != nil {
		return
	}
	h.broadcastToRoom(c.roomID, models.EventTyping, models.TypingEventPayload{
		ChannelID: c.roomID,
		User:      user.Public(),
		Active:    p.Active,
	})
}

func (h *Hub) handleEdit(c *Conn, p models.EditPayload) {
	if c.userID == "" || c.roomID == "" || p.Text == "" {
		return
	}

	ctx := context.Background()
	msg, err := h.db.GetMessageByID(ctx, p.MessageID)
	if err != nil {
		h.sendError(c, "message not found")
		return
	}
	if msg.UserID != c.userID {
		h.sendError(c, "cannot edit another user's message")
		return
	}

	edited, err := h.db.EditMessage(ctx, p.MessageID, p.Text)
	if err != nil {
		logger.Error("Error editing message %s: %v", p.MessageID, err)
		h.sendError(c, "edit failed")
		return
	}

	h.broadcastToRoom(edited.ChannelID, models.EventMessageEdited, models.MessagePayload{Message: edited})
}

func (h *Hub) handleReact(c *Conn, p models.ReactPayload) {
	if c.userID == "" || c.roomID == "" || p.Emoji == "" {
		return
	}

	ctx := context.Background()
	msg, err := h.db.ToggleReaction(ctx, p.MessageID, c.userID, p.Emoji)
	if err != nil {
		h.sendError(c, "message not found")
		return
	}

	h.broadcastToRoom(msg.ChannelID, models.EventReaction, models.MessagePayload{Message: msg})
}

func (h *Hub) sendHistory(c *Conn, channelID string) {
	ctx := context.Background()
	messages, err := h.db.LoadRecentMessages(ctx, channelID, defaultHistoryLimit)
	if err != nil {
		logger.Error("Error loading history for channel %s: %v", channelID, err)
		return
	}
	h.send(c, models.EventHistory, models.HistoryPayload{
		ChannelID: channelID,
		Messages:  messages,
	})
}

func (h *Hub) onlineUsersPayload() models.OnlineUsersPayload {
	users := h.presence.ListOnline(context.Background())
	return models.OnlineUsersPayload{Users: users, Count: len(users)}
}

func (h *Hub) broadcastOnlineUsers() {
	data, err := models.EncodeEvent(models.EventOnlineUsers, h.onlineUsersPayload())
	if err != nil {
		logger.Error("Error encoding online_users: %v", err)
		return
	}
	for c := range h.conns {
		h.sendRaw(c, data)
	}
}

func (h *Hub) broadcastToRoom(roomID string, t models.EventType, payload interface{}) {
	data, err := models.EncodeEvent(t, payload)
	if err != nil {
		logger.Error("Error encoding %s: %v", t, err)
		return
	}
	// Copy the roster: sendRaw can remove a stalled connection mid-loop.
	roster := append([]*Conn(nil), h.rooms[roomID]...)
	for _, c := range roster {
		h.sendRaw(c, data)
	}
}

func (h *Hub) send(c *Conn, t models.EventType, payload interface{}) {
	data, err := models.EncodeEvent(t, payload)
	if err != nil {
		logger.Error("Error encoding %s: %v", t, err)
		return
	}
	h.sendRaw(c, data)
}

func (h *Hub) sendError(c *Conn, msg string) {
	h.send(c, models.EventError, models.ErrorPayload{Message: msg})
}

// sendRaw delivers best-effort: a connection whose send buffer is full is
// torn down rather than allowed to stall the loop.
func (h *Hub) sendRaw(c *Conn, data []byte) {
	if !h.conns[c] {
		return
	}
	select {
	case c.send <- data:
	default:
		h.handleUnregister(c)
	}
}

func decodeInto(env models.Envelope, v interface{}) bool {
	if len(env.Data) == 0 {
		return false
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		logger.Debug("Malformed %s payload: %v", env.Type, err)
		return false
	}
	return true
}
