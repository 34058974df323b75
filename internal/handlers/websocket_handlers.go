package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/SAADX25/SafeChat/internal/auth"
	"github.com/SAADX25/SafeChat/internal/models"
	"github.com/SAADX25/SafeChat/internal/services"
	"github.com/SAADX25/SafeChat/internal/socket"
	"github.com/SAADX25/SafeChat/pkg/logger"

	"github.com/gorilla/websocket"
)

type WebSocketHandlers struct {
	authService    *auth.Service
	channelService *services.ChannelService
	hub            *socket.Hub
	upgrader       websocket.Upgrader
}

func NewWebSocketHandlers(authService *auth.Service, channelService *services.ChannelService, hub *socket.Hub) *WebSocketHandlers {
	return &WebSocketHandlers{
		authService:    authService,
		channelService: channelService,
		hub:            hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Configure for production
		},
	}
}

func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenStr := bearerToken(r)
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	// Validate token and get user
	user, err := h.authService.GetUserFromToken(r.Context(), tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	// An optional channel query parameter joins immediately on connect.
	var joinData []byte
	if channelName := r.URL.Query().Get("channel"); channelName != "" {
		channel, err := h.channelService.GetOrCreateChannel(r.Context(), channelName, user.ID)
		if err != nil {
			logger.Error("Error resolving channel: %v", err)
			http.Error(w, "error accessing channel", http.StatusInternalServerError)
			return
		}
		joinData, err = json.Marshal(models.JoinPayload{UserID: user.ID, ChannelID: channel.ID})
		if err != nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
	}

	// Upgrade connection to WebSocket
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	conn := socket.NewConn(h.hub, ws)
	if !h.hub.Connect(conn) {
		ws.Close()
		return
	}

	if joinData != nil {
		h.hub.Dispatch(conn, models.Envelope{Type: models.EventJoin, Data: joinData})
	}

	// Start client pumps
	go conn.WritePump()
	go conn.ReadPump()
}

// HandleOnline serves the presence tracker's current list.
func (h *WebSocketHandlers) HandleOnline(w http.ResponseWriter, r *http.Request) {
	if _, err := requestUser(r, h.authService); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	users := h.hub.Presence().ListOnline(r.Context())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.OnlineUsersPayload{
		Users: users,
		Count: len(users),
	})
}
