package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/SAADX25/SafeChat/internal/auth"
	"github.com/SAADX25/SafeChat/internal/models"
	"github.com/SAADX25/SafeChat/internal/services"
	"github.com/SAADX25/SafeChat/internal/store"
	"github.com/SAADX25/SafeChat/pkg/logger"
)

type ChannelHandlers struct {
	channelService *services.ChannelService
	authService    *auth.Service
}

func NewChannelHandlers(channelService *services.ChannelService, authService *auth.Service) *ChannelHandlers {
	return &ChannelHandlers{
		channelService: channelService,
		authService:    authService,
	}
}

func (h *ChannelHandlers) CreateChannel(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.CreateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	channel, err := h.channelService.CreateChannel(r.Context(), &req, user.ID)
	if err != nil {
		logger.Error("Create channel error: %v", err)
		status := http.StatusBadRequest
		if errors.Is(err, store.ErrDuplicate) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(channel)
}

func (h *ChannelHandlers) ListChannels(w http.ResponseWriter, r *http.Request) {
	if _, err := requestUser(r, h.authService); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	channels, err := h.channelService.ListChannels(r.Context())
	if err != nil {
		logger.Error("List channels error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(channels)
}

func (h *ChannelHandlers) DeleteChannel(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	channelID, err := channelIDFromPath(r)
	if err != nil {
		http.Error(w, "invalid channel ID", http.StatusBadRequest)
		return
	}

	if err := h.channelService.DeleteChannel(r.Context(), channelID, user.ID); err != nil {
		logger.Error("Delete channel error: %v", err)
		status := http.StatusForbidden
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("channel deleted successfully"))
}

func (h *ChannelHandlers) GetMessages(w http.ResponseWriter, r *http.Request) {
	if _, err := requestUser(r, h.authService); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	channelID, err := channelIDFromPath(r)
	if err != nil {
		http.Error(w, "invalid channel ID", http.StatusBadRequest)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	messages, err := h.channelService.RecentMessages(r.Context(), channelID, limit)
	if err != nil {
		logger.Error("Get messages error: %v", err)
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"channel_id": channelID,
		"messages":   messages,
		"count":      len(messages),
	})
}

func channelIDFromPath(r *http.Request) (string, error) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 3 || parts[2] == "" {
		return "", errors.New("invalid path")
	}
	return parts[2], nil
}
