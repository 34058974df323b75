package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/SAADX25/SafeChat/internal/models"
	"github.com/SAADX25/SafeChat/internal/store"
)

const maxChannelNameLen = 50

type ChannelService struct {
	db store.Store
}

func NewChannelService(db store.Store) *ChannelService {
	return &ChannelService{db: db}
}

func (s *ChannelService) CreateChannel(ctx context.Context, req *models.CreateChannelRequest, ownerID string) (*models.Channel, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("channel name is required")
	}
	if len(name) > maxChannelNameLen {
		return nil, fmt.Errorf("channel name must be at most %d characters", maxChannelNameLen)
	}

	channel := &models.Channel{
		Name:    name,
		OwnerID: ownerID,
	}
	if err := s.db.CreateChannel(ctx, channel); err != nil {
		return nil, err
	}
	return channel, nil
}

func (s *ChannelService) GetOrCreateChannel(ctx context.Context, name, ownerID string) (*models.Channel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("channel name is required")
	}
	return s.db.GetOrCreateChannel(ctx, name, ownerID)
}

func (s *ChannelService) ListChannels(ctx context.Context) ([]*models.Channel, error) {
	return s.db.ListChannels(ctx)
}

func (s *ChannelService) GetChannel(ctx context.Context, channelID string) (*models.Channel, error) {
	return s.db.GetChannelByID(ctx, channelID)
}

func (s *ChannelService) DeleteChannel(ctx context.Context, channelID, userID string) error {
	// Only the owner deletes a channel; its messages go with it.
	channel, err := s.db.GetChannelByID(ctx, channelID)
	if err != nil {
		return fmt.Errorf("channel not found: %w", err)
	}
	if channel.OwnerID != userID {
		return fmt.Errorf("forbidden - not the channel owner")
	}

	return s.db.DeleteChannel(ctx, channelID)
}

func (s *ChannelService) RecentMessages(ctx context.Context, channelID string, limit int) ([]*models.Message, error) {
	if _, err := s.db.GetChannelByID(ctx, channelID); err != nil {
		return nil, fmt.Errorf("channel not found")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.db.LoadRecentMessages(ctx, channelID, limit)
}
