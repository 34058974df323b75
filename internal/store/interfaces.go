package store

import (
	"context"
	"errors"

	"github.com/SAADX25/SafeChat/internal/models"
)

// ErrNotFound is returned by lookups for records that do not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique field (username, email, channel
// name) collides with an existing record.
var ErrDuplicate = errors.New("record already exists")

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUserStatus(ctx context.Context, id, status string) error
}

type ChannelStore interface {
	CreateChannel(ctx context.Context, channel *models.Channel) error
	GetChannelByID(ctx context.Context, id string) (*models.Channel, error)
	GetOrCreateChannel(ctx context.Context, name, ownerID string) (*models.Channel, error)
	ListChannels(ctx context.Context) ([]*models.Channel, error)
	DeleteChannel(ctx context.Context, id string) error
}

type MessageStore interface {
	SaveMessage(ctx context.Context, msg *models.Message) error
	GetMessageByID(ctx context.Context, id string) (*models.Message, error)
	LoadRecentMessages(ctx context.Context, channelID string, limit int) ([]*models.Message, error)
	EditMessage(ctx context.Context, id, text string) (*models.Message, error)
	ToggleReaction(ctx context.Context, id, userID, emoji string) (*models.Message, error)
}

type FileStore interface {
	SaveFile(ctx context.Context, meta *models.FileMeta) error
	GetFileByID(ctx context.Context, id string) (*models.FileMeta, error)
}

type Store interface {
	UserStore
	ChannelStore
	MessageStore
	FileStore
	Close() error
}
