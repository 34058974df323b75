package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/SAADX25/SafeChat/internal/models"

	"github.com/google/uuid"
)

// document is the on-disk shape of the whole dataset.
type document struct {
	Users    []*models.User     `json:"users"`
	Channels []*models.Channel  `json:"channels"`
	Messages []*models.Message  `json:"messages"`
	Files    []*models.FileMeta `json:"files"`
}

// JSONFileStore keeps the entire dataset in memory and rewrites a single
// JSON file on every mutation. Writes go through a temp file plus rename so
// a crash never leaves a half-written database behind.
type JSONFileStore struct {
	mu   sync.Mutex
	path string
	doc  document
}

// NewJSONFileStore loads (or creates) the database file at path. Persisted
// user statuses are reset to offline: presence reflects current connections,
// and a fresh process has none.
func NewJSONFileStore(path string) (*JSONFileStore, error) {
	if path == "" {
		path = "safechat.json"
	}
	s := &JSONFileStore{path: path}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &s.doc); err != nil {
			return nil, fmt.Errorf("parse store file %s: %w", path, err)
		}
	case os.IsNotExist(err):
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create store directory: %w", err)
			}
		}
	default:
		return nil, fmt.Errorf("read store file %s: %w", path, err)
	}

	for _, u := range s.doc.Users {
		u.Status = models.StatusOffline
	}
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONFileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

func (s *JSONFileStore) persistLocked() error {
	data, err := json.MarshalIndent(&s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}

// User store

func (s *JSONFileStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.doc.Users {
		if u.Email == user.Email || u.Username == user.Username {
			return ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.Status == "" {
		user.Status = models.StatusOffline
	}
	s.doc.Users = append(s.doc.Users, cloneUser(user))
	return s.persistLocked()
}

func (s *JSONFileStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.doc.Users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *JSONFileStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.doc.Users {
		if u.ID == id {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *JSONFileStore) UpdateUserStatus(_ context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.doc.Users {
		if u.ID == id {
			u.Status = status
			return s.persistLocked()
		}
	}
	return ErrNotFound
}

// Channel store

func (s *JSONFileStore) CreateChannel(_ context.Context, channel *models.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.doc.Channels {
		if c.Name == channel.Name {
			return ErrDuplicate
		}
	}
	if channel.ID == "" {
		channel.ID = uuid.NewString()
	}
	if channel.CreatedAt.IsZero() {
		channel.CreatedAt = time.Now().UTC()
	}
	clone := *channel
	s.doc.Channels = append(s.doc.Channels, &clone)
	return s.persistLocked()
}

func (s *JSONFileStore) GetChannelByID(_ context.Context, id string) (*models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.doc.Channels {
		if c.ID == id {
			clone := *c
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (s *JSONFileStore) GetOrCreateChannel(_ context.Context, name, ownerID string) (*models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.doc.Channels {
		if c.Name == name {
			clone := *c
			return &clone, nil
		}
	}
	channel := &models.Channel{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
	}
	s.doc.Channels = append(s.doc.Channels, channel)
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	clone := *channel
	return &clone, nil
}

func (s *JSONFileStore) ListChannels(_ context.Context) ([]*models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channels := make([]*models.Channel, 0, len(s.doc.Channels))
	for _, c := range s.doc.Channels {
		clone := *c
		channels = append(channels, &clone)
	}
	return channels, nil
}

func (s *JSONFileStore) DeleteChannel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	channels := s.doc.Channels[:0]
	for _, c := range s.doc.Channels {
		if c.ID == id {
			found = true
			continue
		}
		channels = append(channels, c)
	}
	if !found {
		return ErrNotFound
	}
	s.doc.Channels = channels

	// Channel messages go with it.
	messages := s.doc.Messages[:0]
	for _, m := range s.doc.Messages {
		if m.ChannelID != id {
			messages = append(messages, m)
		}
	}
	s.doc.Messages = messages
	return s.persistLocked()
}

// Message store

func (s *JSONFileStore) SaveMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if msg.Kind == "" {
		msg.Kind = models.MessageKindText
	}
	s.doc.Messages = append(s.doc.Messages, cloneMessage(msg))
	return s.persistLocked()
}

func (s *JSONFileStore) GetMessageByID(_ context.Context, id string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := s.findMessageLocked(id)
	if msg == nil {
		return nil, ErrNotFound
	}
	return cloneMessage(msg), nil
}

func (s *JSONFileStore) LoadRecentMessages(_ context.Context, channelID string, limit int) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*models.Message
	for _, m := range s.doc.Messages {
		if m.ChannelID == channelID {
			matched = append(matched, m)
		}
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	result := make([]*models.Message, 0, len(matched))
	for _, m := range matched {
		result = append(result, cloneMessage(m))
	}
	return result, nil
}

func (s *JSONFileStore) EditMessage(_ context.Context, id, text string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := s.findMessageLocked(id)
	if msg == nil {
		return nil, ErrNotFound
	}
	now := time.Now().UTC()
	msg.Text = text
	msg.EditedAt = &now
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return cloneMessage(msg), nil
}

func (s *JSONFileStore) ToggleReaction(_ context.Context, id, userID, emoji string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := s.findMessageLocked(id)
	if msg == nil {
		return nil, ErrNotFound
	}
	if msg.Reactions == nil {
		msg.Reactions = make(map[string][]string)
	}
	users := msg.Reactions[emoji]
	removed := false
	for i, u := range users {
		if u == userID {
			msg.Reactions[emoji] = append(users[:i], users[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		msg.Reactions[emoji] = append(users, userID)
	} else if len(msg.Reactions[emoji]) == 0 {
		delete(msg.Reactions, emoji)
	}
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return cloneMessage(msg), nil
}

func (s *JSONFileStore) findMessageLocked(id string) *models.Message {
	for _, m := range s.doc.Messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// File store

func (s *JSONFileStore) SaveFile(_ context.Context, meta *models.FileMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	clone := *meta
	s.doc.Files = append(s.doc.Files, &clone)
	return s.persistLocked()
}

func (s *JSONFileStore) GetFileByID(_ context.Context, id string) (*models.FileMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.doc.Files {
		if f.ID == id {
			clone := *f
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

// Returned records are clones so callers can never mutate the in-memory
// document behind the store's back.

func cloneUser(u *models.User) *models.User {
	clone := *u
	return &clone
}

func cloneMessage(m *models.Message) *models.Message {
	clone := *m
	if m.Reactions != nil {
		clone.Reactions = make(map[string][]string, len(m.Reactions))
		for emoji, users := range m.Reactions {
			clone.Reactions[emoji] = append([]string(nil), users...)
		}
	}
	if m.EditedAt != nil {
		t := *m.EditedAt
		clone.EditedAt = &t
	}
	return &clone
}
