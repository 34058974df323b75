package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/SAADX25/SafeChat/internal/models"
)

func newTestStore(t *testing.T) (*JSONFileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.json")
	s, err := NewJSONFileStore(path)
	if err != nil {
		t.Fatalf("NewJSONFileStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestUserLifecycle(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	user := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected generated user ID")
	}
	if user.Status != models.StatusOffline {
		t.Fatalf("new user status = %q, want offline", user.Status)
	}

	dup := &models.User{Username: "alice", Email: "other@example.com", PasswordHash: "hash2"}
	if err := s.CreateUser(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate username error = %v, want ErrDuplicate", err)
	}

	got, err := s.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.ID != user.ID || got.Username != "alice" {
		t.Fatalf("unexpected user: %+v", got)
	}

	if err := s.UpdateUserStatus(ctx, user.ID, models.StatusOnline); err != nil {
		t.Fatalf("UpdateUserStatus: %v", err)
	}
	got, _ = s.GetUserByID(ctx, user.ID)
	if got.Status != models.StatusOnline {
		t.Fatalf("status = %q, want online", got.Status)
	}

	if _, err := s.GetUserByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing user error = %v, want ErrNotFound", err)
	}
	if err := s.UpdateUserStatus(ctx, "missing", models.StatusOnline); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateUserStatus missing error = %v, want ErrNotFound", err)
	}
}

func TestStatusesResetOnReload(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	user := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.UpdateUserStatus(ctx, user.ID, models.StatusOnline); err != nil {
		t.Fatalf("UpdateUserStatus: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reloaded, err := NewJSONFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reloaded.Close()

	got, err := reloaded.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID after reload: %v", err)
	}
	if got.Status != models.StatusOffline {
		t.Fatalf("status after reload = %q, want offline", got.Status)
	}
}

func TestChannelLifecycle(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	channel := &models.Channel{Name: "general", OwnerID: "u1"}
	if err := s.CreateChannel(ctx, channel); err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	if err := s.CreateChannel(ctx, &models.Channel{Name: "general"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate channel error = %v, want ErrDuplicate", err)
	}

	same, err := s.GetOrCreateChannel(ctx, "general", "u2")
	if err != nil {
		t.Fatalf("GetOrCreateChannel existing: %v", err)
	}
	if same.ID != channel.ID || same.OwnerID != "u1" {
		t.Fatalf("GetOrCreateChannel should return the existing channel, got %+v", same)
	}

	random, err := s.GetOrCreateChannel(ctx, "random", "u2")
	if err != nil {
		t.Fatalf("GetOrCreateChannel new: %v", err)
	}

	channels, err := s.ListChannels(ctx)
	if err != nil {
		t.Fatalf("ListChannels: %v", err)
	}
	if len(channels) != 2 {
		t.Fatalf("len(channels) = %d, want 2", len(channels))
	}

	if err := s.SaveMessage(ctx, &models.Message{ChannelID: random.ID, UserID: "u2", Username: "bob", Text: "hi"}); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}
	if err := s.DeleteChannel(ctx, random.ID); err != nil {
		t.Fatalf("DeleteChannel: %v", err)
	}
	if _, err := s.GetChannelByID(ctx, random.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted channel error = %v, want ErrNotFound", err)
	}
	msgs, err := s.LoadRecentMessages(ctx, random.ID, 10)
	if err != nil {
		t.Fatalf("LoadRecentMessages: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("messages should be deleted with the channel, got %d", len(msgs))
	}
}

func TestMessageHistoryOrderAndLimit(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		msg := &models.Message{ChannelID: "general", UserID: "u1", Username: "alice", Text: text}
		if err := s.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("SaveMessage(%s): %v", text, err)
		}
	}

	msgs, err := s.LoadRecentMessages(ctx, "general", 2)
	if err != nil {
		t.Fatalf("LoadRecentMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[0].Text != "two" || msgs[1].Text != "three" {
		t.Fatalf("expected oldest-first window [two three], got [%s %s]", msgs[0].Text, msgs[1].Text)
	}
}

func TestEditMessage(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	msg := &models.Message{ChannelID: "general", UserID: "u1", Username: "alice", Text: "draft"}
	if err := s.SaveMessage(ctx, msg); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}

	edited, err := s.EditMessage(ctx, msg.ID, "final")
	if err != nil {
		t.Fatalf("EditMessage: %v", err)
	}
	if edited.Text != "final" || edited.EditedAt == nil {
		t.Fatalf("unexpected edited message: %+v", edited)
	}

	if _, err := s.EditMessage(ctx, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("EditMessage missing error = %v, want ErrNotFound", err)
	}
}

func TestToggleReaction(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	msg := &models.Message{ChannelID: "general", UserID: "u1", Username: "alice", Text: "hi"}
	if err := s.SaveMessage(ctx, msg); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}

	got, err := s.ToggleReaction(ctx, msg.ID, "u2", "🔥")
	if err != nil {
		t.Fatalf("ToggleReaction add: %v", err)
	}
	if users := got.Reactions["🔥"]; len(users) != 1 || users[0] != "u2" {
		t.Fatalf("unexpected reactions: %+v", got.Reactions)
	}

	got, err = s.ToggleReaction(ctx, msg.ID, "u3", "🔥")
	if err != nil {
		t.Fatalf("ToggleReaction second user: %v", err)
	}
	if users := got.Reactions["🔥"]; len(users) != 2 {
		t.Fatalf("expected two reactors, got %+v", got.Reactions)
	}

	got, err = s.ToggleReaction(ctx, msg.ID, "u2", "🔥")
	if err != nil {
		t.Fatalf("ToggleReaction remove: %v", err)
	}
	if users := got.Reactions["🔥"]; len(users) != 1 || users[0] != "u3" {
		t.Fatalf("expected u2 removed, got %+v", got.Reactions)
	}
}

func TestFileMetadata(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	meta := &models.FileMeta{
		Filename:    "clip.ogg",
		SizeBytes:   1234,
		ContentType: "audio/ogg",
		SHA256:      "abc",
		UploaderID:  "u1",
		StoragePath: "deadbeef.ogg",
	}
	if err := s.SaveFile(ctx, meta); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	got, err := s.GetFileByID(ctx, meta.ID)
	if err != nil {
		t.Fatalf("GetFileByID: %v", err)
	}
	if got.Filename != "clip.ogg" || got.SizeBytes != 1234 {
		t.Fatalf("unexpected file meta: %+v", got)
	}

	if _, err := s.GetFileByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing file error = %v, want ErrNotFound", err)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	user := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	msg := &models.Message{ChannelID: "general", UserID: user.ID, Username: "alice", Text: "persists"}
	if err := s.SaveMessage(ctx, msg); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reloaded, err := NewJSONFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reloaded.Close()

	msgs, err := reloaded.LoadRecentMessages(ctx, "general", 10)
	if err != nil {
		t.Fatalf("LoadRecentMessages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Text != "persists" {
		t.Fatalf("message lost across reopen: %+v", msgs)
	}
}
