package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/SAADX25/SafeChat/internal/models"
	"github.com/SAADX25/SafeChat/internal/store"
)

func newTestService(t *testing.T) *ChannelService {
	t.Helper()
	s, err := store.NewJSONFileStore(filepath.Join(t.TempDir(), "channels.json"))
	if err != nil {
		t.Fatalf("NewJSONFileStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewChannelService(s)
}

func TestCreateChannelValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateChannel(ctx, &models.CreateChannelRequest{Name: "   "}, "u1"); err == nil {
		t.Fatal("expected error for blank name")
	}

	channel, err := svc.CreateChannel(ctx, &models.CreateChannelRequest{Name: "  general  "}, "u1")
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	if channel.Name != "general" {
		t.Fatalf("name = %q, want trimmed", channel.Name)
	}
	if channel.OwnerID != "u1" {
		t.Fatalf("owner = %q, want u1", channel.OwnerID)
	}
}

func TestDeleteChannelOwnerOnly(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	channel, err := svc.CreateChannel(ctx, &models.CreateChannelRequest{Name: "general"}, "u1")
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}

	if err := svc.DeleteChannel(ctx, channel.ID, "u2"); err == nil {
		t.Fatal("expected error for non-owner delete")
	}
	if err := svc.DeleteChannel(ctx, channel.ID, "u1"); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := svc.GetChannel(ctx, channel.ID); err == nil {
		t.Fatal("channel should be gone")
	}
}

func TestRecentMessagesRequiresChannel(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.RecentMessages(ctx, "missing", 10); err == nil {
		t.Fatal("expected error for unknown channel")
	}
}
