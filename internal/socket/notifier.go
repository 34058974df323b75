package socket

import (
	"context"
	"time"

	"github.com/SAADX25/SafeChat/internal/models"
)

// Room membership bookkeeping. Every function in this file runs on the hub
// loop, so the roster maps are touched by exactly one goroutine.

// moveToRoom takes the connection out of whatever room it occupies and into
// roomID (no room when empty). Every room whose roster changed gets a fresh
// room_users broadcast. Rejoining the current room just rebroadcasts it.
func (h *Hub) moveToRoom(c *Conn, roomID string) {
	prev := c.roomID
	if prev != "" && prev != roomID {
		h.removeFromRoom(prev, c)
		h.notifyRoom(prev)
	}

	c.roomID = roomID
	if roomID == "" {
		return
	}
	present := false
	for _, member := range h.rooms[roomID] {
		if member == c {
			present = true
			break
		}
	}
	if !present {
		h.rooms[roomID] = append(h.rooms[roomID], c)
	}
	h.notifyRoom(roomID)
}

func (h *Hub) removeFromRoom(roomID string, c *Conn) {
	roster := h.rooms[roomID]
	for i, member := range roster {
		if member == c {
			h.rooms[roomID] = append(roster[:i], roster[i+1:]...)
			break
		}
	}
	if len(h.rooms[roomID]) == 0 {
		delete(h.rooms, roomID)
	}
}

// scheduleSettle arranges one room_users recomputation for roomID after the
// grace period. The delay gives the transport time to finish tearing down
// the disconnecting session before the roster is read; it narrows the
// stale-read window but does not close it. A later broadcast overwrites any
// stale list, so the settle always fires and is never cancelled.
func (h *Hub) scheduleSettle(roomID string) {
	time.AfterFunc(h.grace, func() {
		select {
		case h.settle <- roomID:
		case <-h.shutdown:
		}
	})
}

// notifyRoom recomputes the membership list and broadcasts it to the room.
func (h *Hub) notifyRoom(roomID string) {
	users := h.roomUsers(roomID)
	h.broadcastToRoom(roomID, models.EventRoomUsers, models.RoomUsersPayload{
		ChannelID: roomID,
		Users:     users,
		Count:     len(users),
	})
}

// roomUsers derives the de-duplicated member list for a room: one entry per
// attached user id, first-seen connection wins (rosters keep join order).
// Connections with no attached user and ids that no longer resolve in the
// store are skipped.
func (h *Hub) roomUsers(roomID string) []models.PublicUser {
	ctx := context.Background()
	seen := make(map[string]bool)
	users := make([]models.PublicUser, 0, len(h.rooms[roomID]))
	for _, c := range h.rooms[roomID] {
		if c.userID == "" || seen[c.userID] {
			continue
		}
		seen[c.userID] = true
		user, err := h.db.GetUserByID(ctx, c.userID)
		if err != nil {
			continue
		}
		users = append(users, user.Public())
	}
	return users
}
