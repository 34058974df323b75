package models

import "encoding/json"

type EventType string

// Frames received from clients.
const (
	EventJoin    EventType = "join"
	EventMessage EventType = "message"
	EventTyping  EventType = "typing"
	EventEdit    EventType = "edit"
	EventReact   EventType = "react"
)

// Frames emitted by the server. EventMessage and EventTyping flow both ways.
const (
	EventOnlineUsers   EventType = "online_users"
	EventRoomUsers     EventType = "room_users"
	EventHistory       EventType = "history"
	EventMessageEdited EventType = "message_edited"
	EventReaction      EventType = "reaction"
	EventError         EventType = "error"
)

// Envelope is the wire form of every socket frame: a type tag plus a
// type-specific payload.
type Envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// EncodeEvent marshals a payload into its envelope wire form.
func EncodeEvent(t EventType, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: t, Data: data})
}

type JoinPayload struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
}

type SendMessagePayload struct {
	Kind       MessageKind `json:"kind,omitempty"`
	Text       string      `json:"text,omitempty"`
	FileID     string      `json:"file_id,omitempty"`
	DurationMs int         `json:"duration_ms,omitempty"`
}

type TypingPayload struct {
	Active bool `json:"active"`
}

type EditPayload struct {
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
}

type ReactPayload struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

type OnlineUsersPayload struct {
	Users []PublicUser `json:"users"`
	Count int          `json:"count"`
}

type RoomUsersPayload struct {
	ChannelID string       `json:"channel_id"`
	Users     []PublicUser `json:"users"`
	Count     int          `json:"count"`
}

type HistoryPayload struct {
	ChannelID string     `json:"channel_id"`
	Messages  []*Message `json:"messages"`
}

type MessagePayload struct {
	Message *Message `json:"message"`
}

type TypingEventPayload struct {
	ChannelID string     `json:"channel_id"`
	User      PublicUser `json:"user"`
	Active    bool       `json:"active"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
