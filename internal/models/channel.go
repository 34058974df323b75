package models

import "time"

type Channel struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

type MessageKind string

const (
	MessageKindText  MessageKind = "text"
	MessageKindFile  MessageKind = "file"
	MessageKindVoice MessageKind = "voice"
)

type Message struct {
	ID        string      `json:"id"`
	ChannelID string      `json:"channel_id"`
	UserID    string      `json:"user_id"`
	Username  string      `json:"username"`
	Kind      MessageKind `json:"kind"`
	Text      string      `json:"text,omitempty"`
	FileID    string      `json:"file_id,omitempty"`
	// DurationMs is set for voice messages only.
	DurationMs int                 `json:"duration_ms,omitempty"`
	Reactions  map[string][]string `json:"reactions,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	EditedAt   *time.Time          `json:"edited_at,omitempty"`
}

// FileMeta describes an uploaded file or voice clip. The bytes live on disk
// under StoragePath; only the metadata goes through the store.
type FileMeta struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	SizeBytes   int64     `json:"size_bytes"`
	ContentType string    `json:"content_type"`
	SHA256      string    `json:"sha256"`
	UploaderID  string    `json:"uploader_id"`
	StoragePath string    `json:"storage_path"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateChannelRequest struct {
	Name string `json:"name"`
}
