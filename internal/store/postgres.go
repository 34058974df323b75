package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SAADX25/SafeChat/internal/models"
	"github.com/SAADX25/SafeChat/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// PostgresStore implements Store on a pgx connection pool. It is selected
// when DATABASE_URL is set; the JSON-file store is the default backend.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("Connected to database successfully")
	return s, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'offline',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS channels (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			owner_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			channel_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			username TEXT NOT NULL,
			kind TEXT NOT NULL,
			text_body TEXT NOT NULL DEFAULT '',
			file_id TEXT NOT NULL DEFAULT '',
			duration_ms INT NOT NULL DEFAULT 0,
			reactions JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			edited_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS files (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			size_bytes BIGINT NOT NULL,
			content_type TEXT NOT NULL,
			sha256 TEXT NOT NULL,
			uploader_id TEXT NOT NULL,
			storage_path TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages (channel_id, created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func mapPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicate
	}
	return err
}

// User store

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Status == "" {
		user.Status = models.StatusOffline
	}

	query := `
		INSERT INTO users (id, username, email, password_hash, status, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at`

	err := s.pool.QueryRow(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Status,
	).Scan(&user.CreatedAt)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, username, email, password_hash, status, created_at FROM users WHERE email = $1`

	user := &models.User{}
	err := s.pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Status, &user.CreatedAt,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, username, email, password_hash, status, created_at FROM users WHERE id = $1`

	user := &models.User{}
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Status, &user.CreatedAt,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	return user, nil
}

func (s *PostgresStore) UpdateUserStatus(ctx context.Context, id, status string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Channel store

func (s *PostgresStore) CreateChannel(ctx context.Context, channel *models.Channel) error {
	if channel.ID == "" {
		channel.ID = uuid.NewString()
	}

	query := `
		INSERT INTO channels (id, name, owner_id, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING created_at`

	err := s.pool.QueryRow(ctx, query, channel.ID, channel.Name, channel.OwnerID).Scan(&channel.CreatedAt)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (s *PostgresStore) GetChannelByID(ctx context.Context, id string) (*models.Channel, error) {
	query := `SELECT id, name, owner_id, created_at FROM channels WHERE id = $1`

	channel := &models.Channel{}
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&channel.ID, &channel.Name, &channel.OwnerID, &channel.CreatedAt,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	return channel, nil
}

func (s *PostgresStore) GetOrCreateChannel(ctx context.Context, name, ownerID string) (*models.Channel, error) {
	query := `
		INSERT INTO channels (id, name, owner_id, created_at) VALUES ($1, $2, $3, NOW())
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, owner_id, created_at`

	channel := &models.Channel{}
	err := s.pool.QueryRow(ctx, query, uuid.NewString(), name, ownerID).Scan(
		&channel.ID, &channel.Name, &channel.OwnerID, &channel.CreatedAt,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	return channel, nil
}

func (s *PostgresStore) ListChannels(ctx context.Context) ([]*models.Channel, error) {
	query := `SELECT id, name, owner_id, created_at FROM channels ORDER BY name`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []*models.Channel
	for rows.Next() {
		channel := &models.Channel{}
		if err := rows.Scan(&channel.ID, &channel.Name, &channel.OwnerID, &channel.CreatedAt); err != nil {
			return nil, err
		}
		channels = append(channels, channel)
	}
	return channels, rows.Err()
}

func (s *PostgresStore) DeleteChannel(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE channel_id = $1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

// Message store

func (s *PostgresStore) SaveMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Kind == "" {
		msg.Kind = models.MessageKindText
	}
	reactions, err := encodeReactions(msg.Reactions)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO messages (id, channel_id, user_id, username, kind, text_body, file_id, duration_ms, reactions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING created_at`

	err = s.pool.QueryRow(ctx, query,
		msg.ID, msg.ChannelID, msg.UserID, msg.Username, string(msg.Kind),
		msg.Text, msg.FileID, msg.DurationMs, reactions,
	).Scan(&msg.CreatedAt)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

const messageColumns = `id, channel_id, user_id, username, kind, text_body, file_id, duration_ms, reactions, created_at, edited_at`

func scanMessage(row pgx.Row) (*models.Message, error) {
	msg := &models.Message{}
	var kind string
	var reactions []byte
	err := row.Scan(
		&msg.ID, &msg.ChannelID, &msg.UserID, &msg.Username, &kind,
		&msg.Text, &msg.FileID, &msg.DurationMs, &reactions, &msg.CreatedAt, &msg.EditedAt,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	msg.Kind = models.MessageKind(kind)
	if len(reactions) > 0 {
		if err := json.Unmarshal(reactions, &msg.Reactions); err != nil {
			return nil, fmt.Errorf("decode reactions: %w", err)
		}
	}
	if len(msg.Reactions) == 0 {
		msg.Reactions = nil
	}
	return msg, nil
}

func encodeReactions(reactions map[string][]string) ([]byte, error) {
	if reactions == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(reactions)
	if err != nil {
		return nil, fmt.Errorf("encode reactions: %w", err)
	}
	return data, nil
}

func (s *PostgresStore) GetMessageByID(ctx context.Context, id string) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	return scanMessage(s.pool.QueryRow(ctx, query, id))
}

func (s *PostgresStore) LoadRecentMessages(ctx context.Context, channelID string, limit int) ([]*models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE channel_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, channelID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to show oldest first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *PostgresStore) EditMessage(ctx context.Context, id, text string) (*models.Message, error) {
	query := `
		UPDATE messages SET text_body = $2, edited_at = NOW()
		WHERE id = $1
		RETURNING ` + messageColumns
	return scanMessage(s.pool.QueryRow(ctx, query, id, text))
}

func (s *PostgresStore) ToggleReaction(ctx context.Context, id, userID, emoji string) (*models.Message, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	msg, err := scanMessage(tx.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
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

	reactions, err := encodeReactions(msg.Reactions)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE messages SET reactions = $2 WHERE id = $1`, id, reactions); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	if len(msg.Reactions) == 0 {
		msg.Reactions = nil
	}
	return msg, nil
}

// File store

func (s *PostgresStore) SaveFile(ctx context.Context, meta *models.FileMeta) error {
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}

	query := `
		INSERT INTO files (id, filename, size_bytes, content_type, sha256, uploader_id, storage_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at`

	err := s.pool.QueryRow(ctx, query,
		meta.ID, meta.Filename, meta.SizeBytes, meta.ContentType,
		meta.SHA256, meta.UploaderID, meta.StoragePath,
	).Scan(&meta.CreatedAt)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (s *PostgresStore) GetFileByID(ctx context.Context, id string) (*models.FileMeta, error) {
	query := `
		SELECT id, filename, size_bytes, content_type, sha256, uploader_id, storage_path, created_at
		FROM files WHERE id = $1`

	meta := &models.FileMeta{}
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&meta.ID, &meta.Filename, &meta.SizeBytes, &meta.ContentType,
		&meta.SHA256, &meta.UploaderID, &meta.StoragePath, &meta.CreatedAt,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	return meta, nil
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*JSONFileStore)(nil)
)
