package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/SahiDemon/Aiden-sub001/internal/domain"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS conversations (
		conversation_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		last_active_at INTEGER NOT NULL,
		ended_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_active
		ON conversations(last_active_at) WHERE ended_at IS NULL;

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		intent TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation
		ON messages(conversation_id, id);

	CREATE TABLE IF NOT EXISTS command_log (
		id TEXT PRIMARY KEY,
		conversation_id TEXT,
		command_type TEXT NOT NULL,
		params_json TEXT,
		success INTEGER NOT NULL,
		error TEXT,
		duration_ms INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_command_log_created ON command_log(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateConversation inserts a new conversation record.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	query := `
	INSERT INTO conversations (conversation_id, user_id, mode, created_at, last_active_at, ended_at)
	VALUES (?, ?, ?, ?, ?, NULL)
	ON CONFLICT(conversation_id) DO NOTHING`

	createdAt := conv.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, query,
		conv.ID, conv.UserID, string(conv.Mode), createdAt.Unix(), createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

// EndConversation marks a conversation as ended.
func (s *SQLiteStore) EndConversation(ctx context.Context, conversationID string, endedAt time.Time) error {
	query := `UPDATE conversations SET ended_at = ? WHERE conversation_id = ? AND ended_at IS NULL`
	result, err := s.db.ExecContext(ctx, query, endedAt.Unix(), conversationID)
	if err != nil {
		return fmt.Errorf("end conversation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Debug("EndConversation affected 0 rows", "conversation_id", conversationID)
	}
	return nil
}

// GetConversation retrieves a conversation by id.
func (s *SQLiteStore) GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	query := `
	SELECT conversation_id, user_id, mode, created_at, ended_at
	FROM conversations WHERE conversation_id = ?`

	row := s.db.QueryRowContext(ctx, query, conversationID)

	var conv domain.Conversation
	var mode string
	var createdAt int64
	var endedAt sql.NullInt64

	err := row.Scan(&conv.ID, &conv.UserID, &mode, &createdAt, &endedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation row: %w", err)
	}

	conv.Mode = domain.Mode(mode)
	conv.CreatedAt = time.Unix(createdAt, 0)
	if endedAt.Valid {
		ts := time.Unix(endedAt.Int64, 0)
		conv.EndedAt = &ts
	}
	return &conv, nil
}

// IdleConversationIDs returns open conversations idle beyond ttl.
func (s *SQLiteStore) IdleConversationIDs(ctx context.Context, ttl time.Duration) ([]string, error) {
	threshold := time.Now().Add(-ttl).Unix()
	query := `
	SELECT conversation_id FROM conversations
	WHERE ended_at IS NULL AND last_active_at < ?`

	rows, err := s.db.QueryContext(ctx, query, threshold)
	if err != nil {
		return nil, fmt.Errorf("query idle conversations: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close idle conversation rows", "error", closeErr)
		}
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan idle conversation row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate idle conversations: %w", err)
	}
	return ids, nil
}

// AddMessage appends a message and bumps the conversation activity time.
func (s *SQLiteStore) AddMessage(ctx context.Context, conversationID, role, content, intent string) error {
	now := time.Now().UTC().Unix()

	var intentVal interface{}
	if intent != "" {
		intentVal = intent
	}

	query := `INSERT INTO messages (conversation_id, role, content, intent, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, conversationID, role, content, intentVal, now); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	touch := `UPDATE conversations SET last_active_at = ? WHERE conversation_id = ?`
	if _, err := s.db.ExecContext(ctx, touch, now, conversationID); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

// RecentMessages returns the newest messages across all conversations,
// oldest first.
func (s *SQLiteStore) RecentMessages(ctx context.Context, limit int) ([]StoredMessage, error) {
	query := `
	SELECT id, conversation_id, role, content, intent, created_at
	FROM messages ORDER BY id DESC LIMIT ?`
	return s.queryMessages(ctx, query, limit)
}

// ConversationMessages returns the newest messages of one conversation,
// oldest first.
func (s *SQLiteStore) ConversationMessages(ctx context.Context, conversationID string, limit int) ([]StoredMessage, error) {
	query := `
	SELECT id, conversation_id, role, content, intent, created_at
	FROM messages WHERE conversation_id = ? ORDER BY id DESC LIMIT ?`
	return s.queryMessages(ctx, query, conversationID, limit)
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...interface{}) ([]StoredMessage, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close message rows", "error", closeErr)
		}
	}()

	var messages []StoredMessage
	for rows.Next() {
		var m StoredMessage
		var intent sql.NullString
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &intent, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		m.Intent = intent.String
		m.CreatedAt = time.Unix(createdAt, 0)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// Rows arrive newest first; flip to chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// LogCommand records one command execution.
func (s *SQLiteStore) LogCommand(ctx context.Context, entry *domain.CommandLogEntry) error {
	query := `
	INSERT INTO command_log (id, conversation_id, command_type, params_json, success, error, duration_ms, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	var convID interface{}
	if entry.ConversationID != "" {
		convID = entry.ConversationID
	}
	var errVal interface{}
	if entry.Error != "" {
		errVal = entry.Error
	}
	var paramsVal interface{}
	if entry.ParamsJSON != "" {
		paramsVal = entry.ParamsJSON
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, query,
		entry.ID, convID, entry.Type, paramsVal,
		entry.Success, errVal, entry.DurationMillis, createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert command log: %w", err)
	}
	return nil
}

// CommandHistory returns the newest command-log entries, newest first.
func (s *SQLiteStore) CommandHistory(ctx context.Context, limit int) ([]domain.CommandLogEntry, error) {
	query := `
	SELECT id, conversation_id, command_type, params_json, success, error, duration_ms, created_at
	FROM command_log ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query command history: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close command history rows", "error", closeErr)
		}
	}()

	var entries []domain.CommandLogEntry
	for rows.Next() {
		var e domain.CommandLogEntry
		var convID, errText, params sql.NullString
		var createdAt int64
		if err := rows.Scan(&e.ID, &convID, &e.Type, &params, &e.Success, &errText, &e.DurationMillis, &createdAt); err != nil {
			return nil, fmt.Errorf("scan command log row: %w", err)
		}
		e.ConversationID = convID.String
		e.Error = errText.String
		e.ParamsJSON = params.String
		e.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate command history: %w", err)
	}
	return entries, nil
}

// PruneCommandLog deletes command-log rows older than the retention window.
func (s *SQLiteStore) PruneCommandLog(ctx context.Context, retention time.Duration) (int64, error) {
	threshold := time.Now().Add(-retention).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM command_log WHERE created_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("prune command log: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
