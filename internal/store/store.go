// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/SahiDemon/Aiden-sub001/internal/domain"
)

// StoredMessage is one durable conversation message row.
type StoredMessage struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Intent         string    `json:"intent,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Repository defines the interface for durable conversation history.
// All writes are best-effort from the orchestrator's point of view: a
// failed write is logged by the caller and never aborts a turn.
type Repository interface {
	// CreateConversation inserts a new conversation record.
	CreateConversation(ctx context.Context, conv *domain.Conversation) error

	// EndConversation marks a conversation as ended. Ending an already
	// ended conversation is a no-op.
	EndConversation(ctx context.Context, conversationID string, endedAt time.Time) error

	// GetConversation retrieves a conversation, or nil when unknown.
	GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error)

	// IdleConversationIDs returns open conversations with no message
	// activity within ttl.
	IdleConversationIDs(ctx context.Context, ttl time.Duration) ([]string, error)

	// AddMessage appends a message to a conversation and bumps its
	// activity timestamp.
	AddMessage(ctx context.Context, conversationID, role, content, intent string) error

	// RecentMessages returns the newest messages across all conversations,
	// oldest first.
	RecentMessages(ctx context.Context, limit int) ([]StoredMessage, error)

	// ConversationMessages returns the newest messages of one
	// conversation, oldest first.
	ConversationMessages(ctx context.Context, conversationID string, limit int) ([]StoredMessage, error)

	// LogCommand records one command execution.
	LogCommand(ctx context.Context, entry *domain.CommandLogEntry) error

	// CommandHistory returns the newest command-log entries, newest first.
	CommandHistory(ctx context.Context, limit int) ([]domain.CommandLogEntry, error)

	// PruneCommandLog deletes command-log rows older than the retention
	// window and returns the number removed.
	PruneCommandLog(ctx context.Context, retention time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
