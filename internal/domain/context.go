package domain

import (
	"time"
)

// HistoryLimit bounds the number of history entries kept per context.
// Older entries are dropped first.
const HistoryLimit = 10

// Context is the short-lived per-conversation memory used to detect
// follow-ups and seed planner prompts. A missing context is represented by
// an empty one, never by an error.
type Context struct {
	ConversationID    string    `json:"conversation_id"`
	UserID            string    `json:"user_id"`
	Mode              Mode      `json:"mode"`
	CreatedAt         time.Time `json:"created_at"`
	LastIntent        string    `json:"last_intent,omitempty"`
	LastEntities      []string  `json:"last_entities,omitempty"`
	LastAction        string    `json:"last_action,omitempty"`
	ExpectingFollowup bool      `json:"expecting_followup"`
	History           []Message `json:"history"`
}

// EmptyContext returns a fresh context for the given conversation.
func EmptyContext(conversationID, userID string, mode Mode) *Context {
	return &Context{
		ConversationID: conversationID,
		UserID:         userID,
		Mode:           mode,
		CreatedAt:      time.Now().UTC(),
		History:        []Message{},
	}
}

// AppendHistory appends a user/assistant exchange and truncates the history
// to the most recent HistoryLimit entries.
func (c *Context) AppendHistory(userMessage, assistantMessage string) {
	c.History = append(c.History,
		Message{Role: "user", Content: userMessage},
		Message{Role: "assistant", Content: assistantMessage},
	)
	if len(c.History) > HistoryLimit {
		c.History = c.History[len(c.History)-HistoryLimit:]
	}
}

// RecentMessages returns the last n entries of history in chronological
// order. Planner prompts use a smaller window than the stored history.
func RecentMessages(history []Message, n int) []Message {
	if n >= len(history) {
		return history
	}
	return history[len(history)-n:]
}
