// Package domain contains core domain types for the Aiden assistant.
package domain

import (
	"time"
)

// Mode identifies how a conversation was started.
type Mode string

const (
	ModeVoice  Mode = "voice"
	ModeText   Mode = "text"
	ModeHotkey Mode = "hotkey"
)

// Conversation represents one bounded interaction session with the user.
type Conversation struct {
	ID        string     `json:"conversation_id"`
	UserID    string     `json:"user_id"`
	Mode      Mode       `json:"mode"`
	CreatedAt time.Time  `json:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Ended returns true if the conversation has been explicitly closed.
func (c *Conversation) Ended() bool {
	return c.EndedAt != nil
}

// Message is a single role/content exchange entry. The same shape is used
// for conversation history and for building planner input.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
