package domain

import (
	"time"
)

// Command is a single planner-produced action with free-form parameters.
type Command struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

// StringParam returns the named parameter as a string, or "" when absent
// or not a string.
func (c Command) StringParam(key string) string {
	if c.Params == nil {
		return ""
	}
	if v, ok := c.Params[key].(string); ok {
		return v
	}
	return ""
}

// CommandResult is the outcome of executing one command. Results are
// produced 1:1 with plan entries and preserve plan order.
type CommandResult struct {
	Success      bool   `json:"success"`
	Command      string `json:"command"`
	ResponseData string `json:"response_data,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Plan is the planner's structured output for one turn.
type Plan struct {
	Intent            string    `json:"intent"`
	Commands          []Command `json:"commands"`
	Response          string    `json:"response"`
	UpdateContext     bool      `json:"update_context"`
	ExpectingFollowup bool      `json:"expecting_followup"`
}

// FallbackPlan returns the plan used when the planner is unreachable or its
// output cannot be parsed. The exchange is not persisted to context.
func FallbackPlan(apology string) *Plan {
	return &Plan{
		Intent:            "unknown",
		Commands:          nil,
		Response:          apology,
		UpdateContext:     false,
		ExpectingFollowup: false,
	}
}

// CommandLogEntry is one durable command-execution record.
type CommandLogEntry struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Type           string    `json:"command_type"`
	ParamsJSON     string    `json:"params,omitempty"`
	Success        bool      `json:"success"`
	Error          string    `json:"error,omitempty"`
	DurationMillis int64     `json:"execution_time_ms"`
	CreatedAt      time.Time `json:"created_at"`
}
