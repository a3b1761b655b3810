package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/SahiDemon/Aiden-sub001/internal/domain"
	"github.com/SahiDemon/Aiden-sub001/internal/store"
)

// Coordinator fans a plan's commands out to executors concurrently and
// collects results in plan order.
type Coordinator struct {
	dispatcher Dispatcher
	repo       store.Repository
}

// NewCoordinator creates a coordinator. repo may be nil when durable
// command logging is disabled.
func NewCoordinator(dispatcher Dispatcher, repo store.Repository) *Coordinator {
	return &Coordinator{dispatcher: dispatcher, repo: repo}
}

// ExecuteAll runs every command concurrently. The returned slice is 1:1
// with commands and preserves their order regardless of completion order.
// A panicking executor produces a failed result instead of taking the
// process down.
func (c *Coordinator) ExecuteAll(ctx context.Context, conversationID string, commands []domain.Command) []domain.CommandResult {
	if len(commands) == 0 {
		return nil
	}

	results := make([]domain.CommandResult, len(commands))
	done := make(chan int, len(commands))

	for i, cmd := range commands {
		go func(idx int, cmd domain.Command) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("Executor panicked", "command", cmd.Type, "panic", r)
					results[idx] = failure(cmd, fmt.Sprintf("internal error: %v", r))
				}
				done <- idx
			}()
			start := time.Now()
			results[idx] = c.dispatcher.Dispatch(ctx, cmd)
			c.logCommand(conversationID, cmd, results[idx], time.Since(start))
		}(i, cmd)
	}

	for range commands {
		<-done
	}
	return results
}

// logCommand records the execution asynchronously so a slow database
// never delays the response.
func (c *Coordinator) logCommand(conversationID string, cmd domain.Command, result domain.CommandResult, elapsed time.Duration) {
	if c.repo == nil {
		return
	}

	entry := &domain.CommandLogEntry{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Type:           cmd.Type,
		Success:        result.Success,
		Error:          result.Error,
		DurationMillis: elapsed.Milliseconds(),
		CreatedAt:      time.Now().UTC(),
	}
	if len(cmd.Params) > 0 {
		if data, err := json.Marshal(cmd.Params); err == nil {
			entry.ParamsJSON = string(data)
		}
	}

	go func() {
		logCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.repo.LogCommand(logCtx, entry); err != nil {
			slog.Warn("Failed to log command", "command", cmd.Type, "error", err)
		}
	}()
}
