// Package janitor sweeps idle conversations and prunes old command logs.
package janitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/SahiDemon/Aiden-sub001/internal/shared"
	"github.com/SahiDemon/Aiden-sub001/internal/store"
)

const sweepInterval = time.Minute

// EndedCallback is invoked after a conversation is ended so in-memory
// state can be released.
type EndedCallback func(conversationID string)

// Run sweeps until ctx is cancelled. conversationTTL bounds idleness;
// commandLogRetention bounds how long command records are kept.
func Run(ctx context.Context, repo store.Repository, conversationTTL, commandLogRetention time.Duration, onEnded EndedCallback) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	slog.Info("Janitor started", "interval", sweepInterval, "conversation_ttl", conversationTTL, "retention", commandLogRetention)

	for {
		select {
		case <-ticker.C:
			sweep(ctx, repo, conversationTTL, onEnded)
			prune(ctx, repo, commandLogRetention)
		case <-ctx.Done():
			slog.Info("Janitor shutting down", "reason", ctx.Err())
			return
		}
	}
}

func sweep(ctx context.Context, repo store.Repository, ttl time.Duration, onEnded EndedCallback) {
	ids, err := repo.IdleConversationIDs(ctx, ttl)
	if err != nil {
		slog.Error("Janitor failed to list idle conversations", "error", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	slog.Info("Janitor found idle conversations", "count", len(ids))
	now := time.Now().UTC()
	for _, id := range ids {
		if err := endWithRetry(ctx, repo, id, now); err != nil {
			slog.Warn("Janitor failed to end conversation", "conversation_id", id, "error", err)
			continue
		}
		slog.Info("Conversation ended for inactivity", "conversation_id", id)
		if onEnded != nil {
			onEnded(id)
		}
	}
}

// endWithRetry retries SQLITE_BUSY conflicts with exponential backoff.
func endWithRetry(ctx context.Context, repo store.Repository, conversationID string, endedAt time.Time) error {
	const maxRetries = 3
	baseDelay := 100 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = repo.EndConversation(ctx, conversationID, endedAt)
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxRetries-1 {
			return err
		}
		delay := baseDelay * time.Duration(1<<i)
		slog.Debug("Janitor hit a locked database, retrying",
			"conversation_id", conversationID,
			"attempt", i+1,
			"delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func prune(ctx context.Context, repo store.Repository, retention time.Duration) {
	deleted, err := repo.PruneCommandLog(ctx, retention)
	if err != nil {
		slog.Error("Janitor failed to prune command log", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Janitor pruned command log", "deleted", deleted)
	}
}
