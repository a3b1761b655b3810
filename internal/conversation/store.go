// Package conversation manages short-lived per-conversation context.
package conversation

import (
	"context"
	"log/slog"
	"time"

	"github.com/SahiDemon/Aiden-sub001/internal/domain"
)

// Cache is the context persistence collaborator. Implementations are
// expected to carry their own timeouts; the store treats every failure as
// "no context" so a turn never aborts on cache trouble.
type Cache interface {
	// Load returns the stored context, or (nil, nil) on a miss.
	Load(ctx context.Context, conversationID string) (*domain.Context, error)
	// Store persists the context with the given time to live.
	Store(ctx context.Context, conversationID string, c *domain.Context, ttl time.Duration) error
	// Remove deletes the context.
	Remove(ctx context.Context, conversationID string) error
}

// Store provides conversation context with bounded history and expiry.
// It never returns errors to callers: cache failures degrade to an empty
// context on read and a no-op on write.
type Store struct {
	cache  Cache
	ttl    time.Duration
	userID string
}

// NewStore creates a context store. ttl is applied (and refreshed) on every
// write.
func NewStore(cache Cache, ttl time.Duration, userID string) *Store {
	return &Store{cache: cache, ttl: ttl, userID: userID}
}

// Get returns the context for a conversation. A cache miss or failure
// yields a fresh empty context carrying the conversation id.
func (s *Store) Get(ctx context.Context, conversationID string, mode domain.Mode) *domain.Context {
	c, err := s.cache.Load(ctx, conversationID)
	if err != nil {
		slog.Warn("context load failed, using empty context", "conversation_id", conversationID, "error", err)
		return domain.EmptyContext(conversationID, s.userID, mode)
	}
	if c == nil {
		return domain.EmptyContext(conversationID, s.userID, mode)
	}
	return c
}

// Save overwrites the context and resets its TTL. Failures are logged and
// swallowed.
func (s *Store) Save(ctx context.Context, conversationID string, c *domain.Context) {
	if err := s.cache.Store(ctx, conversationID, c, s.ttl); err != nil {
		slog.Warn("context save failed", "conversation_id", conversationID, "error", err)
	}
}

// Delete removes the context. Failures are logged and swallowed.
func (s *Store) Delete(ctx context.Context, conversationID string) {
	if err := s.cache.Remove(ctx, conversationID); err != nil {
		slog.Warn("context delete failed", "conversation_id", conversationID, "error", err)
	}
}

// AppendTurn records one user/assistant exchange: it appends two history
// entries (truncating to the bounded window), recomputes the last-intent,
// last-entities and last-action fields from the plan, and re-saves the
// context with a refreshed TTL. Concurrent turns are excluded upstream, so
// the read-modify-write is not racy in practice.
func (s *Store) AppendTurn(ctx context.Context, conversationID string, userMessage string, plan *domain.Plan, mode domain.Mode) {
	c := s.Get(ctx, conversationID, mode)

	c.AppendHistory(userMessage, plan.Response)
	c.LastIntent = plan.Intent
	c.ExpectingFollowup = plan.ExpectingFollowup

	if entities := extractEntities(plan.Commands); len(entities) > 0 {
		c.LastEntities = entities
	}
	if len(plan.Commands) > 0 {
		c.LastAction = plan.Commands[0].Type
	}

	s.Save(ctx, conversationID, c)
}

// extractEntities collects "name" and "target" params across commands, in
// command order. An empty result means the caller keeps the previous
// entities.
func extractEntities(commands []domain.Command) []string {
	var entities []string
	for _, cmd := range commands {
		if v := cmd.StringParam("name"); v != "" {
			entities = append(entities, v)
		}
		if v := cmd.StringParam("target"); v != "" {
			entities = append(entities, v)
		}
	}
	return entities
}
