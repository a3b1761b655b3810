package conversation

import (
	"context"
	"time"

	"github.com/SahiDemon/Aiden-sub001/internal/domain"
)

// NoopCache is the cache used when Redis is unavailable at startup.
// Every load misses and every store is dropped, so each turn runs with a
// fresh empty context instead of taking the daemon down.
type NoopCache struct{}

func (NoopCache) Load(ctx context.Context, conversationID string) (*domain.Context, error) {
	return nil, nil
}

func (NoopCache) Store(ctx context.Context, conversationID string, c *domain.Context, ttl time.Duration) error {
	return nil
}

func (NoopCache) Remove(ctx context.Context, conversationID string) error {
	return nil
}
