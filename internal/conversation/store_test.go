package conversation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/SahiDemon/Aiden-sub001/internal/domain"
)

type fakeCache struct {
	data     map[string]*domain.Context
	lastTTL  time.Duration
	failAll  bool
	storeErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string]*domain.Context{}}
}

func (f *fakeCache) Load(_ context.Context, id string) (*domain.Context, error) {
	if f.failAll {
		return nil, errors.New("cache down")
	}
	c, ok := f.data[id]
	if !ok {
		return nil, nil
	}
	// Simulate serialization: return a shallow copy so mutations require Store.
	cp := *c
	cp.History = append([]domain.Message(nil), c.History...)
	return &cp, nil
}

func (f *fakeCache) Store(_ context.Context, id string, c *domain.Context, ttl time.Duration) error {
	if f.failAll {
		return errors.New("cache down")
	}
	if f.storeErr != nil {
		return f.storeErr
	}
	f.lastTTL = ttl
	cp := *c
	cp.History = append([]domain.Message(nil), c.History...)
	f.data[id] = &cp
	return nil
}

func (f *fakeCache) Remove(_ context.Context, id string) error {
	if f.failAll {
		return errors.New("cache down")
	}
	delete(f.data, id)
	return nil
}

func plan(response string, commands ...domain.Command) *domain.Plan {
	return &domain.Plan{
		Intent:        "command",
		Commands:      commands,
		Response:      response,
		UpdateContext: true,
	}
}

func TestGetMissReturnsEmptyContext(t *testing.T) {
	s := NewStore(newFakeCache(), 300*time.Second, "default")

	c := s.Get(context.Background(), "conv-1", domain.ModeVoice)
	if c == nil {
		t.Fatal("expected context, got nil")
	}
	if c.ConversationID != "conv-1" {
		t.Errorf("expected conversation id carried over, got %q", c.ConversationID)
	}
	if len(c.History) != 0 {
		t.Errorf("expected empty history, got %d entries", len(c.History))
	}
}

func TestGetBackendFailureDegradesToEmpty(t *testing.T) {
	cache := newFakeCache()
	cache.failAll = true
	s := NewStore(cache, 300*time.Second, "default")

	c := s.Get(context.Background(), "conv-1", domain.ModeText)
	if c == nil || c.ConversationID != "conv-1" {
		t.Fatalf("expected empty context on failure, got %+v", c)
	}
}

func TestAppendTurnHistoryInvariant(t *testing.T) {
	cache := newFakeCache()
	s := NewStore(cache, 300*time.Second, "default")
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		s.AppendTurn(ctx, "conv-1", fmt.Sprintf("msg %d", i), plan(fmt.Sprintf("reply %d", i)), domain.ModeVoice)
		got := s.Get(ctx, "conv-1", domain.ModeVoice)
		if len(got.History) > domain.HistoryLimit {
			t.Fatalf("history invariant violated after turn %d: %d entries", i, len(got.History))
		}
	}

	got := s.Get(ctx, "conv-1", domain.ModeVoice)
	if len(got.History) != domain.HistoryLimit {
		t.Fatalf("expected %d entries, got %d", domain.HistoryLimit, len(got.History))
	}
	if got.History[len(got.History)-1].Content != "reply 11" {
		t.Errorf("expected newest entry last, got %q", got.History[len(got.History)-1].Content)
	}
}

func TestAppendTurnRecomputesFields(t *testing.T) {
	cache := newFakeCache()
	s := NewStore(cache, 300*time.Second, "default")
	ctx := context.Background()

	p := plan("Turning on the fan",
		domain.Command{Type: "device_on", Params: map[string]any{"target": "fan"}},
		domain.Command{Type: "launch_app", Params: map[string]any{"name": "spotify"}},
	)
	s.AppendTurn(ctx, "conv-1", "turn on the fan and open spotify", p, domain.ModeVoice)

	got := s.Get(ctx, "conv-1", domain.ModeVoice)
	if got.LastAction != "device_on" {
		t.Errorf("expected last_action device_on, got %q", got.LastAction)
	}
	if len(got.LastEntities) != 2 || got.LastEntities[0] != "fan" || got.LastEntities[1] != "spotify" {
		t.Errorf("unexpected entities: %v", got.LastEntities)
	}
	if got.LastIntent != "command" {
		t.Errorf("expected intent command, got %q", got.LastIntent)
	}
}

func TestAppendTurnKeepsEntitiesWhenNonePresent(t *testing.T) {
	cache := newFakeCache()
	s := NewStore(cache, 300*time.Second, "default")
	ctx := context.Background()

	s.AppendTurn(ctx, "conv-1", "open chrome",
		plan("Opening", domain.Command{Type: "launch_app", Params: map[string]any{"name": "chrome"}}), domain.ModeVoice)
	s.AppendTurn(ctx, "conv-1", "what time is it",
		plan("It's noon"), domain.ModeVoice)

	got := s.Get(ctx, "conv-1", domain.ModeVoice)
	if len(got.LastEntities) != 1 || got.LastEntities[0] != "chrome" {
		t.Errorf("entities should be unchanged when a turn has none: %v", got.LastEntities)
	}
}

func TestSaveRefreshesTTL(t *testing.T) {
	cache := newFakeCache()
	s := NewStore(cache, 42*time.Second, "default")

	s.Save(context.Background(), "conv-1", domain.EmptyContext("conv-1", "default", domain.ModeVoice))
	if cache.lastTTL != 42*time.Second {
		t.Errorf("expected TTL 42s on save, got %s", cache.lastTTL)
	}
}

func TestWriteFailureIsSwallowed(t *testing.T) {
	cache := newFakeCache()
	cache.storeErr = errors.New("disk full")
	s := NewStore(cache, time.Minute, "default")

	// Must not panic or surface the error.
	s.AppendTurn(context.Background(), "conv-1", "hello", plan("hi"), domain.ModeVoice)
	s.Delete(context.Background(), "conv-1")
}
