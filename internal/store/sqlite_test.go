package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/SahiDemon/Aiden-sub001/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	repo, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return repo
}

func TestConversationLifecycle(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	conv := &domain.Conversation{
		ID:        uuid.New().String(),
		UserID:    "sahidemon",
		Mode:      domain.ModeVoice,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	got, err := repo.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected conversation, got nil")
	}
	if got.UserID != "sahidemon" || got.Mode != domain.ModeVoice {
		t.Errorf("unexpected conversation: %+v", got)
	}
	if got.Ended() {
		t.Error("new conversation should not be ended")
	}

	endedAt := time.Now().UTC()
	if err := repo.EndConversation(ctx, conv.ID, endedAt); err != nil {
		t.Fatalf("EndConversation failed: %v", err)
	}

	// Ending again is a no-op.
	if err := repo.EndConversation(ctx, conv.ID, endedAt.Add(time.Hour)); err != nil {
		t.Fatalf("second EndConversation failed: %v", err)
	}

	got, err = repo.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation after end failed: %v", err)
	}
	if !got.Ended() {
		t.Error("conversation should be ended")
	}
	if got.EndedAt.Unix() != endedAt.Unix() {
		t.Errorf("ended_at overwritten: got %v want %v", got.EndedAt.Unix(), endedAt.Unix())
	}
}

func TestGetConversationUnknown(t *testing.T) {
	repo := newTestStore(t)

	got, err := repo.GetConversation(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown conversation, got %+v", got)
	}
}

func TestMessagesChronological(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	conv := &domain.Conversation{ID: uuid.New().String(), UserID: "sahidemon", Mode: domain.ModeText}
	if err := repo.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	if err := repo.AddMessage(ctx, conv.ID, "user", "turn on the fan", "device_control"); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	if err := repo.AddMessage(ctx, conv.ID, "assistant", "Fan is on.", ""); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	if err := repo.AddMessage(ctx, conv.ID, "user", "thanks", "chat"); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}

	msgs, err := repo.ConversationMessages(ctx, conv.ID, 2)
	if err != nil {
		t.Fatalf("ConversationMessages failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	// Limit keeps the newest rows but returns them oldest first.
	if msgs[0].Content != "Fan is on." || msgs[1].Content != "thanks" {
		t.Errorf("unexpected order: %q, %q", msgs[0].Content, msgs[1].Content)
	}
	if msgs[0].Intent != "" {
		t.Errorf("expected empty intent, got %q", msgs[0].Intent)
	}

	all, err := repo.RecentMessages(ctx, 10)
	if err != nil {
		t.Fatalf("RecentMessages failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(all))
	}
	if all[0].Content != "turn on the fan" {
		t.Errorf("expected oldest message first, got %q", all[0].Content)
	}
}

func TestIdleConversationIDs(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	stale := &domain.Conversation{
		ID:        uuid.New().String(),
		UserID:    "sahidemon",
		Mode:      domain.ModeVoice,
		CreatedAt: time.Now().Add(-time.Hour),
	}
	if err := repo.CreateConversation(ctx, stale); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	fresh := &domain.Conversation{ID: uuid.New().String(), UserID: "sahidemon", Mode: domain.ModeVoice}
	if err := repo.CreateConversation(ctx, fresh); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	if err := repo.AddMessage(ctx, fresh.ID, "user", "hello", ""); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}

	ids, err := repo.IdleConversationIDs(ctx, 30*time.Minute)
	if err != nil {
		t.Fatalf("IdleConversationIDs failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != stale.ID {
		t.Errorf("expected only stale conversation, got %v", ids)
	}

	// Ended conversations are never reported as idle.
	if err := repo.EndConversation(ctx, stale.ID, time.Now()); err != nil {
		t.Fatalf("EndConversation failed: %v", err)
	}
	ids, err = repo.IdleConversationIDs(ctx, 30*time.Minute)
	if err != nil {
		t.Fatalf("IdleConversationIDs failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no idle conversations, got %v", ids)
	}
}

func TestCommandLog(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	old := &domain.CommandLogEntry{
		ID:             uuid.New().String(),
		Type:           "launch_app",
		ParamsJSON:     `{"name":"spotify"}`,
		Success:        true,
		DurationMillis: 120,
		CreatedAt:      time.Now().Add(-8 * 24 * time.Hour),
	}
	recent := &domain.CommandLogEntry{
		ID:             uuid.New().String(),
		ConversationID: uuid.New().String(),
		Type:           "fan_control",
		Success:        false,
		Error:          "device unreachable",
		DurationMillis: 3000,
		CreatedAt:      time.Now(),
	}
	for _, e := range []*domain.CommandLogEntry{old, recent} {
		if err := repo.LogCommand(ctx, e); err != nil {
			t.Fatalf("LogCommand failed: %v", err)
		}
	}

	entries, err := repo.CommandHistory(ctx, 10)
	if err != nil {
		t.Fatalf("CommandHistory failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Type != "fan_control" {
		t.Errorf("expected newest entry first, got %q", entries[0].Type)
	}
	if entries[0].Error != "device unreachable" || entries[0].Success {
		t.Errorf("unexpected failure entry: %+v", entries[0])
	}
	if entries[1].ParamsJSON != `{"name":"spotify"}` {
		t.Errorf("unexpected params: %q", entries[1].ParamsJSON)
	}

	pruned, err := repo.PruneCommandLog(ctx, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("PruneCommandLog failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("expected 1 pruned row, got %d", pruned)
	}

	entries, err = repo.CommandHistory(ctx, 10)
	if err != nil {
		t.Fatalf("CommandHistory after prune failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Type != "fan_control" {
		t.Errorf("expected only recent entry, got %+v", entries)
	}
}
