package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SahiDemon/Aiden-sub001/internal/assistant"
	"github.com/SahiDemon/Aiden-sub001/internal/config"
	"github.com/SahiDemon/Aiden-sub001/internal/conversation"
	"github.com/SahiDemon/Aiden-sub001/internal/domain"
	"github.com/SahiDemon/Aiden-sub001/internal/registry"
	"github.com/SahiDemon/Aiden-sub001/internal/speech"
	"github.com/SahiDemon/Aiden-sub001/internal/store"
)

type nullCache struct{}

func (nullCache) Load(ctx context.Context, id string) (*domain.Context, error) { return nil, nil }
func (nullCache) Store(ctx context.Context, id string, c *domain.Context, ttl time.Duration) error {
	return nil
}
func (nullCache) Remove(ctx context.Context, id string) error { return nil }

type scriptedPlanner struct {
	plan *domain.Plan
}

func (p *scriptedPlanner) Plan(ctx context.Context, history []domain.Message, text string) (*domain.Plan, error) {
	return p.plan, nil
}

func (p *scriptedPlanner) Enhance(ctx context.Context, userRequest, deviceResponse string) (string, error) {
	return "", nil
}

type silentSpeech struct{}

func (silentSpeech) Transcribe(ctx context.Context) (string, error)   { return "", speech.ErrTimeout }
func (silentSpeech) Speak(ctx context.Context, text string) error     { return nil }
func (silentSpeech) PlaySound(ctx context.Context, name string) error { return nil }

type noopRunner struct{}

func (noopRunner) ExecuteAll(ctx context.Context, conversationID string, commands []domain.Command) []domain.CommandResult {
	out := make([]domain.CommandResult, len(commands))
	for i, cmd := range commands {
		out[i] = domain.CommandResult{Success: true, Command: cmd.Type}
	}
	return out
}

// fakeRepo scripts the repository calls the API layer makes. Methods the
// tests never hit are left to the embedded nil interface.
type fakeRepo struct {
	store.Repository

	conversations map[string]*domain.Conversation
	messages      []store.StoredMessage
	commands      []domain.CommandLogEntry
	ended         []string
	pingErr       error
}

func (f *fakeRepo) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeRepo) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	return nil
}

func (f *fakeRepo) AddMessage(ctx context.Context, conversationID, role, content, intent string) error {
	return nil
}

func (f *fakeRepo) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	return f.conversations[id], nil
}

func (f *fakeRepo) EndConversation(ctx context.Context, id string, endedAt time.Time) error {
	f.ended = append(f.ended, id)
	return nil
}

func (f *fakeRepo) RecentMessages(ctx context.Context, limit int) ([]store.StoredMessage, error) {
	if limit < len(f.messages) {
		return f.messages[:limit], nil
	}
	return f.messages, nil
}

func (f *fakeRepo) ConversationMessages(ctx context.Context, id string, limit int) ([]store.StoredMessage, error) {
	var out []store.StoredMessage
	for _, m := range f.messages {
		if m.ConversationID == id {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeRepo) CommandHistory(ctx context.Context, limit int) ([]domain.CommandLogEntry, error) {
	return f.commands, nil
}

type fakeDispatcher struct {
	result domain.CommandResult
	got    []domain.Command
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, cmd domain.Command) domain.CommandResult {
	f.got = append(f.got, cmd)
	r := f.result
	r.Command = cmd.Type
	return r
}

func newTestRouter(t *testing.T, repo *fakeRepo, dispatcher *fakeDispatcher) (*chi.Mux, *Handler) {
	t.Helper()

	contexts := conversation.NewStore(nullCache{}, 5*time.Minute, "sahidemon")
	p := &scriptedPlanner{plan: &domain.Plan{Intent: "chat", Response: "Hi there.", UpdateContext: true}}
	s := silentSpeech{}
	orch := assistant.NewOrchestrator(
		assistant.OrchestratorOptions{UserID: "sahidemon", FollowupDelay: time.Millisecond},
		contexts, p, noopRunner{}, s, s, nil, repo, nil,
	)
	bridge := assistant.NewBridge(orch, nil, time.Minute)

	cfg := &config.Config{
		UserID:       "sahidemon",
		PlannerModel: "llama-3.3-70b-versatile",
		ContextTTL:   5 * time.Minute,
	}
	reg := registry.New(10*time.Second, 2*time.Second)

	h := NewHandler(bridge, orch, repo, nil, reg, nil, cfg)
	if dispatcher != nil {
		h.dispatcher = dispatcher
	}

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r, h
}

func TestPostMessage(t *testing.T) {
	repo := &fakeRepo{conversations: map[string]*domain.Conversation{}}
	router, _ := newTestRouter(t, repo, nil)

	body := strings.NewReader(`{"text": "hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/message", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["response"] != "Hi there." {
		t.Errorf("response = %q", resp["response"])
	}
	if resp["conversation_id"] == "" {
		t.Error("expected a conversation id")
	}
}

func TestPostMessageEmptyText(t *testing.T) {
	router, _ := newTestRouter(t, &fakeRepo{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/message", strings.NewReader(`{"text": "  "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHistory(t *testing.T) {
	repo := &fakeRepo{messages: []store.StoredMessage{
		{ID: 1, ConversationID: "c1", Role: "user", Content: "hi"},
		{ID: 2, ConversationID: "c1", Role: "assistant", Content: "hello"},
	}}
	router, _ := newTestRouter(t, repo, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Messages []store.StoredMessage `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Messages) != 2 {
		t.Errorf("got %d messages, want 2", len(resp.Messages))
	}
}

func TestConversationMessagesNotFound(t *testing.T) {
	router, _ := newTestRouter(t, &fakeRepo{conversations: map[string]*domain.Conversation{}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/nope/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestEndConversation(t *testing.T) {
	repo := &fakeRepo{conversations: map[string]*domain.Conversation{
		"c1": {ID: "c1", UserID: "sahidemon", Mode: domain.ModeText},
	}}
	router, _ := newTestRouter(t, repo, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/c1/end", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(repo.ended) != 1 || repo.ended[0] != "c1" {
		t.Errorf("ended = %v", repo.ended)
	}
}

func TestDeviceControl(t *testing.T) {
	disp := &fakeDispatcher{result: domain.CommandResult{Success: true, ResponseData: "fan=on"}}
	router, _ := newTestRouter(t, &fakeRepo{}, disp)

	body := strings.NewReader(`{"command": "fan_control", "params": {"action": "on"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/device/control", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(disp.got) != 1 || disp.got[0].Type != "fan_control" {
		t.Errorf("dispatched = %+v", disp.got)
	}
}

func TestDeviceControlRejectsNonDeviceCommand(t *testing.T) {
	disp := &fakeDispatcher{result: domain.CommandResult{Success: true}}
	router, _ := newTestRouter(t, &fakeRepo{}, disp)

	body := strings.NewReader(`{"command": "shell_command", "params": {"command": "rm -rf /"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/device/control", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(disp.got) != 0 {
		t.Errorf("non-device command reached the dispatcher: %+v", disp.got)
	}
}

func TestDeviceStatusDisabled(t *testing.T) {
	router, _ := newTestRouter(t, &fakeRepo{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/device/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestGetConfigHidesSecrets(t *testing.T) {
	router, _ := newTestRouter(t, &fakeRepo{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "api_key") || strings.Contains(rec.Body.String(), "password") {
		t.Errorf("config response leaks secrets: %s", rec.Body.String())
	}
}

func TestStatus(t *testing.T) {
	router, _ := newTestRouter(t, &fakeRepo{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["state"] != "idle" {
		t.Errorf("state = %v, want idle", resp["state"])
	}
}

func TestHealth(t *testing.T) {
	repo := &fakeRepo{}
	h := NewHealthHandler(repo, nil)

	r := chi.NewRouter()
	h.RegisterHealth(r)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "healthy" || resp.Checks["database"] != "ok" {
		t.Errorf("unexpected health payload: %+v", resp)
	}
}
