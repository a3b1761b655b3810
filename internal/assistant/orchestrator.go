package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SahiDemon/Aiden-sub001/internal/conversation"
	"github.com/SahiDemon/Aiden-sub001/internal/domain"
	"github.com/SahiDemon/Aiden-sub001/internal/executor"
	"github.com/SahiDemon/Aiden-sub001/internal/planner"
	"github.com/SahiDemon/Aiden-sub001/internal/speech"
	"github.com/SahiDemon/Aiden-sub001/internal/store"
	"github.com/SahiDemon/Aiden-sub001/internal/transcript"
)

const (
	plannerApology = "Sorry, I'm having trouble thinking right now. Please try again in a moment."
	captureApology = "Sorry, I couldn't hear you properly. Please try again."
)

// Broadcaster pushes events to connected dashboard clients.
type Broadcaster interface {
	Broadcast(ctx context.Context, event domain.Event)
}

// CommandRunner executes a plan's commands and returns ordered results.
type CommandRunner interface {
	ExecuteAll(ctx context.Context, conversationID string, commands []domain.Command) []domain.CommandResult
}

// OrchestratorOptions are the tunables for turn handling.
type OrchestratorOptions struct {
	UserID        string
	Greeting      string
	FollowupDelay time.Duration

	// Followup gates the automatic re-listen; nil selects the
	// question-phrase predicate.
	Followup FollowupPredicate
}

// Orchestrator drives one turn at a time through the listen, think,
// execute, speak lifecycle. Mutual exclusion between turns is enforced
// by the Bridge; the orchestrator only tracks and publishes state.
type Orchestrator struct {
	opts        OrchestratorOptions
	contexts    *conversation.Store
	planner     planner.Planner
	runner      CommandRunner
	transcriber speech.Transcriber
	speaker     speech.Speaker
	broadcaster Broadcaster
	repo        store.Repository
	transcripts *transcript.Logger
	followup    FollowupPredicate

	mu             sync.Mutex
	state          State
	conversationID string
}

// NewOrchestrator wires the turn pipeline. repo, broadcaster and
// transcripts may be nil; the corresponding side effects are skipped.
func NewOrchestrator(
	opts OrchestratorOptions,
	contexts *conversation.Store,
	plannerClient planner.Planner,
	runner CommandRunner,
	transcriber speech.Transcriber,
	speaker speech.Speaker,
	broadcaster Broadcaster,
	repo store.Repository,
	transcripts *transcript.Logger,
) *Orchestrator {
	followup := opts.Followup
	if followup == nil {
		followup = QuestionPhrasePredicate(DefaultQuestionPhrases)
	}
	if opts.FollowupDelay == 0 {
		opts.FollowupDelay = time.Second
	}
	return &Orchestrator{
		opts:        opts,
		contexts:    contexts,
		planner:     plannerClient,
		runner:      runner,
		transcriber: transcriber,
		speaker:     speaker,
		broadcaster: broadcaster,
		repo:        repo,
		transcripts: transcripts,
		followup:    followup,
		state:       StateIdle,
	}
}

// State returns the current turn state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// ConversationID returns the active conversation id, or "" when none has
// started yet.
func (o *Orchestrator) ConversationID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conversationID
}

// ReleaseConversation forgets the active conversation so the next turn
// starts a fresh one. Called when a conversation is ended by the API or
// swept for inactivity.
func (o *Orchestrator) ReleaseConversation(conversationID string) {
	o.mu.Lock()
	matched := o.conversationID == conversationID
	if matched {
		o.conversationID = ""
	}
	o.mu.Unlock()

	if matched {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.contexts.Delete(ctx, conversationID)
		slog.Info("Conversation released", "conversation_id", conversationID)
	}
}

// Greet plays the startup cue and speaks the greeting.
func (o *Orchestrator) Greet(ctx context.Context) {
	if err := o.speaker.PlaySound(ctx, "startup"); err != nil {
		slog.Debug("Startup sound unavailable", "error", err)
	}
	if o.opts.Greeting == "" {
		return
	}
	if err := o.speaker.Speak(ctx, o.opts.Greeting); err != nil {
		slog.Warn("Failed to speak greeting", "error", err)
	}
}

// RunTurn handles one voice turn: capture an utterance, process it, and
// speak the response. When the plan expects a follow-up and the response
// reads as a question, it re-listens after a short pause. A silent
// capture window ends the turn without speaking.
func (o *Orchestrator) RunTurn(ctx context.Context, mode domain.Mode) {
	defer o.setState(StateIdle)

	for {
		o.setState(StateListening)
		text, err := o.transcriber.Transcribe(ctx)
		if err != nil {
			if errors.Is(err, speech.ErrTimeout) {
				slog.Info("No utterance captured, ending turn")
			} else if ctx.Err() == nil {
				slog.Error("Transcription failed", "error", err)
				o.setState(StateSpeaking)
				if speakErr := o.speaker.Speak(ctx, captureApology); speakErr != nil {
					slog.Warn("Failed to speak capture apology", "error", speakErr)
				}
			}
			return
		}
		slog.Info("Utterance received", "mode", mode, "length", len(text))

		response, plan := o.processTurn(ctx, text, mode)

		o.setState(StateSpeaking)
		if err := o.speaker.Speak(ctx, response); err != nil {
			slog.Warn("Failed to speak response", "error", err)
		}

		o.setState(StateDeciding)
		if ctx.Err() != nil {
			return
		}
		if !plan.ExpectingFollowup || !o.followup(response) {
			return
		}

		slog.Info("Follow-up expected, listening again")
		select {
		case <-time.After(o.opts.FollowupDelay):
		case <-ctx.Done():
			return
		}
	}
}

// RunTextTurn handles one typed turn and returns the response. Text
// turns never re-listen; the client simply sends another message.
func (o *Orchestrator) RunTextTurn(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty message")
	}

	defer o.setState(StateIdle)
	response, _ := o.processTurn(ctx, text, domain.ModeText)
	return response, nil
}

// processTurn runs the think and execute phases and settles the final
// response text.
func (o *Orchestrator) processTurn(ctx context.Context, text string, mode domain.Mode) (string, *domain.Plan) {
	conversationID := o.ensureConversation(ctx, mode)

	o.setState(StateThinking)
	convCtx := o.contexts.Get(ctx, conversationID, mode)

	plan, err := o.planner.Plan(ctx, convCtx.History, text)
	if err != nil {
		slog.Error("Planning failed", "error", err)
		plan = domain.FallbackPlan(plannerApology)
	}

	var results []domain.CommandResult
	if len(plan.Commands) > 0 {
		o.setState(StateExecuting)
		results = o.runner.ExecuteAll(ctx, conversationID, plan.Commands)
	}

	response := plan.Response
	if feedback := executor.DeviceFeedback(results); feedback != "" {
		if enhanced, err := o.planner.Enhance(ctx, text, feedback); err != nil {
			slog.Warn("Response enhancement failed", "error", err)
		} else if enhanced != "" {
			response = enhanced
		}
	}
	// An unreachable device beats whatever the planner promised, even an
	// enhanced answer.
	if executor.HasConnectivityFailure(results) {
		response = executor.ConnectivityApology
	}

	if plan.UpdateContext {
		persisted := *plan
		persisted.Response = response
		o.contexts.AppendTurn(ctx, conversationID, text, &persisted, mode)
	}

	o.recordTurn(conversationID, mode, text, response, plan, results)
	return response, plan
}

// setState updates the turn state and publishes it to observers.
func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	if o.state == s {
		o.mu.Unlock()
		return
	}
	o.state = s
	o.mu.Unlock()

	slog.Debug("Turn state changed", "state", s)
	o.broadcast(domain.NewEvent(domain.EventVoiceStatus, map[string]any{"state": s.String()}))
}

func (o *Orchestrator) ensureConversation(ctx context.Context, mode domain.Mode) string {
	o.mu.Lock()
	if o.conversationID != "" {
		id := o.conversationID
		o.mu.Unlock()
		return id
	}
	id := uuid.New().String()
	o.conversationID = id
	o.mu.Unlock()

	if o.repo != nil {
		conv := &domain.Conversation{
			ID:        id,
			UserID:    o.opts.UserID,
			Mode:      mode,
			CreatedAt: time.Now().UTC(),
		}
		if err := o.repo.CreateConversation(ctx, conv); err != nil {
			slog.Warn("Failed to persist conversation", "conversation_id", id, "error", err)
		}
	}
	slog.Info("Conversation started", "conversation_id", id, "mode", mode)
	return id
}

// recordTurn fans the completed turn out to observers and durable
// storage. Database writes happen off the turn path.
func (o *Orchestrator) recordTurn(conversationID string, mode domain.Mode, text, response string, plan *domain.Plan, results []domain.CommandResult) {
	o.broadcast(domain.NewEvent(domain.EventMessage, map[string]any{
		"conversation_id": conversationID,
		"user_text":       text,
		"response":        response,
		"intent":          plan.Intent,
	}))
	if len(results) > 0 {
		o.broadcast(domain.NewEvent(domain.EventCommands, results))
	}

	if o.transcripts != nil {
		o.transcripts.Log(transcript.Entry{
			ConversationID: conversationID,
			Mode:           string(mode),
			UserText:       text,
			Response:       response,
			Intent:         plan.Intent,
			CommandCount:   len(plan.Commands),
		})
	}

	if o.repo != nil {
		go func() {
			writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := o.repo.AddMessage(writeCtx, conversationID, "user", text, plan.Intent); err != nil {
				slog.Warn("Failed to persist user message", "conversation_id", conversationID, "error", err)
			}
			if err := o.repo.AddMessage(writeCtx, conversationID, "assistant", response, ""); err != nil {
				slog.Warn("Failed to persist assistant message", "conversation_id", conversationID, "error", err)
			}
		}()
	}
}

func (o *Orchestrator) broadcast(event domain.Event) {
	if o.broadcaster == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	o.broadcaster.Broadcast(ctx, event)
}
