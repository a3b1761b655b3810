package assistant

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/SahiDemon/Aiden-sub001/internal/domain"
)

// ErrBusy is returned when an activation arrives while a turn is already
// in progress.
var ErrBusy = errors.New("assistant is busy with another turn")

// CaptureSource is an always-on trigger (wake word listener, hotkey
// daemon) that must be paused while a turn owns the microphone.
type CaptureSource interface {
	Pause()
	Resume()
}

// Bridge serializes activations from all sources into single turns. It
// holds a one-permit gate: while a turn runs, further activations are
// logged and dropped. Capture sources are always resumed, whatever the
// turn's outcome.
type Bridge struct {
	orch    *Orchestrator
	sources []CaptureSource
	timeout time.Duration

	mu     sync.Mutex
	active bool
}

// NewBridge creates the activation bridge. timeout bounds one whole turn
// including follow-ups.
func NewBridge(orch *Orchestrator, sources []CaptureSource, timeout time.Duration) *Bridge {
	if timeout == 0 {
		timeout = time.Minute
	}
	return &Bridge{orch: orch, sources: sources, timeout: timeout}
}

// Active reports whether a turn currently holds the permit.
func (b *Bridge) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Activate starts a voice turn in the background. It returns false when
// the permit is already held or a turn is otherwise in flight.
func (b *Bridge) Activate(mode domain.Mode) bool {
	if !b.acquire(mode) {
		return false
	}
	go b.runVoiceTurn(mode)
	return true
}

// ActivateText runs a typed turn synchronously and returns the response.
// Text turns take the same permit as voice turns, so a dashboard message
// can never interleave with a spoken one.
func (b *Bridge) ActivateText(ctx context.Context, text string) (string, error) {
	if !b.acquire(domain.ModeText) {
		return "", ErrBusy
	}
	b.pauseSources()
	defer b.release()

	turnCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.orch.RunTextTurn(turnCtx, text)
}

func (b *Bridge) acquire(mode domain.Mode) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active {
		slog.Info("Activation ignored, turn already in progress", "mode", mode)
		return false
	}
	// The orchestrator can be mid-turn without the bridge knowing only
	// if someone drives it directly; refuse rather than interleave.
	if b.orch.State() != StateIdle {
		slog.Warn("Activation ignored, orchestrator not idle", "mode", mode, "state", b.orch.State())
		return false
	}

	b.active = true
	slog.Info("Activation accepted", "mode", mode)
	return true
}

// release drops the permit and resumes every capture source. It runs
// exactly once per accepted activation.
func (b *Bridge) release() {
	b.resumeSources()
	b.mu.Lock()
	b.active = false
	b.mu.Unlock()
	slog.Debug("Activation permit released")
}

func (b *Bridge) runVoiceTurn(mode domain.Mode) {
	b.pauseSources()
	defer b.release()

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.orch.RunTurn(ctx, mode)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// The turn goroutine unwinds on the cancelled context; the
		// permit is released now so the assistant is not wedged behind
		// a stuck backend.
		slog.Warn("Turn exceeded activation timeout, abandoning", "mode", mode, "timeout", b.timeout)
	}
}

func (b *Bridge) pauseSources() {
	for _, s := range b.sources {
		s.Pause()
	}
}

func (b *Bridge) resumeSources() {
	for _, s := range b.sources {
		s.Resume()
	}
}
