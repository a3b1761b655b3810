package speech

import (
	"context"
	"log/slog"
	"time"
)

// WakeWordSource controls the daemon's always-on wake word detector.
// It is paused while a turn owns the microphone so the assistant cannot
// wake on its own synthesized speech. Both calls are best effort; a
// failed pause only risks a spurious activation, which the turn permit
// already rejects.
type WakeWordSource struct {
	client *Client
}

// NewWakeWordSource creates a pause/resume handle for the wake detector.
func NewWakeWordSource(client *Client) *WakeWordSource {
	return &WakeWordSource{client: client}
}

// Pause stops wake word detection.
func (w *WakeWordSource) Pause() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.client.post(ctx, "/wake/pause", nil, 5*time.Second); err != nil {
		slog.Warn("Failed to pause wake word detection", "error", err)
	}
}

// Resume restarts wake word detection.
func (w *WakeWordSource) Resume() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.client.post(ctx, "/wake/resume", nil, 5*time.Second); err != nil {
		slog.Warn("Failed to resume wake word detection", "error", err)
	}
}
