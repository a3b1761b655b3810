// Package speech talks to the local speech daemon for microphone capture
// and synthesized output.
package speech

import (
	"context"
	"errors"
)

// ErrTimeout means the microphone heard nothing before the capture
// window closed. Callers end the turn silently rather than erroring.
var ErrTimeout = errors.New("speech: listen timed out")

// Transcriber captures one utterance from the microphone.
type Transcriber interface {
	// Transcribe blocks until an utterance is recognized, the capture
	// window times out (ErrTimeout), or ctx is cancelled.
	Transcribe(ctx context.Context) (string, error)
}

// Speaker produces audible output.
type Speaker interface {
	// Speak synthesizes and plays text, blocking until playback ends.
	Speak(ctx context.Context, text string) error

	// PlaySound plays a named earcon such as the activation chime.
	PlaySound(ctx context.Context, name string) error
}
