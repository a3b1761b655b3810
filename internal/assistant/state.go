// Package assistant orchestrates turns: capture, planning, execution,
// and spoken response.
package assistant

// State is the orchestrator's position in the turn lifecycle. Exactly
// one turn owns the non-idle states at a time.
type State int32

const (
	// StateIdle means no turn is in progress.
	StateIdle State = iota
	// StateListening means the microphone is capturing an utterance.
	StateListening
	// StateThinking means the planner is working on the utterance.
	StateThinking
	// StateExecuting means commands are being run.
	StateExecuting
	// StateSpeaking means the response is being played back.
	StateSpeaking
	// StateDeciding means the turn is choosing whether to re-listen.
	StateDeciding
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateThinking:
		return "thinking"
	case StateExecuting:
		return "executing"
	case StateSpeaking:
		return "speaking"
	case StateDeciding:
		return "deciding"
	default:
		return "unknown"
	}
}
