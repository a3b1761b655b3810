// Package transcript journals completed turns to per-conversation NDJSON
// files for later review.
package transcript

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config controls transcript journaling.
type Config struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Entry is one journaled turn.
type Entry struct {
	Timestamp      time.Time `json:"timestamp"`
	ConversationID string    `json:"conversation_id"`
	Mode           string    `json:"mode"`
	UserText       string    `json:"user_text"`
	Response       string    `json:"response"`
	Intent         string    `json:"intent"`
	CommandCount   int       `json:"command_count,omitempty"`
}

// Logger appends entries asynchronously so disk latency never sits on the
// turn path. When the queue is full, entries are dropped and counted.
type Logger struct {
	cfg   Config
	queue chan Entry
	done  chan struct{}
	once  sync.Once

	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewLogger creates a transcript logger. A disabled config yields a
// logger whose Log is a no-op.
func NewLogger(cfg Config) (*Logger, error) {
	l := &Logger{cfg: cfg, done: make(chan struct{})}
	if !cfg.Enabled {
		close(l.done)
		return l, nil
	}

	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
		l.cfg.QueueSize = cfg.QueueSize
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create transcript directory: %w", err)
	}

	l.queue = make(chan Entry, cfg.QueueSize)
	go l.run()
	return l, nil
}

// Log enqueues one entry. It never blocks the caller; entries arriving
// after Close are discarded.
func (l *Logger) Log(entry Entry) {
	if !l.cfg.Enabled {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	// The send happens under the mutex so Close can never pull the queue
	// out from under an in-flight Log. The send is non-blocking, so the
	// lock is held only briefly.
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	select {
	case l.queue <- entry:
		l.mu.Unlock()
		return
	default:
	}
	l.dropped++
	dropped := l.dropped
	l.mu.Unlock()
	slog.Warn("Transcript queue full, entry dropped", "conversation_id", entry.ConversationID, "dropped_total", dropped)
}

// Close drains the queue and stops the worker. Logs racing Close become
// no-ops instead of hitting a closed channel.
func (l *Logger) Close() error {
	if !l.cfg.Enabled {
		return nil
	}
	l.once.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()
		close(l.queue)
		<-l.done
	})
	return nil
}

func (l *Logger) run() {
	defer close(l.done)
	for entry := range l.queue {
		if err := l.append(entry); err != nil {
			slog.Warn("Failed to write transcript entry", "conversation_id", entry.ConversationID, "error", err)
		}
	}
}

func (l *Logger) append(entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal transcript entry: %w", err)
	}

	path := filepath.Join(l.cfg.Dir, entry.ConversationID+".ndjson")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open transcript file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write transcript entry: %w", err)
	}
	return nil
}
