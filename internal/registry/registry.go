// Package registry tracks active client connections and fans events out
// to them.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SahiDemon/Aiden-sub001/internal/domain"
)

// Transport is one client connection the registry can push events to.
type Transport interface {
	// Send writes one serialized event to the client.
	Send(ctx context.Context, data []byte) error
	// Ping checks connection liveness within the context deadline.
	Ping(ctx context.Context) error
	// Open reports whether the connection is known to still be open.
	Open() bool
	// Close terminates the connection.
	Close() error
}

// Registry manages active dashboard connections.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]Transport

	sweepInterval time.Duration
	pingTimeout   time.Duration
}

// New creates a registry. The sweep interval controls how often dead
// connections are detected; pingTimeout bounds each liveness probe.
func New(sweepInterval, pingTimeout time.Duration) *Registry {
	return &Registry{
		connections:   make(map[string]Transport),
		sweepInterval: sweepInterval,
		pingTimeout:   pingTimeout,
	}
}

// Connect registers a transport and returns its connection id.
func (r *Registry) Connect(t Transport) string {
	id := uuid.New().String()
	r.mu.Lock()
	r.connections[id] = t
	count := len(r.connections)
	r.mu.Unlock()
	slog.Info("Client connected", "connection_id", id, "total", count)
	return id
}

// Disconnect removes a connection. Unknown ids are ignored.
func (r *Registry) Disconnect(id string) {
	r.mu.Lock()
	t, ok := r.connections[id]
	if ok {
		delete(r.connections, id)
	}
	count := len(r.connections)
	r.mu.Unlock()

	if !ok {
		return
	}
	if err := t.Close(); err != nil {
		slog.Debug("Failed to close connection", "connection_id", id, "error", err)
	}
	slog.Info("Client disconnected", "connection_id", id, "total", count)
}

// Count returns the number of active connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// SendTo delivers an event to a single connection. Unknown ids return an
// error; a failed write removes the connection.
func (r *Registry) SendTo(ctx context.Context, id string, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	r.mu.RLock()
	t, ok := r.connections[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown connection: %s", id)
	}

	if err := t.Send(ctx, data); err != nil {
		r.Disconnect(id)
		return fmt.Errorf("failed to send to %s: %w", id, err)
	}
	return nil
}

// Broadcast sends an event to every active connection. Connections that
// fail to accept the write are removed after the send loop completes, so
// one dead client never blocks delivery to the rest.
func (r *Registry) Broadcast(ctx context.Context, event domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal event", "type", event.Type, "error", err)
		return
	}

	r.mu.RLock()
	snapshot := make(map[string]Transport, len(r.connections))
	for id, t := range r.connections {
		snapshot[id] = t
	}
	r.mu.RUnlock()

	var failed []string
	for id, t := range snapshot {
		if err := t.Send(ctx, data); err != nil {
			slog.Debug("Broadcast send failed", "connection_id", id, "error", err)
			failed = append(failed, id)
		}
	}

	for _, id := range failed {
		r.Disconnect(id)
	}
}

// Run sweeps for dead connections until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()
	slog.Info("Connection sweep started", "interval", r.sweepInterval)

	for {
		select {
		case <-ticker.C:
			r.sweep(ctx)
		case <-ctx.Done():
			slog.Info("Connection sweep shutting down", "reason", ctx.Err())
			r.closeAll()
			return
		}
	}
}

func (r *Registry) sweep(ctx context.Context) {
	r.mu.RLock()
	snapshot := make(map[string]Transport, len(r.connections))
	for id, t := range r.connections {
		snapshot[id] = t
	}
	r.mu.RUnlock()

	var dead []string
	for id, t := range snapshot {
		// Connections already known closed are dropped without a probe.
		if !t.Open() {
			slog.Debug("Connection reported closed", "connection_id", id)
			dead = append(dead, id)
			continue
		}
		pingCtx, cancel := context.WithTimeout(ctx, r.pingTimeout)
		err := t.Ping(pingCtx)
		cancel()
		if err != nil {
			slog.Debug("Connection failed liveness check", "connection_id", id, "error", err)
			dead = append(dead, id)
		}
	}

	if len(dead) == 0 {
		return
	}

	// Remove the whole batch under one lock acquisition.
	r.mu.Lock()
	removed := make([]Transport, 0, len(dead))
	for _, id := range dead {
		if t, ok := r.connections[id]; ok {
			delete(r.connections, id)
			removed = append(removed, t)
		}
	}
	remaining := len(r.connections)
	r.mu.Unlock()

	for _, t := range removed {
		if err := t.Close(); err != nil {
			slog.Debug("Failed to close swept connection", "error", err)
		}
	}
	slog.Info("Swept dead connections", "count", len(removed), "remaining", remaining)
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	connections := r.connections
	r.connections = make(map[string]Transport)
	r.mu.Unlock()

	for id, t := range connections {
		if err := t.Close(); err != nil {
			slog.Debug("Failed to close connection during shutdown", "connection_id", id, "error", err)
		}
	}
}
