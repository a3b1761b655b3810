package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SahiDemon/Aiden-sub001/internal/domain"
)

// Router maps command types to their executors. A nil executor means the
// backend is disabled and its commands fail with a clear message.
type Router struct {
	host    Executor
	device  Executor
	sandbox Executor
}

// NewRouter wires the command type families to their backends.
func NewRouter(host, device, sandbox Executor) *Router {
	return &Router{host: host, device: device, sandbox: sandbox}
}

// Dispatch runs a command on the executor that owns its type.
func (r *Router) Dispatch(ctx context.Context, cmd domain.Command) domain.CommandResult {
	slog.Debug("Dispatching command", "type", cmd.Type)

	switch cmd.Type {
	case "launch_app", "kill_process", "system_command":
		return r.run(ctx, r.host, cmd, "host control")
	case "device_on", "device_off", "device_status", "fan_control":
		return r.run(ctx, r.device, cmd, "device control")
	case "shell_command":
		return r.run(ctx, r.sandbox, cmd, "sandbox")
	default:
		return failure(cmd, fmt.Sprintf("unknown command type %q", cmd.Type))
	}
}

func (r *Router) run(ctx context.Context, e Executor, cmd domain.Command, backend string) domain.CommandResult {
	if e == nil {
		return failure(cmd, backend+" is not enabled")
	}
	return e.Execute(ctx, cmd)
}
