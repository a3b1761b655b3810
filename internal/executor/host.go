package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/SahiDemon/Aiden-sub001/internal/domain"
)

const hostCommandTimeout = 15 * time.Second

// systemCommands is the set of host actions the planner may request.
// Anything outside the allowlist is rejected, since these run with the
// daemon's privileges.
var systemCommands = map[string][]string{
	"lock":        {"loginctl", "lock-session"},
	"sleep":       {"systemctl", "suspend"},
	"volume_up":   {"pactl", "set-sink-volume", "@DEFAULT_SINK@", "+10%"},
	"volume_down": {"pactl", "set-sink-volume", "@DEFAULT_SINK@", "-10%"},
	"mute":        {"pactl", "set-sink-mute", "@DEFAULT_SINK@", "toggle"},
}

// HostController executes application and system commands on the local
// machine.
type HostController struct{}

// NewHostController creates a host executor.
func NewHostController() *HostController {
	return &HostController{}
}

// Execute runs one host command.
func (h *HostController) Execute(ctx context.Context, cmd domain.Command) domain.CommandResult {
	switch cmd.Type {
	case "launch_app":
		return h.launchApp(cmd)
	case "kill_process":
		return h.killProcess(ctx, cmd)
	case "system_command":
		return h.systemCommand(ctx, cmd)
	default:
		return failure(cmd, fmt.Sprintf("host controller cannot handle %q", cmd.Type))
	}
}

func (h *HostController) launchApp(cmd domain.Command) domain.CommandResult {
	name := cmd.StringParam("name")
	if name == "" {
		return failure(cmd, "launch_app requires a name parameter")
	}
	if !validAppName(name) {
		return failure(cmd, fmt.Sprintf("invalid application name %q", name))
	}

	// Detach from the daemon so the app outlives this request.
	proc := exec.Command(name)
	if err := proc.Start(); err != nil {
		return failure(cmd, fmt.Sprintf("launch %s: %v", name, err))
	}
	go func() {
		if err := proc.Wait(); err != nil {
			slog.Debug("Launched app exited with error", "app", name, "error", err)
		}
	}()

	slog.Info("Application launched", "app", name, "pid", proc.Process.Pid)
	return success(cmd, fmt.Sprintf("%s launched", name))
}

func (h *HostController) killProcess(ctx context.Context, cmd domain.Command) domain.CommandResult {
	name := cmd.StringParam("name")
	if name == "" {
		return failure(cmd, "kill_process requires a name parameter")
	}
	if !validAppName(name) {
		return failure(cmd, fmt.Sprintf("invalid process name %q", name))
	}

	runCtx, cancel := context.WithTimeout(ctx, hostCommandTimeout)
	defer cancel()

	out, err := exec.CommandContext(runCtx, "pkill", "-f", name).CombinedOutput()
	if err != nil {
		// pkill exits 1 when nothing matched.
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return failure(cmd, fmt.Sprintf("no process matching %q", name))
		}
		return failure(cmd, fmt.Sprintf("kill %s: %v: %s", name, err, strings.TrimSpace(string(out))))
	}

	slog.Info("Process killed", "process", name)
	return success(cmd, fmt.Sprintf("%s stopped", name))
}

func (h *HostController) systemCommand(ctx context.Context, cmd domain.Command) domain.CommandResult {
	action := cmd.StringParam("action")
	argv, ok := systemCommands[action]
	if !ok {
		return failure(cmd, fmt.Sprintf("system command %q is not allowed", action))
	}

	runCtx, cancel := context.WithTimeout(ctx, hostCommandTimeout)
	defer cancel()

	out, err := exec.CommandContext(runCtx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		return failure(cmd, fmt.Sprintf("%s: %v: %s", action, err, strings.TrimSpace(string(out))))
	}

	slog.Info("System command executed", "action", action)
	return success(cmd, fmt.Sprintf("%s done", action))
}

// validAppName rejects names that could smuggle shell syntax or paths.
func validAppName(name string) bool {
	if len(name) == 0 || len(name) > 64 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.' || r == ' ':
		default:
			return false
		}
	}
	return true
}
