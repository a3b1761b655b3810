// Package executor runs planner-produced commands against the host,
// remote devices, and a sandboxed shell.
package executor

import (
	"context"
	"strings"

	"github.com/SahiDemon/Aiden-sub001/internal/domain"
)

// ConnectivityApology replaces the planner's response when a device
// could not be reached, so the user hears what actually happened.
const ConnectivityApology = "Sorry, I couldn't reach your device right now. Please check that it's powered on and connected."

// connectivityPrefix marks failures caused by an unreachable device
// rather than by the command itself.
const connectivityPrefix = "device unreachable"

// Executor runs a single command and reports its outcome. Implementations
// never return an error; failures are carried in the result.
type Executor interface {
	Execute(ctx context.Context, cmd domain.Command) domain.CommandResult
}

// Dispatcher routes a command to the executor responsible for its type.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd domain.Command) domain.CommandResult
}

// HasConnectivityFailure reports whether any result failed because a
// device was unreachable.
func HasConnectivityFailure(results []domain.CommandResult) bool {
	for _, r := range results {
		if !r.Success && strings.HasPrefix(r.Error, connectivityPrefix) {
			return true
		}
	}
	return false
}

// deviceCommands are the command types served by the device backend.
var deviceCommands = map[string]bool{
	"device_on":     true,
	"device_off":    true,
	"device_status": true,
	"fan_control":   true,
}

// DeviceFeedback returns the first payload a device reported, or "".
// Only device results qualify; host and sandbox output is not fed back
// into the response.
func DeviceFeedback(results []domain.CommandResult) string {
	for _, r := range results {
		if r.Success && r.ResponseData != "" && deviceCommands[r.Command] {
			return r.ResponseData
		}
	}
	return ""
}

func failure(cmd domain.Command, msg string) domain.CommandResult {
	return domain.CommandResult{
		Success: false,
		Command: cmd.Type,
		Error:   msg,
	}
}

func success(cmd domain.Command, data string) domain.CommandResult {
	return domain.CommandResult{
		Success:      true,
		Command:      cmd.Type,
		ResponseData: data,
	}
}
