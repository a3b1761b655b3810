package executor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/SahiDemon/Aiden-sub001/internal/domain"
)

// fakeDispatcher resolves commands from a scripted table, optionally
// sleeping to simulate slow backends.
type fakeDispatcher struct {
	delays  map[string]time.Duration
	results map[string]domain.CommandResult
	panics  map[string]bool
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, cmd domain.Command) domain.CommandResult {
	if f.panics[cmd.Type] {
		panic("scripted panic for " + cmd.Type)
	}
	if d, ok := f.delays[cmd.Type]; ok {
		time.Sleep(d)
	}
	if r, ok := f.results[cmd.Type]; ok {
		return r
	}
	return success(cmd, "")
}

func TestExecuteAllPreservesOrder(t *testing.T) {
	fake := &fakeDispatcher{
		delays: map[string]time.Duration{
			"launch_app":    80 * time.Millisecond,
			"fan_control":   40 * time.Millisecond,
			"device_status": 10 * time.Millisecond,
		},
		results: map[string]domain.CommandResult{
			"launch_app":    {Success: true, Command: "launch_app", ResponseData: "spotify launched"},
			"fan_control":   {Success: false, Command: "fan_control", Error: "device unreachable: dial tcp: timeout"},
			"device_status": {Success: true, Command: "device_status", ResponseData: "fan=off temp=24"},
		},
	}
	c := NewCoordinator(fake, nil)

	commands := []domain.Command{
		{Type: "launch_app", Params: map[string]any{"name": "spotify"}},
		{Type: "fan_control", Params: map[string]any{"action": "on"}},
		{Type: "device_status"},
	}

	start := time.Now()
	results := c.ExecuteAll(context.Background(), "conv-1", commands)
	elapsed := time.Since(start)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, cmd := range commands {
		if results[i].Command != cmd.Type {
			t.Errorf("result %d is %q, want %q", i, results[i].Command, cmd.Type)
		}
	}
	if results[0].ResponseData != "spotify launched" {
		t.Errorf("unexpected result 0: %+v", results[0])
	}
	if results[1].Success {
		t.Error("fan_control should have failed")
	}

	// Commands run concurrently, so total time tracks the slowest
	// command, not the sum.
	if elapsed > 200*time.Millisecond {
		t.Errorf("commands appear to have run sequentially: %v", elapsed)
	}
}

func TestExecuteAllRecoverFromPanic(t *testing.T) {
	fake := &fakeDispatcher{
		panics: map[string]bool{"launch_app": true},
		results: map[string]domain.CommandResult{
			"device_status": {Success: true, Command: "device_status", ResponseData: "ok"},
		},
	}
	c := NewCoordinator(fake, nil)

	results := c.ExecuteAll(context.Background(), "", []domain.Command{
		{Type: "launch_app"},
		{Type: "device_status"},
	})

	if results[0].Success {
		t.Error("panicking executor should yield a failed result")
	}
	if results[0].Error == "" {
		t.Error("panic result should carry an error message")
	}
	if !results[1].Success {
		t.Errorf("second command should be unaffected: %+v", results[1])
	}
}

func TestExecuteAllEmpty(t *testing.T) {
	c := NewCoordinator(&fakeDispatcher{}, nil)
	if results := c.ExecuteAll(context.Background(), "", nil); results != nil {
		t.Errorf("expected nil results for empty plan, got %v", results)
	}
}

func TestHasConnectivityFailure(t *testing.T) {
	cases := []struct {
		name    string
		results []domain.CommandResult
		want    bool
	}{
		{
			name: "device unreachable",
			results: []domain.CommandResult{
				{Success: true, Command: "launch_app"},
				{Success: false, Command: "fan_control", Error: "device unreachable: dial tcp: connection refused"},
			},
			want: true,
		},
		{
			name: "ordinary failure",
			results: []domain.CommandResult{
				{Success: false, Command: "launch_app", Error: "no process matching \"spotify\""},
			},
			want: false,
		},
		{
			name: "all success",
			results: []domain.CommandResult{
				{Success: true, Command: "device_on"},
			},
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HasConnectivityFailure(tc.results); got != tc.want {
				t.Errorf("HasConnectivityFailure = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDeviceFeedback(t *testing.T) {
	results := []domain.CommandResult{
		{Success: false, Command: "fan_control", Error: "boom"},
		{Success: true, Command: "launch_app", ResponseData: "spotify launched"},
		{Success: true, Command: "device_status", ResponseData: "fan=on"},
	}
	if got := DeviceFeedback(results); got != "fan=on" {
		t.Errorf("DeviceFeedback = %q, want %q", got, "fan=on")
	}
	if got := DeviceFeedback(nil); got != "" {
		t.Errorf("DeviceFeedback on empty = %q, want empty", got)
	}
}

func TestRouterUnknownType(t *testing.T) {
	r := NewRouter(NewHostController(), nil, nil)
	res := r.Dispatch(context.Background(), domain.Command{Type: "teleport"})
	if res.Success {
		t.Error("unknown command type should fail")
	}
}

func TestRouterDisabledBackend(t *testing.T) {
	r := NewRouter(nil, nil, nil)
	res := r.Dispatch(context.Background(), domain.Command{Type: "shell_command", Params: map[string]any{"command": "ls"}})
	if res.Success {
		t.Error("disabled backend should fail")
	}
	if res.Error != "sandbox is not enabled" {
		t.Errorf("unexpected error: %q", res.Error)
	}
}

func TestHostControllerValidation(t *testing.T) {
	h := NewHostController()

	res := h.Execute(context.Background(), domain.Command{Type: "launch_app"})
	if res.Success {
		t.Error("launch_app without name should fail")
	}

	res = h.Execute(context.Background(), domain.Command{
		Type:   "launch_app",
		Params: map[string]any{"name": "firefox; rm -rf /"},
	})
	if res.Success {
		t.Error("shell metacharacters in app name should be rejected")
	}

	res = h.Execute(context.Background(), domain.Command{
		Type:   "system_command",
		Params: map[string]any{"action": "reboot"},
	})
	if res.Success {
		t.Error("non-allowlisted system command should be rejected")
	}
	want := fmt.Sprintf("system command %q is not allowed", "reboot")
	if res.Error != want {
		t.Errorf("unexpected error: %q", res.Error)
	}
}
