package executor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/google/uuid"

	"github.com/SahiDemon/Aiden-sub001/internal/domain"
)

const (
	sandboxTimeout     = 30 * time.Second
	sandboxStopSecs    = 2
	sandboxMemoryBytes = 256 * 1024 * 1024 // 256MB
	sandboxCPUQuota    = 50000             // 0.5 CPU
	sandboxPidsLimit   = 128
	sandboxOutputLimit = 8192
)

// Sandbox runs planner-issued shell commands in throwaway containers so
// they never touch the host.
type Sandbox struct {
	cli   *client.Client
	image string
}

// NewSandbox creates a Docker-backed sandbox using the given image.
func NewSandbox(image string) (*Sandbox, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	slog.Info("Sandbox initialized", "image", image)
	return &Sandbox{cli: cli, image: image}, nil
}

// Execute runs one shell command in a fresh container.
func (s *Sandbox) Execute(ctx context.Context, cmd domain.Command) domain.CommandResult {
	script := cmd.StringParam("command")
	if script == "" {
		return failure(cmd, "shell_command requires a command parameter")
	}

	runCtx, cancel := context.WithTimeout(ctx, sandboxTimeout)
	defer cancel()

	output, err := s.run(runCtx, script)
	if err != nil {
		return failure(cmd, err.Error())
	}
	return success(cmd, output)
}

func (s *Sandbox) run(ctx context.Context, script string) (string, error) {
	name := fmt.Sprintf("aiden-sandbox-%s", uuid.New().String()[:8])

	config := &container.Config{
		Image: s.image,
		Cmd:   []string{"sh", "-c", script},
		Tty:   true,
	}
	hostConfig := &container.HostConfig{
		NetworkMode: "none",
		Resources: container.Resources{
			Memory:    sandboxMemoryBytes,
			CPUQuota:  sandboxCPUQuota,
			PidsLimit: ptr(int64(sandboxPidsLimit)),
		},
	}

	resp, err := s.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, name)
	if err != nil {
		return "", fmt.Errorf("create sandbox container: %w", err)
	}
	defer s.remove(resp.ID)

	if err := s.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("start sandbox container: %w", err)
	}

	statusCh, errCh := s.cli.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	var exitCode int64
	select {
	case status := <-statusCh:
		exitCode = status.StatusCode
	case err := <-errCh:
		return "", fmt.Errorf("wait for sandbox container: %w", err)
	case <-ctx.Done():
		return "", fmt.Errorf("sandbox command timed out")
	}

	output, err := s.readLogs(ctx, resp.ID)
	if err != nil {
		slog.Warn("Failed to read sandbox output", "container_id", resp.ID, "error", err)
		output = ""
	}

	if exitCode != 0 {
		return "", fmt.Errorf("command exited with code %d: %s", exitCode, output)
	}
	if output == "" {
		output = "(no output)"
	}
	return output, nil
}

func (s *Sandbox) readLogs(ctx context.Context, containerID string) (string, error) {
	logs, err := s.cli.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return "", fmt.Errorf("fetch sandbox logs: %w", err)
	}
	defer logs.Close()

	data, err := io.ReadAll(io.LimitReader(logs, sandboxOutputLimit))
	if err != nil {
		return "", fmt.Errorf("read sandbox logs: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// remove tears the container down with its own context so cleanup still
// happens after a command timeout.
func (s *Sandbox) remove(containerID string) {
	cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	timeout := sandboxStopSecs
	if err := s.cli.ContainerStop(cleanupCtx, containerID, container.StopOptions{Timeout: &timeout}); err != nil && !errdefs.IsNotFound(err) {
		slog.Debug("Sandbox container stop returned error", "container_id", containerID, "error", err)
	}
	if err := s.cli.ContainerRemove(cleanupCtx, containerID, container.RemoveOptions{Force: true}); err != nil && !errdefs.IsNotFound(err) {
		slog.Warn("Failed to remove sandbox container", "container_id", containerID, "error", err)
	}
}

func ptr[T any](v T) *T {
	return &v
}
