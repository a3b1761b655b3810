package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SahiDemon/Aiden-sub001/internal/domain"
)

const deviceRequestTimeout = 5 * time.Second

// DeviceClient talks to the smart device's HTTP endpoint. Network
// failures are reported as connectivity errors so the orchestrator can
// apologize instead of parroting the planner's optimistic response.
type DeviceClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewDeviceClient creates a client for the device at baseURL.
func NewDeviceClient(baseURL string) *DeviceClient {
	return &DeviceClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: deviceRequestTimeout},
	}
}

// Execute runs one device command.
func (d *DeviceClient) Execute(ctx context.Context, cmd domain.Command) domain.CommandResult {
	switch cmd.Type {
	case "device_on":
		return d.call(ctx, cmd, http.MethodPost, "/relay/on", nil)
	case "device_off":
		return d.call(ctx, cmd, http.MethodPost, "/relay/off", nil)
	case "device_status":
		return d.call(ctx, cmd, http.MethodGet, "/status", nil)
	case "fan_control":
		return d.fanControl(ctx, cmd)
	default:
		return failure(cmd, fmt.Sprintf("device client cannot handle %q", cmd.Type))
	}
}

func (d *DeviceClient) fanControl(ctx context.Context, cmd domain.Command) domain.CommandResult {
	action := cmd.StringParam("action")
	if action == "" {
		action = "toggle"
	}
	params := url.Values{"action": {action}}
	if speed := cmd.StringParam("speed"); speed != "" {
		params.Set("speed", speed)
	}
	return d.call(ctx, cmd, http.MethodPost, "/fan?"+params.Encode(), nil)
}

func (d *DeviceClient) call(ctx context.Context, cmd domain.Command, method, path string, body io.Reader) domain.CommandResult {
	reqCtx, cancel := context.WithTimeout(ctx, deviceRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, d.baseURL+path, body)
	if err != nil {
		return failure(cmd, fmt.Sprintf("build device request: %v", err))
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return failure(cmd, fmt.Sprintf("%s: %v", connectivityPrefix, err))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return failure(cmd, fmt.Sprintf("%s: read response: %v", connectivityPrefix, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failure(cmd, fmt.Sprintf("device returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))))
	}

	return success(cmd, summarizeDevicePayload(payload))
}

// summarizeDevicePayload flattens a JSON status body into a short string
// the response enhancer can feed back to the planner. Non-JSON bodies
// pass through unchanged.
func summarizeDevicePayload(payload []byte) string {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return "ok"
	}

	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return trimmed
	}

	parts := make([]string, 0, len(fields))
	for k, v := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, " ")
}
