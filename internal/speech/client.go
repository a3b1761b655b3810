package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const listenTimeout = 30 * time.Second

// Client implements Transcriber and Speaker against the speech daemon's
// HTTP API.
type Client struct {
	baseURL      string
	speakTimeout time.Duration
	httpClient   *http.Client
}

// NewClient creates a speech daemon client. speakTimeout bounds a single
// synthesis and playback; listening has its own window.
func NewClient(baseURL string, speakTimeout time.Duration) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		speakTimeout: speakTimeout,
		// Per-request contexts carry the deadlines.
		httpClient: &http.Client{},
	}
}

// Transcribe asks the daemon to capture and recognize one utterance.
// The daemon answers 204 when the capture window closes on silence.
func (c *Client) Transcribe(ctx context.Context) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, listenTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/listen", nil)
	if err != nil {
		return "", fmt.Errorf("create listen request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("listen request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return "", ErrTimeout
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("speech daemon returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode transcript: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", ErrTimeout
	}
	slog.Debug("Utterance transcribed", "length", len(text))
	return text, nil
}

// Speak synthesizes text and blocks until playback finishes.
func (c *Client) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return c.post(ctx, "/speak", map[string]string{"text": text}, c.speakTimeout)
}

// PlaySound plays a named earcon.
func (c *Client) PlaySound(ctx context.Context, name string) error {
	return c.post(ctx, "/sound", map[string]string{"name": name}, 10*time.Second)
}

func (c *Client) post(ctx context.Context, path string, payload map[string]string, timeout time.Duration) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("speech daemon request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("speech daemon returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(errBody)))
	}
	return nil
}
