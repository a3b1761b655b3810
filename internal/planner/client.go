package planner

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

	"github.com/SahiDemon/Aiden-sub001/internal/config"
	"github.com/SahiDemon/Aiden-sub001/internal/domain"
)

const maxErrorBodySize = 4096

// ClientConfig holds connection settings for the planning API.
type ClientConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// Client is a Planner backed by an OpenAI-compatible chat endpoint.
type Client struct {
	cfg     ClientConfig
	prompts *config.Prompts
	client  *http.Client
}

// NewClient creates a planner client. The API key is required; failing
// fast here beats a confusing error on the first turn.
func NewClient(cfg ClientConfig, prompts *config.Prompts) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("planner API key not configured")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:     cfg,
		prompts: prompts,
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	Temperature    float64       `json:"temperature,omitempty"`
	ResponseFormat *formatSpec   `json:"response_format,omitempty"`
}

type formatSpec struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Plan asks the model for a structured plan. The request carries the
// system prompt, the most recent history, and the new utterance.
func (c *Client) Plan(ctx context.Context, history []domain.Message, userText string) (*domain.Plan, error) {
	messages := make([]chatMessage, 0, historyWindow+2)
	messages = append(messages, chatMessage{Role: "system", Content: c.prompts.SystemPrompt})

	for _, m := range domain.RecentMessages(history, historyWindow) {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userText})

	content, err := c.complete(ctx, chatRequest{
		Model:          c.cfg.Model,
		Messages:       messages,
		Temperature:    0.6,
		MaxTokens:      1024,
		ResponseFormat: &formatSpec{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}

	plan, err := ParsePlan(content)
	if err != nil {
		return nil, err
	}
	slog.Debug("Plan produced", "intent", plan.Intent, "commands", len(plan.Commands), "followup", plan.ExpectingFollowup)
	return plan, nil
}

// Enhance rewrites the response with live device feedback folded in. The
// temperature is kept low so the output stays close to the facts.
func (c *Client) Enhance(ctx context.Context, userRequest, deviceResponse string) (string, error) {
	content, err := c.complete(ctx, chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: c.prompts.RenderEnhancement(userRequest, deviceResponse)},
		},
		Temperature: 0.3,
		MaxTokens:   50,
	})
	if err != nil {
		return "", err
	}
	return strings.Trim(strings.TrimSpace(content), `"`), nil
}

func (c *Client) complete(ctx context.Context, req chatRequest) (string, error) {
	start := time.Now()

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return "", fmt.Errorf("planner error (status %d): %s", resp.StatusCode, string(errBody))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	slog.Debug("Completion finished",
		"model", parsed.Model,
		"tokens", parsed.Usage.TotalTokens,
		"duration", time.Since(start))
	return parsed.Choices[0].Message.Content, nil
}
