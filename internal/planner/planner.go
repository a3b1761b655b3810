// Package planner turns user utterances into structured action plans
// using an OpenAI-compatible chat completion API.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/SahiDemon/Aiden-sub001/internal/domain"
)

// historyWindow is how many recent context messages accompany each
// planning request.
const historyWindow = 5

// Planner decides what a user utterance means and which commands to run.
type Planner interface {
	// Plan produces a structured plan for userText given recent history.
	Plan(ctx context.Context, history []domain.Message, userText string) (*domain.Plan, error)

	// Enhance rewrites a response to incorporate live device feedback.
	Enhance(ctx context.Context, userRequest, deviceResponse string) (string, error)
}

// rawPlan mirrors the model's JSON output. UpdateContext is a pointer so
// an omitted field can be told apart from an explicit false.
type rawPlan struct {
	Intent            string           `json:"intent"`
	Commands          []domain.Command `json:"commands"`
	Response          string           `json:"response"`
	UpdateContext     *bool            `json:"update_context"`
	ExpectingFollowup bool             `json:"expecting_followup"`
}

// ParsePlan decodes model output into a plan, applying defaults for any
// omitted field. Markdown code fences around the JSON are tolerated.
func ParsePlan(content string) (*domain.Plan, error) {
	cleaned := stripFences(content)

	var raw rawPlan
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("parse plan JSON: %w", err)
	}

	plan := &domain.Plan{
		Intent:            raw.Intent,
		Commands:          raw.Commands,
		Response:          raw.Response,
		UpdateContext:     true,
		ExpectingFollowup: raw.ExpectingFollowup,
	}
	if plan.Intent == "" {
		plan.Intent = "unknown"
	}
	if plan.Response == "" {
		plan.Response = "Done"
	}
	if raw.UpdateContext != nil {
		plan.UpdateContext = *raw.UpdateContext
	}
	return plan, nil
}

// stripFences removes a surrounding markdown code fence, with or without
// a language tag.
func stripFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
