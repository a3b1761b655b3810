package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Prompts holds the prompt text the planner and responder work from.
type Prompts struct {
	SystemPrompt      string `yaml:"system_prompt"`
	EnhancementPrompt string `yaml:"enhancement_prompt"`
	Greeting          string `yaml:"greeting"`
}

// Fallbacks when the prompts file is missing or a field is empty.
const (
	defaultSystemPrompt = "You are Aiden, an intelligent desktop assistant. " +
		"Reply with a JSON object containing intent, commands, response, update_context and expecting_followup."
	defaultEnhancementPrompt = "You are a voice assistant. The user asked: {user_request}. " +
		"The device replied: {device_response}. Convert the device response to a short natural sentence."
	defaultGreeting = "Hello, Aiden is ready!"
)

// LoadPrompts reads the prompts YAML file. A missing file is not an error;
// built-in defaults are used so the assistant can still run.
func LoadPrompts(path string) (*Prompts, error) {
	p := &Prompts{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			p.applyDefaults()
			return p, nil
		}
		return nil, fmt.Errorf("read prompts file: %w", err)
	}

	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse prompts file: %w", err)
	}
	p.applyDefaults()
	return p, nil
}

func (p *Prompts) applyDefaults() {
	if strings.TrimSpace(p.SystemPrompt) == "" {
		p.SystemPrompt = defaultSystemPrompt
	}
	if strings.TrimSpace(p.EnhancementPrompt) == "" {
		p.EnhancementPrompt = defaultEnhancementPrompt
	}
	if strings.TrimSpace(p.Greeting) == "" {
		p.Greeting = defaultGreeting
	}
}

// RenderEnhancement fills the enhancement template with the user's request
// and the raw device feedback.
func (p *Prompts) RenderEnhancement(userRequest, deviceResponse string) string {
	out := strings.ReplaceAll(p.EnhancementPrompt, "{user_request}", userRequest)
	return strings.ReplaceAll(out, "{device_response}", deviceResponse)
}
