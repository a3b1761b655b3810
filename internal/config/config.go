// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	UserID      string
	FrontendURL string
	DBPath      string

	// Context cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ContextTTL    time.Duration

	// Conversation lifecycle.
	ConversationTTL     time.Duration
	CommandLogRetention time.Duration

	// Planner.
	PlannerEndpoint string
	PlannerAPIKey   string
	PlannerModel    string
	PlannerTimeout  time.Duration

	// Speech daemon.
	SpeechURL    string
	SpeakTimeout time.Duration

	// Smart device.
	DeviceEnabled bool
	DeviceURL     string

	// Shell sandbox.
	SandboxEnabled bool
	SandboxImage   string

	// Orchestration tuning.
	BridgeTimeout time.Duration
	FollowupDelay time.Duration

	// Observer registry liveness.
	SweepInterval time.Duration
	PingTimeout   time.Duration

	PromptsPath string
	Transcript  TranscriptConfig
}

// TranscriptConfig controls NDJSON conversation transcript logging.
type TranscriptConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("TRANSCRIPT_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		UserID:      getEnv("AIDEN_USER_ID", "default"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/aiden.db"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		ContextTTL:    getEnvDuration("CONTEXT_TTL", 300*time.Second),

		ConversationTTL:     getEnvDuration("CONVERSATION_TTL", 30*time.Minute),
		CommandLogRetention: getEnvDuration("COMMAND_LOG_RETENTION", 7*24*time.Hour),

		PlannerEndpoint: getEnv("PLANNER_ENDPOINT", "https://api.groq.com/openai/v1"),
		PlannerAPIKey:   getEnv("PLANNER_API_KEY", ""),
		PlannerModel:    getEnv("PLANNER_MODEL", "llama-3.3-70b-versatile"),
		PlannerTimeout:  getEnvDuration("PLANNER_TIMEOUT", 30*time.Second),

		SpeechURL:    getEnv("SPEECH_URL", "http://localhost:7850"),
		SpeakTimeout: getEnvDuration("SPEAK_TIMEOUT", 60*time.Second),

		DeviceEnabled: getEnvBool("DEVICE_ENABLED", false),
		DeviceURL:     getEnv("DEVICE_URL", ""),

		SandboxEnabled: getEnvBool("SANDBOX_ENABLED", false),
		SandboxImage:   getEnv("SANDBOX_IMAGE", "aiden-sandbox:latest"),

		BridgeTimeout: getEnvDuration("BRIDGE_TIMEOUT", 60*time.Second),
		FollowupDelay: getEnvDuration("FOLLOWUP_DELAY", time.Second),

		SweepInterval: getEnvDuration("SWEEP_INTERVAL", 10*time.Second),
		PingTimeout:   getEnvDuration("PING_TIMEOUT", 2*time.Second),

		PromptsPath: getEnv("PROMPTS_PATH", "./config/prompts.yaml"),
		Transcript: TranscriptConfig{
			Enabled:   getEnvBool("TRANSCRIPT_ENABLED", true),
			Dir:       getEnv("TRANSCRIPT_DIR", "./data/transcripts"),
			QueueSize: queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR cannot be empty")
	}
	if c.ContextTTL <= 0 {
		return fmt.Errorf("CONTEXT_TTL must be > 0")
	}
	if c.BridgeTimeout <= 0 {
		return fmt.Errorf("BRIDGE_TIMEOUT must be > 0")
	}
	if c.DeviceEnabled && c.DeviceURL == "" {
		return fmt.Errorf("DEVICE_URL is required when DEVICE_ENABLED is set")
	}
	if c.Transcript.Enabled && c.Transcript.Dir == "" {
		return fmt.Errorf("TRANSCRIPT_DIR cannot be empty")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
