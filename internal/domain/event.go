package domain

import (
	"time"
)

// Event is the envelope pushed to dashboard observers.
type Event struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Well-known event types.
const (
	EventConnected    = "connected"
	EventPing         = "ping"
	EventPong         = "pong"
	EventVoiceStatus  = "voice_status"
	EventMessage      = "message"
	EventCommands     = "command_results"
	EventDeviceUpdate = "device_update"
)

// NewEvent stamps an event with the current time.
func NewEvent(eventType string, data any) Event {
	return Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}
