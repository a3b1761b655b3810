package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SahiDemon/Aiden-sub001/internal/assistant"
	"github.com/SahiDemon/Aiden-sub001/internal/domain"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// deviceControlTypes are the command types the device endpoint accepts.
var deviceControlTypes = map[string]bool{
	"device_on":     true,
	"device_off":    true,
	"device_status": true,
	"fan_control":   true,
}

// RegisterRoutes registers the assistant API.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/message", h.PostMessage)
		r.Post("/activate", h.Activate)
		r.Get("/status", h.Status)
		r.Get("/history", h.History)
		r.Get("/conversations/{conversationID}/messages", h.ConversationMessages)
		r.Post("/conversations/{conversationID}/end", h.EndConversation)
		r.Get("/commands", h.CommandHistory)
		r.Get("/device/status", h.DeviceStatus)
		r.Post("/device/control", h.DeviceControl)
		r.Get("/config", h.GetConfig)
	})
}

// PostMessage runs a typed turn and returns the assistant's response.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	response, err := h.bridge.ActivateText(r.Context(), req.Text)
	if err != nil {
		if errors.Is(err, assistant.ErrBusy) {
			Error(w, http.StatusConflict, "assistant is busy")
			return
		}
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	JSON(w, http.StatusOK, map[string]string{
		"response":        response,
		"conversation_id": h.orch.ConversationID(),
	})
}

// Activate starts a voice turn, as if the wake word had fired.
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	// An empty or absent body means a plain hotkey-style activation.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req.Mode = ""
	}

	mode := domain.ModeHotkey
	if req.Mode == string(domain.ModeVoice) {
		mode = domain.ModeVoice
	}

	if !h.bridge.Activate(mode) {
		Error(w, http.StatusConflict, "assistant is busy")
		return
	}
	JSON(w, http.StatusAccepted, map[string]string{"status": "listening"})
}

// Status reports the orchestrator and connection state.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"state":           h.orch.State().String(),
		"active":          h.bridge.Active(),
		"conversation_id": h.orch.ConversationID(),
		"connections":     h.registry.Count(),
	})
}

// History returns recent messages across conversations, oldest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, defaultHistoryLimit)
	messages, err := h.repo.RecentMessages(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to load message history", "error", err)
		Error(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

// ConversationMessages returns one conversation's messages, oldest first.
func (h *Handler) ConversationMessages(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	conv, err := h.repo.GetConversation(r.Context(), conversationID)
	if err != nil {
		slog.Error("Failed to load conversation", "conversation_id", conversationID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}
	if conv == nil {
		Error(w, http.StatusNotFound, "conversation not found")
		return
	}

	limit := parseLimit(r, defaultHistoryLimit)
	messages, err := h.repo.ConversationMessages(r.Context(), conversationID, limit)
	if err != nil {
		slog.Error("Failed to load conversation messages", "conversation_id", conversationID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"conversation": conv,
		"messages":     messages,
	})
}

// EndConversation ends a conversation and releases its live context.
func (h *Handler) EndConversation(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	conv, err := h.repo.GetConversation(r.Context(), conversationID)
	if err != nil {
		slog.Error("Failed to load conversation", "conversation_id", conversationID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}
	if conv == nil {
		Error(w, http.StatusNotFound, "conversation not found")
		return
	}

	if err := h.repo.EndConversation(r.Context(), conversationID, time.Now().UTC()); err != nil {
		slog.Error("Failed to end conversation", "conversation_id", conversationID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to end conversation")
		return
	}
	h.orch.ReleaseConversation(conversationID)

	JSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

// CommandHistory returns recent command executions, newest first.
func (h *Handler) CommandHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, defaultHistoryLimit)
	entries, err := h.repo.CommandHistory(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to load command history", "error", err)
		Error(w, http.StatusInternalServerError, "failed to load command history")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"commands": entries})
}

// DeviceStatus proxies a status query to the device.
func (h *Handler) DeviceStatus(w http.ResponseWriter, r *http.Request) {
	if h.dispatcher == nil {
		Error(w, http.StatusServiceUnavailable, "device control is not enabled")
		return
	}

	result := h.dispatcher.Dispatch(r.Context(), domain.Command{Type: "device_status"})
	if !result.Success {
		Error(w, http.StatusBadGateway, result.Error)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": result.ResponseData})
}

// DeviceControl runs one device command directly, bypassing the planner,
// and notifies dashboard observers of the change.
func (h *Handler) DeviceControl(w http.ResponseWriter, r *http.Request) {
	if h.dispatcher == nil {
		Error(w, http.StatusServiceUnavailable, "device control is not enabled")
		return
	}

	var req struct {
		Command string         `json:"command"`
		Params  map[string]any `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !deviceControlTypes[req.Command] {
		Error(w, http.StatusBadRequest, "unsupported device command")
		return
	}

	result := h.dispatcher.Dispatch(r.Context(), domain.Command{Type: req.Command, Params: req.Params})
	if !result.Success {
		Error(w, http.StatusBadGateway, result.Error)
		return
	}

	h.registry.Broadcast(r.Context(), domain.NewEvent(domain.EventDeviceUpdate, map[string]any{
		"command": req.Command,
		"result":  result.ResponseData,
	}))
	JSON(w, http.StatusOK, map[string]string{"result": result.ResponseData})
}

// GetConfig returns the non-secret configuration the dashboard needs.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"user_id":         h.cfg.UserID,
		"planner_model":   h.cfg.PlannerModel,
		"device_enabled":  h.cfg.DeviceEnabled,
		"sandbox_enabled": h.cfg.SandboxEnabled,
		"context_ttl_sec": int64(h.cfg.ContextTTL.Seconds()),
	})
}

func parseLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > maxHistoryLimit {
		return maxHistoryLimit
	}
	return n
}
