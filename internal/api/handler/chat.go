package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/iconidentify/scriptcast/internal/service"
	"github.com/iconidentify/scriptcast/pkg/openrouter"
)

// ChatHandler handles chat proxying, the model catalog, the system
// prompt, and chat export.
type ChatHandler struct {
	chatSvc *service.ChatService
	logger  *slog.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chatSvc *service.ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		chatSvc: chatSvc,
		logger:  logger,
	}
}

// ChatRequest is the JSON request body for chat messages.
type ChatRequest struct {
	UserInput string `json:"user_input"`
	Model     string `json:"model"`
	Language  string `json:"language"`
}

// ChatResponse carries the model's reply.
type ChatResponse struct {
	Response string `json:"response"`
}

// PromptRequest is the JSON request body for prompt updates.
type PromptRequest struct {
	Prompt string `json:"prompt"`
}

// PromptResponse carries the current system prompt.
type PromptResponse struct {
	Prompt string `json:"prompt"`
}

// ExportRequest is the JSON request body for chat export.
type ExportRequest struct {
	History []service.ChatEntry `json:"history"`
}

// Chat handles POST /api/v1/chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserInput == "" {
		h.writeError(w, http.StatusBadRequest, "no user input provided")
		return
	}

	reply, err := h.chatSvc.Chat(r.Context(), req.UserInput, req.Model, req.Language)
	if err != nil {
		h.logger.Error("chat failed", "error", err)
		h.writeError(w, http.StatusBadGateway, "chat completion failed")
		return
	}

	h.writeJSON(w, http.StatusOK, ChatResponse{Response: reply})
}

// Models handles GET /api/v1/models.
func (h *ChatHandler) Models(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, openrouter.Models())
}

// GetSystemPrompt handles GET /api/v1/system-prompt.
func (h *ChatHandler) GetSystemPrompt(w http.ResponseWriter, r *http.Request) {
	prompt, err := h.chatSvc.SystemPrompt(r.Context())
	if err != nil {
		h.logger.Error("failed to load system prompt", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to load system prompt")
		return
	}

	h.writeJSON(w, http.StatusOK, PromptResponse{Prompt: prompt})
}

// UpdateSystemPrompt handles PUT /api/v1/system-prompt.
func (h *ChatHandler) UpdateSystemPrompt(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Prompt == "" {
		h.writeError(w, http.StatusBadRequest, "no prompt provided")
		return
	}

	if err := h.chatSvc.SetSystemPrompt(r.Context(), req.Prompt); err != nil {
		h.logger.Error("failed to store system prompt", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to store system prompt")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "system prompt updated successfully",
	})
}

// Export handles POST /api/v1/export, returning the chat history as a
// downloadable markdown file.
func (h *ChatHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.History) == 0 {
		h.writeError(w, http.StatusBadRequest, "no chat history provided")
		return
	}

	markdown := service.ExportMarkdown(req.History, time.Now())

	w.Header().Set("Content-Type", "text/markdown")
	w.Header().Set("Content-Disposition", "attachment; filename=chat_history.md")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(markdown))
}

func (h *ChatHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *ChatHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": message})
}
