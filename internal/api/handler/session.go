package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/scriptcast/internal/api/middleware"
	"github.com/iconidentify/scriptcast/internal/domain"
	"github.com/iconidentify/scriptcast/internal/service"
	"github.com/iconidentify/scriptcast/pkg/openrouter"
)

// SessionHandler handles script and video generation requests for
// chat sessions.
type SessionHandler struct {
	scriptSvc *service.ScriptService
	videoSvc  *service.VideoService
	logger    *slog.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(scriptSvc *service.ScriptService, videoSvc *service.VideoService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		scriptSvc: scriptSvc,
		videoSvc:  videoSvc,
		logger:    logger,
	}
}

// ScriptPayload is the two-part script as it appears on the wire.
type ScriptPayload struct {
	Script1 string `json:"script1"`
	Script2 string `json:"script2"`
}

// GenerateVideoRequest is the JSON request body for video generation.
type GenerateVideoRequest struct {
	Script *ScriptPayload `json:"script"`
}

// GenerateVideoResponse is returned after scheduling a generation run.
type GenerateVideoResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	JobID   string `json:"job_id,omitempty"`
}

// UpdateScriptRequest is the JSON request body for script updates.
type UpdateScriptRequest struct {
	Script *ScriptPayload `json:"script"`
}

// ScriptResponse is returned for script reads.
type ScriptResponse struct {
	Status   string         `json:"status"`
	Data     *ScriptPayload `json:"data"`
	VideoURL string         `json:"video_url"`
}

// ExtractScriptRequest is the JSON request body for script extraction.
type ExtractScriptRequest struct {
	ConversationList []openrouter.Message `json:"conversation_list"`
}

// StatusResponse is a generic status/message reply.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// GenerateVideo handles POST /api/v1/sessions/{sessionID}/generate-video.
// It schedules the pipeline and returns immediately; the run finishes
// in the background and reports through the session's publication
// status.
func (h *SessionHandler) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	sessionID := domain.SessionID(chi.URLParam(r, "sessionID"))

	var req GenerateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Script == nil {
		h.writeError(w, http.StatusBadRequest, "script is required")
		return
	}

	result, err := h.videoSvc.Trigger(r.Context(), sessionID, middleware.UserID(r.Context()), domain.Script{
		Script1: req.Script.Script1,
		Script2: req.Script.Script2,
	})
	if err != nil {
		h.writeDomainError(w, err, "failed to schedule generation")
		return
	}

	h.writeJSON(w, http.StatusAccepted, GenerateVideoResponse{
		Status:  "success",
		Message: result.Message,
		JobID:   result.JobID.String(),
	})
}

// UpdateScript handles PUT /api/v1/sessions/{sessionID}/script.
func (h *SessionHandler) UpdateScript(w http.ResponseWriter, r *http.Request) {
	sessionID := domain.SessionID(chi.URLParam(r, "sessionID"))

	var req UpdateScriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Script == nil {
		h.writeError(w, http.StatusBadRequest, "script is required")
		return
	}

	err := h.scriptSvc.UpdateScript(r.Context(), sessionID, middleware.UserID(r.Context()), domain.Script{
		Script1: req.Script.Script1,
		Script2: req.Script.Script2,
	})
	if err != nil {
		h.writeDomainError(w, err, "failed to update script")
		return
	}

	h.writeJSON(w, http.StatusOK, StatusResponse{
		Status:  "success",
		Message: "script updated successfully",
	})
}

// GetScript handles GET /api/v1/sessions/{sessionID}/script.
func (h *SessionHandler) GetScript(w http.ResponseWriter, r *http.Request) {
	sessionID := domain.SessionID(chi.URLParam(r, "sessionID"))

	view, err := h.scriptSvc.GetScript(r.Context(), sessionID, middleware.UserID(r.Context()))
	if err != nil {
		h.writeDomainError(w, err, "failed to get script")
		return
	}

	h.writeJSON(w, http.StatusOK, ScriptResponse{
		Status: "success",
		Data: &ScriptPayload{
			Script1: view.Script.Script1,
			Script2: view.Script.Script2,
		},
		VideoURL: view.VideoURL,
	})
}

// ExtractScript handles POST /api/v1/sessions/{sessionID}/extract-script.
func (h *SessionHandler) ExtractScript(w http.ResponseWriter, r *http.Request) {
	sessionID := domain.SessionID(chi.URLParam(r, "sessionID"))

	var req ExtractScriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.scriptSvc.ExtractAndStore(r.Context(), sessionID, middleware.UserID(r.Context()), req.ConversationList)
	if err != nil {
		h.writeDomainError(w, err, "failed to extract script")
		return
	}

	h.writeJSON(w, http.StatusOK, StatusResponse{
		Status:  "success",
		Message: "script generated and saved successfully",
	})
}

// writeDomainError maps domain errors to HTTP statuses.
func (h *SessionHandler) writeDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		h.writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, domain.ErrScriptNotFound):
		h.writeError(w, http.StatusNotFound, "script not found for this session")
	case errors.Is(err, domain.ErrForbidden):
		h.writeError(w, http.StatusForbidden, "you are not authorized to access this session")
	case errors.Is(err, domain.ErrGenerationInFlight):
		h.writeError(w, http.StatusConflict, "video generation already in progress")
	case errors.Is(err, domain.ErrEmptyConversation):
		h.writeError(w, http.StatusBadRequest, "conversation list cannot be empty")
	case errors.Is(err, domain.ErrScriptParse):
		h.writeError(w, http.StatusBadRequest, "model reply was not a valid script")
	default:
		h.logger.Error(fallback, "error", err)
		h.writeError(w, http.StatusInternalServerError, fallback)
	}
}

func (h *SessionHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *SessionHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": message})
}
