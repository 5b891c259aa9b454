// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/autosupport-ai/widget-backend/internal/model"
	"github.com/autosupport-ai/widget-backend/internal/service"
	"github.com/autosupport-ai/widget-backend/pkg/logger"
)

// SessionHandler handles the widget session lifecycle endpoints.
type SessionHandler struct {
	sessions *service.SessionManager
	logger   *logger.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessions *service.SessionManager, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   log,
	}
}

// Start handles POST /api/v1/session/start
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req model.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BusinessID <= 0 {
		writeError(w, http.StatusBadRequest, "business_id is required")
		return
	}

	leadID, err := h.sessions.StartSession(r.Context(), req.BusinessID, requestSignals(r, req.Meta))
	if err != nil {
		h.logger.Warn("session start failed", zap.Int64("business_id", req.BusinessID), zap.Error(err))
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, model.StartSessionResponse{LeadID: leadID})
}

// End handles POST /api/v1/session/end
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	var req model.EndSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.LeadID == nil || *req.LeadID <= 0 {
		writeError(w, http.StatusBadRequest, "lead_id is required")
		return
	}
	if req.DurationSeconds == nil {
		writeError(w, http.StatusBadRequest, "duration_seconds is required")
		return
	}

	err := h.sessions.EndSession(r.Context(), *req.LeadID, *req.DurationSeconds, req.IdempotencyKey)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.EndSessionResponse{OK: true})
}
