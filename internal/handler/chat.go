package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/autosupport-ai/widget-backend/internal/middleware"
	"github.com/autosupport-ai/widget-backend/internal/model"
	"github.com/autosupport-ai/widget-backend/internal/service"
	"github.com/autosupport-ai/widget-backend/pkg/logger"
)

// ChatHandler handles the widget chat endpoint.
type ChatHandler struct {
	chat   *service.ChatService
	logger *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chat *service.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		chat:   chat,
		logger: log,
	}
}

// Chat handles POST /api/v1/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BusinessID <= 0 {
		writeError(w, http.StatusBadRequest, "business_id is required")
		return
	}
	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.chat.Chat(r.Context(), &req, requestSignals(r, req.Meta))
	if err != nil {
		h.logger.Warn("chat turn failed",
			zap.Int64("business_id", req.BusinessID),
			zap.Error(err),
		)
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
