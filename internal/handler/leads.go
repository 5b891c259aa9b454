package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/autosupport-ai/widget-backend/internal/middleware"
	"github.com/autosupport-ai/widget-backend/internal/service"
	"github.com/autosupport-ai/widget-backend/pkg/logger"
)

// LeadHandler handles the inbox read endpoints.
type LeadHandler struct {
	leads  *service.LeadService
	logger *logger.Logger
}

// NewLeadHandler creates a new lead handler.
func NewLeadHandler(leads *service.LeadService, log *logger.Logger) *LeadHandler {
	return &LeadHandler{
		leads:  leads,
		logger: log,
	}
}

// List handles GET /api/v1/leads?business_id=&limit=&offset=
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	businessID, err := middleware.ParseID(r.URL.Query().Get("business_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "business_id is required")
		return
	}

	limit := 0
	offset := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	resp, err := h.leads.List(r.Context(), businessID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list leads")
		writeError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/leads/{id}
func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	leadID, err := middleware.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lead id")
		return
	}

	detail, err := h.leads.Get(r.Context(), leadID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}
