package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/autosupport-ai/widget-backend/internal/model"
	"github.com/autosupport-ai/widget-backend/internal/service"
	"github.com/autosupport-ai/widget-backend/internal/store"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeEngineError maps engine errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrBusinessMismatch):
		writeError(w, http.StatusBadRequest, "lead does not belong to this business")
	case errors.Is(err, service.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// clientIP returns the first X-Forwarded-For entry, falling back to the
// socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.SplitN(xff, ",", 2)
		return strings.TrimSpace(parts[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// requestSignals assembles the client signals one request contributes:
// connection-derived fields plus the widget-declared meta.
func requestSignals(r *http.Request, meta *model.ClientMeta) service.ClientSignals {
	sig := service.ClientSignals{
		VisitorIP: clientIP(r),
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
	}
	if meta != nil {
		sig.SessionID = meta.SessionID
		sig.PageURL = meta.PageURL
		sig.Country = meta.Country
		sig.Language = meta.Language
		sig.UserName = meta.UserName
		sig.UserEmail = meta.UserEmail
	}
	return sig
}
