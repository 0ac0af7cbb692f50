package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/log"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Error("Failed to encode response",
				log.FieldError, err,
				log.FieldComponent, log.ComponentHTTP)
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps core errors to status codes. Guard rejections surface
// as 403; everything transient stays a 500 without leaking internals.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotAMember):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "not a member of this family"})
	case errors.Is(err, core.ErrFamilyNotFound),
		errors.Is(err, core.ErrExpenseNotFound),
		errors.Is(err, core.ErrNotificationNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, core.ErrInvalidInput),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidBudget),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrEmptyName):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		slog.Error("Request failed",
			log.FieldError, err,
			log.FieldComponent, log.ComponentHTTP)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// actorID extracts the authenticated user from the X-User-ID header.
// Token verification happens upstream; an empty header is unauthorized.
func actorID(r *http.Request) (core.UserID, bool) {
	id := r.Header.Get("X-User-ID")
	if id == "" {
		return "", false
	}
	return core.UserID(id), true
}

func unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing X-User-ID header"})
}

// parseDate parses a date string in YYYY-MM-DD form.
func parseDate(dateStr string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, core.ErrInvalidDate
	}
	return t, nil
}
