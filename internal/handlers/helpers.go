package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/herzod/shelfview-cinema/internal/apperr"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.WithError(err).Error("Failed to encode response")
	}
}

// writeError maps the error taxonomy onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		vErr *apperr.ValidationError
		tErr *apperr.TransportError
		sErr *apperr.StoreError
	)

	switch {
	case errors.Is(err, apperr.ErrUnauthorized):
		h.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
	case errors.Is(err, apperr.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, apperr.ErrDuplicate):
		h.writeJSON(w, http.StatusConflict, errorResponse{Error: "entry already on shelf"})
	case errors.As(err, &vErr):
		h.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: vErr.Error()})
	case errors.As(err, &tErr):
		h.logger.WithError(err).Error("Catalog request failed")
		h.writeJSON(w, http.StatusBadGateway, errorResponse{Error: "catalog unavailable"})
	case errors.As(err, &sErr):
		h.logger.WithError(err).Error("Store request failed")
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "storage failure"})
	default:
		h.logger.WithError(err).Error("Unhandled error")
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// readJSON decodes and validates a request body.
func (h *Handler) readJSON(r *http.Request, dest any) error {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return apperr.Validation("body", "malformed JSON")
	}
	if err := h.validate.Struct(dest); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) && len(invalid) > 0 {
			return apperr.Validation(invalid[0].Field(), "failed "+invalid[0].Tag()+" validation")
		}
		return apperr.Validation("body", err.Error())
	}
	return nil
}
