package plans

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/wolfman30/nutri-agenda/pkg/logging"
)

const maxBodyBytes = 64 << 10

// Handler serves plan drafting over HTTP.
type Handler struct {
	drafter *Drafter
	logger  *logging.Logger
}

func NewHandler(drafter *Drafter, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{drafter: drafter, logger: logger}
}

// Draft handles POST /api/plans/draft
func (h *Handler) Draft(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid draft body", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	draft, err := h.drafter.Draft(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, draft)
	case errors.Is(err, ErrMissingPrompt), errors.Is(err, ErrPromptTooLong):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrQuotaExceeded):
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, ErrQuotaExceeded.Error())
	default:
		h.logger.Error("plan draft failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not draft a plan")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("invalid request body: unexpected data after JSON object")
	}
	return nil
}
