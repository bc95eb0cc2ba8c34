package patients

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/nutri-agenda/pkg/logging"
)

const maxBodyBytes = 1 << 20

// Handler handles HTTP requests for patients.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new patients handler
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// PlanPromptResponse carries the default plan prompt.
type PlanPromptResponse struct {
	PatientID string `json:"patientId"`
	Prompt    string `json:"prompt"`
}

// Create handles POST /api/patients
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid patient body", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.fail(w, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Get handles GET /api/patients/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Update handles PUT /api/patients/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid patient body", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Delete handles DELETE /api/patients/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /api/patients
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// PlanPrompt handles GET /api/patients/{id}/plan-prompt
func (h *Handler) PlanPrompt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	prompt, err := h.service.PlanPrompt(r.Context(), id)
	if err != nil {
		h.fail(w, "plan prompt", err)
		return
	}
	writeJSON(w, http.StatusOK, PlanPromptResponse{PatientID: id, Prompt: prompt})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case IsValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrPatientNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("patient request failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
