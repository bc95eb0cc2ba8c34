package appointments

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/nutri-agenda/internal/scheduling"
	"github.com/wolfman30/nutri-agenda/pkg/logging"
)

const maxBodyBytes = 1 << 20

// Handler handles HTTP requests for appointments and the calendar.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new appointments handler
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// AvailabilityResponse lists the free slots on a day.
type AvailabilityResponse struct {
	Date  scheduling.Date `json:"date"`
	Slots []string        `json:"slots"`
}

// Create handles POST /api/appointments
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid appointment body", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.fail(w, "create appointment", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// Get handles GET /api/appointments/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get appointment", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Update handles PUT /api/appointments/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid appointment body", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, "update appointment", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Delete handles DELETE /api/appointments/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete appointment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /api/appointments
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), ListFilter{PatientID: r.URL.Query().Get("patientId")})
	if err != nil {
		h.fail(w, "list appointments", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Upcoming handles GET /api/appointments/upcoming
func (h *Handler) Upcoming(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Upcoming(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, "list upcoming appointments", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Past handles GET /api/appointments/past
func (h *Handler) Past(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Past(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, "list past appointments", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// CalendarEvents handles GET /api/calendar/events
func (h *Handler) CalendarEvents(w http.ResponseWriter, r *http.Request) {
	from, err := optionalDate(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := optionalDate(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := h.service.CalendarEvents(r.Context(), from, to)
	if err != nil {
		h.fail(w, "project calendar", err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// Availability handles GET /api/calendar/availability
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	day, err := optionalDate(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if day.IsZero() {
		day = h.service.Today()
	}

	free, err := h.service.Availability(r.Context(), day)
	if err != nil {
		h.fail(w, "compute availability", err)
		return
	}
	resp := AvailabilityResponse{Date: day, Slots: make([]string, 0, len(free))}
	for _, tr := range free {
		resp.Slots = append(resp.Slots, tr.String())
	}
	writeJSON(w, http.StatusOK, resp)
}

// PatientHistory handles GET /api/patients/{id}/appointments
func (h *Handler) PatientHistory(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "patient history", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// PatientBMIHistory handles GET /api/patients/{id}/bmi-history
func (h *Handler) PatientBMIHistory(w http.ResponseWriter, r *http.Request) {
	points, err := h.service.BMIHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "bmi history", err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (h *Handler) fail(w http.ResponseWriter, action string, err error) {
	switch {
	case IsValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrAppointmentNotFound), errors.Is(err, ErrPatientNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, scheduling.ErrSlotConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("failed to "+action, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func optionalDate(r *http.Request, param string) (scheduling.Date, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(param))
	if raw == "" {
		return scheduling.Date{}, nil
	}
	d, err := scheduling.ParseDate(raw)
	if err != nil {
		return scheduling.Date{}, fmt.Errorf("invalid %s: %w", param, err)
	}
	return d, nil
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
