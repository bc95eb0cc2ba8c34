package appointments

import (
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/nutri-agenda/internal/forms"
	"github.com/wolfman30/nutri-agenda/internal/scheduling"
)

const (
	StatusPending   = "pendiente"
	StatusConfirmed = "confirmada"
	StatusCancelled = "cancelada"

	MinWeightKg = 30.0
	MaxWeightKg = 300.0
)

// PatientRef is the patient data joined onto an appointment.
type PatientRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Appointment is a booked visit for one patient.
type Appointment struct {
	ID        string          `json:"id"`
	PatientID string          `json:"patientId"`
	Date      scheduling.Date `json:"date"`
	TimeRange string          `json:"timeRange"`
	Type      string          `json:"type"`
	Status    string          `json:"status"`
	Weight    *float64        `json:"weight"`
	Patient   PatientRef      `json:"patient"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Range parses the appointment's time range.
func (a *Appointment) Range() (scheduling.TimeRange, error) {
	return scheduling.ParseTimeRange(a.TimeRange)
}

// BlocksSlot reports whether the appointment occupies its time range.
func (a *Appointment) BlocksSlot() bool {
	return a.Status != StatusCancelled
}

// Record converts the appointment into the shape the calendar projector reads.
func (a *Appointment) Record() scheduling.Record {
	var day time.Time
	if !a.Date.IsZero() {
		day = a.Date.Time()
	}
	return scheduling.Record{
		ID:          a.ID,
		PatientName: a.Patient.Name,
		Date:        day,
		TimeRange:   a.TimeRange,
		Type:        a.Type,
	}
}

// WeightInput is a weight field as submitted by a form. It accepts a JSON number, a numeric
// string or null.
type WeightInput = forms.Number

// WeightOf returns a present weight input holding kg.
func WeightOf(kg float64) WeightInput {
	return forms.NumberOf(kg)
}

func validateWeight(w WeightInput) error {
	return w.CheckRange(MinWeightKg, MaxWeightKg, ErrOutOfRangeWeight)
}

// CreateRequest is the body of POST /api/appointments.
type CreateRequest struct {
	PatientID string          `json:"patientId"`
	Date      scheduling.Date `json:"date"`
	TimeRange string          `json:"timeRange"`
	Type      string          `json:"type"`
	Status    string          `json:"status,omitempty"`
	Weight    WeightInput     `json:"weight"`
}

// Validate checks the request and fills defaults. The time range is rewritten zero-padded.
func (r *CreateRequest) Validate() error {
	if err := validateWeight(r.Weight); err != nil {
		return err
	}
	r.PatientID = strings.TrimSpace(r.PatientID)
	if r.PatientID == "" {
		return ErrMissingPatient
	}
	if r.Date.IsZero() {
		return ErrMissingDate
	}
	tr, err := scheduling.ParseTimeRange(strings.TrimSpace(r.TimeRange))
	if err != nil {
		return err
	}
	r.TimeRange = tr.String()
	if err := validateType(r.Type); err != nil {
		return err
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	return validateStatus(r.Status)
}

// UpdateRequest is the body of PUT /api/appointments/{id}. Absent fields are left unchanged;
// a null weight clears it.
type UpdateRequest struct {
	PatientID *string          `json:"patientId,omitempty"`
	Date      *scheduling.Date `json:"date,omitempty"`
	TimeRange *string          `json:"timeRange,omitempty"`
	Type      *string          `json:"type,omitempty"`
	Status    *string          `json:"status,omitempty"`
	Weight    WeightInput      `json:"weight"`
}

// Validate checks every field that is present.
func (r *UpdateRequest) Validate() error {
	if err := validateWeight(r.Weight); err != nil {
		return err
	}
	if r.PatientID != nil && strings.TrimSpace(*r.PatientID) == "" {
		return ErrMissingPatient
	}
	if r.Date != nil && r.Date.IsZero() {
		return ErrMissingDate
	}
	if r.TimeRange != nil {
		tr, err := scheduling.ParseTimeRange(strings.TrimSpace(*r.TimeRange))
		if err != nil {
			return err
		}
		canonical := tr.String()
		r.TimeRange = &canonical
	}
	if r.Type != nil {
		if err := validateType(*r.Type); err != nil {
			return err
		}
	}
	if r.Status != nil {
		if err := validateStatus(*r.Status); err != nil {
			return err
		}
	}
	return nil
}

// Apply returns a copy of current with the request's fields merged in.
func (r *UpdateRequest) Apply(current Appointment) Appointment {
	next := current
	if r.PatientID != nil {
		next.PatientID = strings.TrimSpace(*r.PatientID)
		if next.PatientID != current.PatientID {
			next.Patient = PatientRef{ID: next.PatientID}
		}
	}
	if r.Date != nil {
		next.Date = *r.Date
	}
	if r.TimeRange != nil {
		next.TimeRange = *r.TimeRange
	}
	if r.Type != nil {
		next.Type = *r.Type
	}
	if r.Status != nil {
		next.Status = *r.Status
	}
	if r.Weight.Set {
		next.Weight = r.Weight.Value
	}
	return next
}

func validateType(t string) error {
	switch t {
	case scheduling.TypeFirstVisit, scheduling.TypeFollowUp:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidType, t)
}

func validateStatus(s string) error {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}
