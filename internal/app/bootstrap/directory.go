package bootstrap

import (
	"context"
	"errors"

	"github.com/wolfman30/nutri-agenda/internal/appointments"
	"github.com/wolfman30/nutri-agenda/internal/patients"
)

// patientDirectory lets the appointment flows look patients up without importing their store.
type patientDirectory struct {
	repo patients.Repository
}

// NewPatientDirectory adapts a patient repository to appointments.PatientDirectory.
func NewPatientDirectory(repo patients.Repository) appointments.PatientDirectory {
	return patientDirectory{repo: repo}
}

func (d patientDirectory) LookupPatient(ctx context.Context, id string) (appointments.PatientSummary, error) {
	p, err := d.repo.Get(ctx, id)
	if errors.Is(err, patients.ErrPatientNotFound) {
		return appointments.PatientSummary{}, appointments.ErrPatientNotFound
	}
	if err != nil {
		return appointments.PatientSummary{}, err
	}
	return appointments.PatientSummary{ID: p.ID, Name: p.Name, HeightCm: p.HeightCm}, nil
}
