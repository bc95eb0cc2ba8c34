package appointments

import "errors"

var (
	// ErrOutOfRangeWeight is returned when a weight falls outside [30, 300] kg.
	ErrOutOfRangeWeight = errors.New("weight must be between 30 and 300 kg")

	// ErrMissingPatient is returned when an appointment has no patient.
	ErrMissingPatient = errors.New("patientId is required")

	// ErrMissingDate is returned when an appointment has no date.
	ErrMissingDate = errors.New("date is required")

	// ErrInvalidType is returned for an appointment type other than primera or seguimiento.
	ErrInvalidType = errors.New("type must be primera or seguimiento")

	// ErrInvalidStatus is returned for a status other than pendiente, confirmada or cancelada.
	ErrInvalidStatus = errors.New("status must be pendiente, confirmada or cancelada")

	// ErrAppointmentNotFound is returned when an appointment is not found
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrPatientNotFound is returned when the referenced patient does not exist
	ErrPatientNotFound = errors.New("patient not found")
)
