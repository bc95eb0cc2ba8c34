package patients

import "errors"

var (
	// ErrInvalidName is returned when the name is missing
	ErrInvalidName = errors.New("name is required")

	// ErrOutOfRangeWeight is returned when a weight falls outside [40, 200] kg.
	ErrOutOfRangeWeight = errors.New("weight must be between 40 and 200 kg")

	// ErrOutOfRangeHeight is returned when a height falls outside [100, 230] cm.
	ErrOutOfRangeHeight = errors.New("height must be between 100 and 230 cm")

	// ErrOutOfRangeHabit is returned for negative or impossible sleep or water figures.
	ErrOutOfRangeHabit = errors.New("sleep hours must be 0-24 and daily water 0-20 liters")

	// ErrPatientNotFound is returned when a patient is not found
	ErrPatientNotFound = errors.New("patient not found")
)
