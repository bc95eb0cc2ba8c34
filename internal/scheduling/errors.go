package scheduling

import "errors"

var (
	// ErrMalformedSlot is returned when a time range cannot be parsed or ends before it starts.
	ErrMalformedSlot = errors.New("malformed time range")

	// ErrSlotConflict is returned when a candidate range overlaps an existing booking.
	ErrSlotConflict = errors.New("time range overlaps an existing appointment, choose another slot")
)
