// Package scheduling converts appointment time ranges into instants, projects stored
// appointments onto the calendar and picks free slots.
package scheduling

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	rangeSeparator = " - "
	minutesPerDay  = 24 * 60

	// DefaultSlotMinutes is the length of a slot picked on the calendar.
	DefaultSlotMinutes = 30
)

// Clock is a time of day in minutes after midnight.
type Clock int

// NewClock builds a Clock from an hour and minute.
func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ClockOf returns the time of day of t in t's location.
func ClockOf(t time.Time) Clock {
	return NewClock(t.Hour(), t.Minute())
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// ParseClock reads "H:MM" or "HH:MM".
func ParseClock(raw string) (Clock, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q is not HH:MM", ErrMalformedSlot, raw)
	}
	hour, err := parseClockField(parts[0], 23)
	if err != nil {
		return 0, fmt.Errorf("%w: hour in %q", ErrMalformedSlot, raw)
	}
	minute, err := parseClockField(parts[1], 59)
	if err != nil {
		return 0, fmt.Errorf("%w: minute in %q", ErrMalformedSlot, raw)
	}
	return NewClock(hour, minute), nil
}

func parseClockField(raw string, max int) (int, error) {
	if len(raw) == 0 || len(raw) > 2 {
		return 0, strconv.ErrSyntax
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if v > max {
		return 0, strconv.ErrRange
	}
	return v, nil
}

// TimeRange is a slot within one day. Start is inclusive, End exclusive.
type TimeRange struct {
	Start Clock
	End   Clock
}

// ParseTimeRange reads "HH:MM - HH:MM". Hours may be written with one digit.
func ParseTimeRange(raw string) (TimeRange, error) {
	halves := strings.Split(raw, rangeSeparator)
	if len(halves) != 2 {
		return TimeRange{}, fmt.Errorf("%w: %q", ErrMalformedSlot, raw)
	}
	start, err := ParseClock(halves[0])
	if err != nil {
		return TimeRange{}, err
	}
	end, err := ParseClock(halves[1])
	if err != nil {
		return TimeRange{}, err
	}
	tr := TimeRange{Start: start, End: end}
	if err := tr.Validate(); err != nil {
		return TimeRange{}, err
	}
	return tr, nil
}

// Validate checks that the range starts strictly before it ends and stays within one day.
func (tr TimeRange) Validate() error {
	if tr.Start < 0 || tr.End >= minutesPerDay {
		return fmt.Errorf("%w: %s outside the day", ErrMalformedSlot, tr)
	}
	if tr.End <= tr.Start {
		return fmt.Errorf("%w: %s ends before it starts", ErrMalformedSlot, tr)
	}
	return nil
}

// Minutes is the length of the range.
func (tr TimeRange) Minutes() int {
	return int(tr.End - tr.Start)
}

// Overlaps reports whether the two half-open ranges share any minute.
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return tr.Start < other.End && other.Start < tr.End
}

// String renders the zero-padded "HH:MM - HH:MM" label.
func (tr TimeRange) String() string {
	return tr.Start.String() + rangeSeparator + tr.End.String()
}

// Slot is a time range anchored to instants.
type Slot struct {
	Start time.Time
	End   time.Time
}

// Decode anchors timeRange to day in loc. A nil loc means UTC.
func Decode(day Date, timeRange string, loc *time.Location) (Slot, error) {
	tr, err := ParseTimeRange(timeRange)
	if err != nil {
		return Slot{}, err
	}
	return tr.On(day, loc), nil
}

// On anchors the range to day in loc.
func (tr TimeRange) On(day Date, loc *time.Location) Slot {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(day.Year, day.Month, day.Day, tr.Start.Hour(), tr.Start.Minute(), 0, 0, loc)
	end := time.Date(day.Year, day.Month, day.Day, tr.End.Hour(), tr.End.Minute(), 0, 0, loc)
	return Slot{Start: start, End: end}
}

// Encode builds the label for a slot of durationMinutes starting at start.
func Encode(start time.Time, durationMinutes int) (string, error) {
	tr, err := RangeFrom(start, durationMinutes)
	if err != nil {
		return "", err
	}
	return tr.String(), nil
}

// RangeFrom builds the range of durationMinutes starting at start's time of day.
func RangeFrom(start time.Time, durationMinutes int) (TimeRange, error) {
	if durationMinutes <= 0 {
		return TimeRange{}, fmt.Errorf("%w: duration %d", ErrMalformedSlot, durationMinutes)
	}
	begin := ClockOf(start)
	tr := TimeRange{Start: begin, End: begin + Clock(durationMinutes)}
	if tr.End >= minutesPerDay {
		return TimeRange{}, fmt.Errorf("%w: %s plus %d minutes crosses midnight", ErrMalformedSlot, begin, durationMinutes)
	}
	return tr, nil
}
