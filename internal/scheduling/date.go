package scheduling

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day with no time-of-day and no zone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t as observed in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// NormalizeStoredDate recovers the intended calendar day from a stored date value.
//
// Stored dates are UTC midnights. Reading one back through a local clock shifts it to the
// previous evening west of Greenwich, so the day is always taken from the UTC components and
// the location the instant happens to carry is ignored.
func NormalizeStoredDate(raw time.Time) Date {
	return DateOf(raw.UTC())
}

// ParseDate reads a stored or submitted date. The written date component wins over any
// time-of-day or offset that follows it.
func ParseDate(raw string) (Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Date{}, fmt.Errorf("scheduling: empty date")
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", raw); err == nil {
		return DateOf(t), nil
	}
	return Date{}, fmt.Errorf("scheduling: cannot parse date %q", raw)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// In returns midnight of d in loc. A nil loc means UTC.
func (d Date) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Time returns midnight of d in UTC, the form dates are stored in.
func (d Date) Time() time.Time {
	return d.In(time.UTC)
}

func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

func (d Date) After(other Date) bool {
	return d.Time().After(other.Time())
}

// AddDays returns the day n days after d.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

func (d Date) String() string {
	return d.Time().Format(dateLayout)
}

// MarshalJSON writes the day as an ISO-8601 instant at UTC midnight.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time().Format(time.RFC3339))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("scheduling: date must be a string: %w", err)
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
