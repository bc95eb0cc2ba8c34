package scheduling

import (
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/wolfman30/nutri-agenda/pkg/logging"
)

const (
	TypeFirstVisit = "primera"
	TypeFollowUp   = "seguimiento"

	defaultPatientName = "Paciente"
)

const (
	DropMissingDate      = "missing_date"
	DropMissingTimeRange = "missing_time_range"
	DropMalformedRange   = "malformed_time_range"
)

// Record is the part of a stored appointment the calendar needs.
type Record struct {
	ID          string
	PatientName string
	// Date is the stored day as read back from the store. Zero means absent.
	Date      time.Time
	TimeRange string
	Type      string
}

// CalendarEvent is an appointment ready to be drawn on the calendar.
type CalendarEvent struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	ColorTag  string    `json:"colorTag"`
	BorderTag string    `json:"borderTag"`
}

// DropRecorder counts records the projector had to leave out.
type DropRecorder interface {
	ObserveCalendarDrop(reason string)
}

// Projector turns stored appointments into calendar events in the viewer's location.
type Projector struct {
	loc     *time.Location
	logger  *logging.Logger
	metrics DropRecorder
}

// NewProjector creates a projector rendering events in loc. A nil loc means UTC.
func NewProjector(loc *time.Location, logger *logging.Logger, metrics DropRecorder) *Projector {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Projector{loc: loc, logger: logger, metrics: metrics}
}

// Project lazily maps records to events. Records without a date or time range, or with a
// range that does not decode, are skipped and logged. Input order is kept.
func (p *Projector) Project(records iter.Seq[Record]) iter.Seq[CalendarEvent] {
	return func(yield func(CalendarEvent) bool) {
		for rec := range records {
			ev, ok := p.project(rec)
			if !ok {
				continue
			}
			if !yield(ev) {
				return
			}
		}
	}
}

// ProjectAll is Project over a slice, collected.
func (p *Projector) ProjectAll(records []Record) []CalendarEvent {
	events := slices.Collect(p.Project(slices.Values(records)))
	if events == nil {
		events = []CalendarEvent{}
	}
	return events
}

func (p *Projector) project(rec Record) (CalendarEvent, bool) {
	if rec.Date.IsZero() {
		p.drop(rec, DropMissingDate, nil)
		return CalendarEvent{}, false
	}
	if strings.TrimSpace(rec.TimeRange) == "" {
		p.drop(rec, DropMissingTimeRange, nil)
		return CalendarEvent{}, false
	}

	slot, err := Decode(NormalizeStoredDate(rec.Date), rec.TimeRange, p.loc)
	if err != nil {
		p.drop(rec, DropMalformedRange, err)
		return CalendarEvent{}, false
	}

	name := strings.TrimSpace(rec.PatientName)
	if name == "" {
		name = defaultPatientName
	}
	color, border := ColorTags(rec.Type)
	return CalendarEvent{
		ID:        rec.ID,
		Title:     name + " - " + rec.Type,
		Start:     slot.Start,
		End:       slot.End,
		ColorTag:  color,
		BorderTag: border,
	}, true
}

func (p *Projector) drop(rec Record, reason string, err error) {
	args := []any{"appointment_id", rec.ID, "reason", reason}
	if err != nil {
		args = append(args, "error", err)
	}
	p.logger.Warn("appointment left off calendar", args...)
	if p.metrics != nil {
		p.metrics.ObserveCalendarDrop(reason)
	}
}

// ColorTags maps an appointment type to its fill and border colors.
func ColorTags(appointmentType string) (color, border string) {
	switch appointmentType {
	case TypeFirstVisit:
		return "green", "darkgreen"
	case TypeFollowUp:
		return "blue", "darkblue"
	default:
		return "gray", "dimgray"
	}
}
