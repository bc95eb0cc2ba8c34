package appointments

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/nutri-agenda/internal/forms"
	"github.com/wolfman30/nutri-agenda/internal/patients"
	"github.com/wolfman30/nutri-agenda/internal/scheduling"
	"github.com/wolfman30/nutri-agenda/pkg/logging"
)

var appointmentsTracer = otel.Tracer("nutri.internal.appointments")

// BookingRecorder counts booking outcomes.
type BookingRecorder interface {
	ObserveBooking(operation, outcome string)
	ObserveSlotsOffered(n int)
}

// Options configures a Service. Zero values fall back to UTC, the default working hours
// and 30-minute slots.
type Options struct {
	Location     *time.Location
	WorkingHours scheduling.WorkingHours
	SlotMinutes  int
	Patients     PatientDirectory
	Metrics      BookingRecorder
	Projector    *scheduling.Projector
	Now          func() time.Time
}

// Service books appointments and builds the calendar and list views.
type Service struct {
	repo        Repository
	patients    PatientDirectory
	projector   *scheduling.Projector
	metrics     BookingRecorder
	logger      *logging.Logger
	loc         *time.Location
	hours       scheduling.WorkingHours
	slotMinutes int
	now         func() time.Time
}

// NewService constructs an appointments service.
func NewService(repo Repository, logger *logging.Logger, opts Options) *Service {
	if repo == nil {
		panic("appointments: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		repo:        repo,
		patients:    opts.Patients,
		projector:   opts.Projector,
		metrics:     opts.Metrics,
		logger:      logger,
		loc:         opts.Location,
		hours:       opts.WorkingHours,
		slotMinutes: opts.SlotMinutes,
		now:         opts.Now,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.hours == (scheduling.WorkingHours{}) {
		s.hours = scheduling.DefaultWorkingHours
	}
	if s.slotMinutes <= 0 {
		s.slotMinutes = scheduling.DefaultSlotMinutes
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.projector == nil {
		s.projector = scheduling.NewProjector(s.loc, logger, nil)
	}
	return s
}

// Create validates req and books it. The store rejects overlaps with ErrSlotConflict.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.create")
	defer span.End()

	if err := req.Validate(); err != nil {
		s.observe("create", err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("nutri.patient_id", req.PatientID),
		attribute.String("nutri.date", req.Date.String()),
		attribute.String("nutri.time_range", req.TimeRange),
	)

	if err := s.checkPatient(ctx, req.PatientID); err != nil {
		s.observe("create", err)
		return nil, err
	}

	a, err := s.repo.Create(ctx, &Appointment{
		PatientID: req.PatientID,
		Date:      req.Date,
		TimeRange: req.TimeRange,
		Type:      req.Type,
		Status:    req.Status,
		Weight:    req.Weight.Value,
	})
	s.observe("create", err)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	s.logger.Info("appointment booked", "id", a.ID, "patient_id", a.PatientID, "date", a.Date.String(), "time_range", a.TimeRange)
	return a, nil
}

// Update validates req before touching the store, then merges it into the stored appointment.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Appointment, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.update")
	defer span.End()
	span.SetAttributes(attribute.String("nutri.appointment_id", id))

	if err := req.Validate(); err != nil {
		s.observe("update", err)
		return nil, err
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		s.observe("update", err)
		return nil, err
	}
	next := req.Apply(*current)
	if next.PatientID != current.PatientID {
		if err := s.checkPatient(ctx, next.PatientID); err != nil {
			s.observe("update", err)
			return nil, err
		}
	}

	a, err := s.repo.Update(ctx, &next)
	s.observe("update", err)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	s.logger.Info("appointment updated", "id", a.ID, "date", a.Date.String(), "time_range", a.TimeRange, "status", a.Status)
	return a, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Appointment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("appointment deleted", "id", id)
	return nil
}

// DeletePatientAppointments removes the history of a deleted patient so it stops holding
// slots and showing on the calendar.
func (s *Service) DeletePatientAppointments(ctx context.Context, patientID string) error {
	removed, err := s.repo.DeleteByPatient(ctx, patientID)
	if err != nil {
		return err
	}
	if removed > 0 {
		s.logger.Info("patient appointments deleted", "patient_id", patientID, "count", removed)
	}
	return nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Appointment, error) {
	return s.repo.List(ctx, filter)
}

// Today is the current calendar day at the practice.
func (s *Service) Today() scheduling.Date {
	return scheduling.DateOf(s.now().In(s.loc))
}

// Upcoming lists appointments from today on, soonest first, filtered by patient name.
func (s *Service) Upcoming(ctx context.Context, nameQuery string) ([]*Appointment, error) {
	list, err := s.repo.List(ctx, ListFilter{From: s.Today()})
	if err != nil {
		return nil, err
	}
	list = filterByName(list, nameQuery)
	SortChronologically(list)
	return list, nil
}

// Past lists appointments before today, most recent first, filtered by patient name.
func (s *Service) Past(ctx context.Context, nameQuery string) ([]*Appointment, error) {
	list, err := s.repo.List(ctx, ListFilter{To: s.Today().AddDays(-1)})
	if err != nil {
		return nil, err
	}
	list = filterByName(list, nameQuery)
	SortChronologically(list)
	slices.Reverse(list)
	return list, nil
}

// History lists one patient's appointments, most recent first.
func (s *Service) History(ctx context.Context, patientID string) ([]*Appointment, error) {
	if err := s.checkPatient(ctx, patientID); err != nil {
		return nil, err
	}
	list, err := s.repo.List(ctx, ListFilter{PatientID: patientID})
	if err != nil {
		return nil, err
	}
	SortChronologically(list)
	slices.Reverse(list)
	return list, nil
}

// BMIPoint is one weighed visit on a patient's BMI chart.
type BMIPoint struct {
	Date   scheduling.Date `json:"date"`
	Weight float64         `json:"weight"`
	BMI    *float64        `json:"bmi"`
}

// BMIHistory charts the patient's weight and BMI over their non-cancelled weighed visits,
// oldest first. BMI is null when the patient has no height on file.
func (s *Service) BMIHistory(ctx context.Context, patientID string) ([]BMIPoint, error) {
	if s.patients == nil {
		return nil, errors.New("appointments: patient directory not configured")
	}
	patient, err := s.patients.LookupPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.List(ctx, ListFilter{PatientID: patientID})
	if err != nil {
		return nil, err
	}
	SortChronologically(list)

	points := []BMIPoint{}
	for _, a := range list {
		if a.Weight == nil || !a.BlocksSlot() {
			continue
		}
		points = append(points, BMIPoint{
			Date:   a.Date,
			Weight: *a.Weight,
			BMI:    patients.BMI(*a.Weight, patient.HeightCm),
		})
	}
	return points, nil
}

// CalendarEvents projects the appointments between from and to, inclusive, onto the calendar.
func (s *Service) CalendarEvents(ctx context.Context, from, to scheduling.Date) ([]scheduling.CalendarEvent, error) {
	list, err := s.repo.List(ctx, ListFilter{From: from, To: to})
	if err != nil {
		return nil, err
	}
	records := make([]scheduling.Record, 0, len(list))
	for _, a := range list {
		records = append(records, a.Record())
	}
	return s.projector.ProjectAll(records), nil
}

// Availability lists the free slots on day within working hours.
func (s *Service) Availability(ctx context.Context, day scheduling.Date) ([]scheduling.TimeRange, error) {
	booked, err := s.repo.BookedRanges(ctx, day)
	if err != nil {
		return nil, err
	}
	free := slices.Collect(scheduling.SuggestSlots(booked, s.hours, s.slotMinutes))
	if s.metrics != nil {
		s.metrics.ObserveSlotsOffered(len(free))
	}
	return free, nil
}

func (s *Service) checkPatient(ctx context.Context, patientID string) error {
	if s.patients == nil {
		return nil
	}
	_, err := s.patients.LookupPatient(ctx, patientID)
	return err
}

func (s *Service) observe(operation string, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveBooking(operation, outcomeOf(err))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, scheduling.ErrSlotConflict):
		return "conflict"
	case IsValidationError(err), errors.Is(err, ErrPatientNotFound), errors.Is(err, ErrAppointmentNotFound):
		return "invalid"
	default:
		return "error"
	}
}

// IsValidationError reports whether err came from checking request fields.
func IsValidationError(err error) bool {
	for _, target := range []error{
		scheduling.ErrMalformedSlot,
		ErrOutOfRangeWeight,
		forms.ErrNotANumber,
		ErrMissingPatient,
		ErrMissingDate,
		ErrInvalidType,
		ErrInvalidStatus,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func filterByName(list []*Appointment, query string) []*Appointment {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return list
	}
	return slices.DeleteFunc(list, func(a *Appointment) bool {
		return !strings.Contains(strings.ToLower(a.Patient.Name), query)
	})
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	if !errors.Is(err, scheduling.ErrSlotConflict) {
		span.SetStatus(codes.Error, err.Error())
	}
}
