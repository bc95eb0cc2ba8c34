package appointments

import (
	"cmp"
	"context"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/nutri-agenda/internal/scheduling"
)

// ListFilter narrows a listing. Zero values mean no restriction.
type ListFilter struct {
	PatientID string
	From      scheduling.Date
	To        scheduling.Date
}

func (f ListFilter) matches(a *Appointment) bool {
	if f.PatientID != "" && a.PatientID != f.PatientID {
		return false
	}
	if !f.From.IsZero() && a.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && a.Date.After(f.To) {
		return false
	}
	return true
}

// Repository stores appointments. Create and Update must refuse, with an error wrapping
// scheduling.ErrSlotConflict, any write that would leave two non-cancelled appointments
// overlapping on the same date, even under concurrent callers.
type Repository interface {
	Create(ctx context.Context, a *Appointment) (*Appointment, error)
	Get(ctx context.Context, id string) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) (*Appointment, error)
	Delete(ctx context.Context, id string) error
	// DeleteByPatient removes every appointment of the patient and reports how many went.
	DeleteByPatient(ctx context.Context, patientID string) (int, error)
	List(ctx context.Context, filter ListFilter) ([]*Appointment, error)
	BookedRanges(ctx context.Context, day scheduling.Date) ([]scheduling.TimeRange, error)
}

// PatientSummary is the patient data appointments need.
type PatientSummary struct {
	ID       string
	Name     string
	HeightCm *float64
}

// PatientDirectory looks patients up. LookupPatient returns ErrPatientNotFound for unknown ids.
type PatientDirectory interface {
	LookupPatient(ctx context.Context, id string) (PatientSummary, error)
}

// InMemoryRepository keeps appointments in a map. One mutex covers the conflict check and
// the write that follows it.
type InMemoryRepository struct {
	mu           sync.RWMutex
	appointments map[string]*Appointment
	patients     PatientDirectory
}

// NewInMemoryRepository creates an in-memory repository. When patients is non-nil it is
// used to reject unknown patients and to fill in patient names.
func NewInMemoryRepository(patients PatientDirectory) *InMemoryRepository {
	return &InMemoryRepository{
		appointments: make(map[string]*Appointment),
		patients:     patients,
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, a *Appointment) (*Appointment, error) {
	tr, err := a.Range()
	if err != nil {
		return nil, err
	}
	if err := r.checkPatient(ctx, a.PatientID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkSlotLocked(a, tr, ""); err != nil {
		return nil, err
	}

	stored := *a
	stored.TimeRange = tr.String()
	stored.ID = uuid.New().String()
	stored.CreatedAt = time.Now().UTC()
	stored.Patient = PatientRef{ID: stored.PatientID}
	r.appointments[stored.ID] = &stored

	return r.withPatient(ctx, stored), nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	a, ok := r.appointments[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return r.withPatient(ctx, *a), nil
}

func (r *InMemoryRepository) Update(ctx context.Context, a *Appointment) (*Appointment, error) {
	tr, err := a.Range()
	if err != nil {
		return nil, err
	}
	if err := r.checkPatient(ctx, a.PatientID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.appointments[a.ID]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if err := r.checkSlotLocked(a, tr, a.ID); err != nil {
		return nil, err
	}

	stored := *a
	stored.TimeRange = tr.String()
	stored.CreatedAt = current.CreatedAt
	stored.Patient = PatientRef{ID: stored.PatientID}
	r.appointments[stored.ID] = &stored

	return r.withPatient(ctx, stored), nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.appointments[id]; !ok {
		return ErrAppointmentNotFound
	}
	delete(r.appointments, id)
	return nil
}

func (r *InMemoryRepository) DeleteByPatient(ctx context.Context, patientID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, a := range r.appointments {
		if a.PatientID == patientID {
			delete(r.appointments, id)
			removed++
		}
	}
	return removed, nil
}

// List returns matching appointments ordered by date and start time.
func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Appointment, error) {
	r.mu.RLock()
	matched := make([]Appointment, 0, len(r.appointments))
	for _, a := range r.appointments {
		if filter.matches(a) {
			matched = append(matched, *a)
		}
	}
	r.mu.RUnlock()

	out := make([]*Appointment, 0, len(matched))
	for _, a := range matched {
		out = append(out, r.withPatient(ctx, a))
	}
	SortChronologically(out)
	return out, nil
}

func (r *InMemoryRepository) BookedRanges(ctx context.Context, day scheduling.Date) ([]scheduling.TimeRange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bookedLocked(day, ""), nil
}

func (r *InMemoryRepository) checkSlotLocked(a *Appointment, candidate scheduling.TimeRange, excludeID string) error {
	if !a.BlocksSlot() {
		return nil
	}
	return scheduling.CheckBookable(candidate, r.bookedLocked(a.Date, excludeID))
}

func (r *InMemoryRepository) bookedLocked(day scheduling.Date, excludeID string) []scheduling.TimeRange {
	var ranges []scheduling.TimeRange
	for id, a := range r.appointments {
		if id == excludeID || a.Date != day || !a.BlocksSlot() {
			continue
		}
		if tr, err := a.Range(); err == nil {
			ranges = append(ranges, tr)
		}
	}
	slices.SortFunc(ranges, func(x, y scheduling.TimeRange) int { return cmp.Compare(x.Start, y.Start) })
	return ranges
}

func (r *InMemoryRepository) checkPatient(ctx context.Context, patientID string) error {
	if r.patients == nil {
		return nil
	}
	_, err := r.patients.LookupPatient(ctx, patientID)
	return err
}

func (r *InMemoryRepository) withPatient(ctx context.Context, a Appointment) *Appointment {
	a.Patient = PatientRef{ID: a.PatientID}
	if r.patients != nil {
		if p, err := r.patients.LookupPatient(ctx, a.PatientID); err == nil {
			a.Patient.Name = p.Name
		}
	}
	return &a
}

// SortChronologically orders appointments by date then start time, oldest first.
// Appointments whose range does not parse sort after valid ones on the same day.
func SortChronologically(list []*Appointment) {
	slices.SortStableFunc(list, compareChronological)
}

func compareChronological(a, b *Appointment) int {
	if c := a.Date.Time().Compare(b.Date.Time()); c != 0 {
		return c
	}
	if c := cmp.Compare(startMinute(a), startMinute(b)); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func startMinute(a *Appointment) int {
	tr, err := a.Range()
	if err != nil {
		return math.MaxInt
	}
	return int(tr.Start)
}
