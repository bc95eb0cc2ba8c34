package appointments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/nutri-agenda/internal/scheduling"
)

type fakeDirectory map[string]PatientSummary

func (d fakeDirectory) LookupPatient(_ context.Context, id string) (PatientSummary, error) {
	p, ok := d[id]
	if !ok {
		return PatientSummary{}, ErrPatientNotFound
	}
	return p, nil
}

func testDirectory() fakeDirectory {
	return fakeDirectory{
		"p1": {ID: "p1", Name: "Ana López", HeightCm: ptr(165)},
		"p2": {ID: "p2", Name: "Luis Pérez"},
	}
}

var march15 = scheduling.Date{Year: 2024, Month: time.March, Day: 15}

func booking(patientID, timeRange string) *Appointment {
	return &Appointment{
		PatientID: patientID,
		Date:      march15,
		TimeRange: timeRange,
		Type:      scheduling.TypeFollowUp,
		Status:    StatusPending,
	}
}

func TestInMemoryCreateRejectsOverlap(t *testing.T) {
	repo := NewInMemoryRepository(testDirectory())
	ctx := context.Background()

	first, err := repo.Create(ctx, booking("p1", "09:00 - 09:30"))
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "Ana López", first.Patient.Name)

	_, err = repo.Create(ctx, booking("p2", "09:15 - 09:45"))
	assert.ErrorIs(t, err, scheduling.ErrSlotConflict)

	_, err = repo.Create(ctx, booking("p2", "09:30 - 10:00"))
	assert.NoError(t, err)

	other := booking("p2", "09:00 - 09:30")
	other.Date = march15.AddDays(1)
	_, err = repo.Create(ctx, other)
	assert.NoError(t, err)
}

func TestInMemoryCancelledAppointmentsFreeTheirSlot(t *testing.T) {
	repo := NewInMemoryRepository(nil)
	ctx := context.Background()

	cancelled := booking("p1", "09:00 - 09:30")
	cancelled.Status = StatusCancelled
	_, err := repo.Create(ctx, cancelled)
	require.NoError(t, err)

	_, err = repo.Create(ctx, booking("p2", "09:00 - 09:30"))
	assert.NoError(t, err)

	booked, err := repo.BookedRanges(ctx, march15)
	require.NoError(t, err)
	assert.Len(t, booked, 1)
}

func TestInMemoryDeleteByPatientFreesSlots(t *testing.T) {
	repo := NewInMemoryRepository(testDirectory())
	ctx := context.Background()

	_, err := repo.Create(ctx, booking("p1", "09:00 - 09:30"))
	require.NoError(t, err)
	later := booking("p1", "09:00 - 09:30")
	later.Date = march15.AddDays(7)
	_, err = repo.Create(ctx, later)
	require.NoError(t, err)
	kept, err := repo.Create(ctx, booking("p2", "10:00 - 10:30"))
	require.NoError(t, err)

	removed, err := repo.DeleteByPatient(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	list, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, kept.ID, list[0].ID)

	_, err = repo.Create(ctx, booking("p2", "09:00 - 09:30"))
	assert.NoError(t, err)

	removed, err = repo.DeleteByPatient(ctx, "p1")
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestInMemoryCreateUnknownPatient(t *testing.T) {
	repo := NewInMemoryRepository(testDirectory())
	_, err := repo.Create(context.Background(), booking("nobody", "09:00 - 09:30"))
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestInMemoryUpdateIgnoresItsOwnSlot(t *testing.T) {
	repo := NewInMemoryRepository(testDirectory())
	ctx := context.Background()

	a, err := repo.Create(ctx, booking("p1", "09:00 - 09:30"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, booking("p2", "10:00 - 10:30"))
	require.NoError(t, err)

	moved := *a
	moved.TimeRange = "09:00 - 10:00"
	got, err := repo.Update(ctx, &moved)
	require.NoError(t, err)
	assert.Equal(t, a.CreatedAt, got.CreatedAt)

	moved.TimeRange = "09:30 - 10:30"
	_, err = repo.Update(ctx, &moved)
	assert.ErrorIs(t, err, scheduling.ErrSlotConflict)

	missing := moved
	missing.ID = "nope"
	_, err = repo.Update(ctx, &missing)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestInMemoryConcurrentBookingsHaveOneWinner(t *testing.T) {
	repo := NewInMemoryRepository(nil)
	ctx := context.Background()

	const callers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		won       int
		conflicts int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(ctx, booking("p1", "12:00 - 12:30"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case errors.Is(err, scheduling.ErrSlotConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, won)
	assert.Equal(t, callers-1, conflicts)
}

func TestInMemoryListFiltersAndSorts(t *testing.T) {
	repo := NewInMemoryRepository(testDirectory())
	ctx := context.Background()

	later := booking("p1", "08:00 - 08:30")
	later.Date = march15.AddDays(2)
	for _, a := range []*Appointment{later, booking("p2", "11:00 - 11:30"), booking("p1", "9:00 - 9:30")} {
		_, err := repo.Create(ctx, a)
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "09:00 - 09:30", all[0].TimeRange)
	assert.Equal(t, "11:00 - 11:30", all[1].TimeRange)
	assert.Equal(t, later.Date, all[2].Date)

	mine, err := repo.List(ctx, ListFilter{PatientID: "p1", To: march15})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Ana López", mine[0].Patient.Name)
}

func TestInMemoryDelete(t *testing.T) {
	repo := NewInMemoryRepository(nil)
	ctx := context.Background()

	a, err := repo.Create(ctx, booking("p1", "09:00 - 09:30"))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, a.ID))
	assert.ErrorIs(t, repo.Delete(ctx, a.ID), ErrAppointmentNotFound)

	_, err = repo.Get(ctx, a.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}
