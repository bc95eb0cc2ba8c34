package appointments

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/nutri-agenda/internal/scheduling"
	"github.com/wolfman30/nutri-agenda/pkg/logging"
)

// untouchableRepository fails the test on any store call.
type untouchableRepository struct {
	t *testing.T
}

func (r untouchableRepository) Create(context.Context, *Appointment) (*Appointment, error) {
	r.t.Fatal("store Create called")
	return nil, nil
}

func (r untouchableRepository) Get(context.Context, string) (*Appointment, error) {
	r.t.Fatal("store Get called")
	return nil, nil
}

func (r untouchableRepository) Update(context.Context, *Appointment) (*Appointment, error) {
	r.t.Fatal("store Update called")
	return nil, nil
}

func (r untouchableRepository) Delete(context.Context, string) error {
	r.t.Fatal("store Delete called")
	return nil
}

func (r untouchableRepository) DeleteByPatient(context.Context, string) (int, error) {
	r.t.Fatal("store DeleteByPatient called")
	return 0, nil
}

func (r untouchableRepository) List(context.Context, ListFilter) ([]*Appointment, error) {
	r.t.Fatal("store List called")
	return nil, nil
}

func (r untouchableRepository) BookedRanges(context.Context, scheduling.Date) ([]scheduling.TimeRange, error) {
	r.t.Fatal("store BookedRanges called")
	return nil, nil
}

type bookingCounter struct {
	outcomes []string
	offered  []int
}

func (b *bookingCounter) ObserveBooking(operation, outcome string) {
	b.outcomes = append(b.outcomes, operation+":"+outcome)
}

func (b *bookingCounter) ObserveSlotsOffered(n int) { b.offered = append(b.offered, n) }

func fixedNow() time.Time {
	return time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T) (*Service, *bookingCounter) {
	t.Helper()
	dir := testDirectory()
	counter := &bookingCounter{}
	svc := NewService(NewInMemoryRepository(dir), logging.New("error"), Options{
		Patients: dir,
		Metrics:  counter,
		Now:      fixedNow,
	})
	return svc, counter
}

func TestUpdateRejectsOutOfRangeWeightBeforeStore(t *testing.T) {
	svc := NewService(untouchableRepository{t: t}, logging.New("error"), Options{})

	var req UpdateRequest
	require.NoError(t, json.Unmarshal([]byte(`{"weight":"29.9"}`), &req))

	_, err := svc.Update(context.Background(), "a1", req)
	assert.ErrorIs(t, err, ErrOutOfRangeWeight)
}

func TestCreateRejectsMalformedRangeBeforeStore(t *testing.T) {
	svc := NewService(untouchableRepository{t: t}, logging.New("error"), Options{})

	_, err := svc.Create(context.Background(), CreateRequest{
		PatientID: "p1",
		Date:      march15,
		TimeRange: "10:00 - 9:00",
		Type:      scheduling.TypeFirstVisit,
	})
	assert.ErrorIs(t, err, scheduling.ErrMalformedSlot)
}

func TestServiceCreateAndConflict(t *testing.T) {
	svc, counter := newTestService(t)
	ctx := context.Background()

	req := CreateRequest{PatientID: "p1", Date: march15, TimeRange: "9:00 - 9:30", Type: scheduling.TypeFirstVisit, Weight: WeightOf(70)}
	a, err := svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, a.Status)
	assert.Equal(t, "09:00 - 09:30", a.TimeRange)

	_, err = svc.Create(ctx, CreateRequest{PatientID: "p2", Date: march15, TimeRange: "09:00 - 09:30", Type: scheduling.TypeFollowUp})
	assert.ErrorIs(t, err, scheduling.ErrSlotConflict)

	_, err = svc.Create(ctx, CreateRequest{PatientID: "ghost", Date: march15, TimeRange: "11:00 - 11:30", Type: scheduling.TypeFollowUp})
	assert.ErrorIs(t, err, ErrPatientNotFound)

	assert.Equal(t, []string{"create:ok", "create:conflict", "create:invalid"}, counter.outcomes)
}

func TestServiceUpdateMovesAppointment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateRequest{PatientID: "p1", Date: march15, TimeRange: "9:00 - 9:30", Type: scheduling.TypeFirstVisit})
	require.NoError(t, err)

	var req UpdateRequest
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2024-03-16T00:00:00.000Z","timeRange":"12:00 - 12:30","weight":"72"}`), &req))

	got, err := svc.Update(ctx, a.ID, req)
	require.NoError(t, err)
	assert.Equal(t, march15.AddDays(1), got.Date)
	assert.Equal(t, "12:00 - 12:30", got.TimeRange)
	require.NotNil(t, got.Weight)
	assert.Equal(t, 72.0, *got.Weight)
}

func TestUpcomingAndPast(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	book := func(patientID string, day scheduling.Date, tr string) {
		_, err := svc.Create(ctx, CreateRequest{PatientID: patientID, Date: day, TimeRange: tr, Type: scheduling.TypeFollowUp})
		require.NoError(t, err)
	}
	today := march15
	book("p1", today.AddDays(3), "09:00 - 09:30")
	book("p2", today, "16:00 - 16:30")
	book("p1", today, "08:00 - 08:30")
	book("p1", today.AddDays(-1), "09:00 - 09:30")
	book("p2", today.AddDays(-10), "09:00 - 09:30")
	book("p1", today.AddDays(-10), "12:00 - 12:30")

	upcoming, err := svc.Upcoming(ctx, "")
	require.NoError(t, err)
	require.Len(t, upcoming, 3)
	assert.Equal(t, "08:00 - 08:30", upcoming[0].TimeRange)
	assert.Equal(t, "16:00 - 16:30", upcoming[1].TimeRange)
	assert.Equal(t, today.AddDays(3), upcoming[2].Date)

	past, err := svc.Past(ctx, "")
	require.NoError(t, err)
	require.Len(t, past, 3)
	assert.Equal(t, today.AddDays(-1), past[0].Date)
	assert.Equal(t, "12:00 - 12:30", past[1].TimeRange)
	assert.Equal(t, "09:00 - 09:30", past[2].TimeRange)

	filtered, err := svc.Past(ctx, "  luis ")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Luis Pérez", filtered[0].Patient.Name)
}

func TestHistoryAndBMI(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	weights := []struct {
		day    scheduling.Date
		weight WeightInput
		status string
	}{
		{march15.AddDays(-30), WeightOf(80), StatusConfirmed},
		{march15.AddDays(-15), WeightInput{}, StatusConfirmed},
		{march15.AddDays(-7), WeightOf(99), StatusCancelled},
		{march15, WeightOf(78), StatusPending},
	}
	for _, w := range weights {
		_, err := svc.Create(ctx, CreateRequest{PatientID: "p1", Date: w.day, TimeRange: "09:00 - 09:30", Type: scheduling.TypeFollowUp, Status: w.status, Weight: w.weight})
		require.NoError(t, err)
	}

	history, err := svc.History(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, march15, history[0].Date)

	points, err := svc.BMIHistory(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 80.0, points[0].Weight)
	require.NotNil(t, points[0].BMI)
	assert.Equal(t, 29.38, *points[0].BMI)
	assert.Equal(t, 28.65, *points[1].BMI)

	_, err = svc.History(ctx, "ghost")
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestCalendarAndAvailability(t *testing.T) {
	svc, counter := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateRequest{PatientID: "p1", Date: march15, TimeRange: "09:30 - 10:00", Type: scheduling.TypeFirstVisit})
	require.NoError(t, err)

	events, err := svc.CalendarEvents(ctx, march15, march15)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Ana López - primera", events[0].Title)
	assert.Equal(t, "green", events[0].ColorTag)

	free, err := svc.Availability(ctx, march15)
	require.NoError(t, err)
	assert.Len(t, free, 21)
	assert.Equal(t, "09:00 - 09:30", free[0].String())
	assert.Equal(t, "10:00 - 10:30", free[1].String())
	assert.Equal(t, []int{21}, counter.offered)
}
