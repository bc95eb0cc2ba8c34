package scheduling

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/nutri-agenda/pkg/logging"
)

type dropCounter struct {
	reasons []string
}

func (d *dropCounter) ObserveCalendarDrop(reason string) {
	d.reasons = append(d.reasons, reason)
}

func storedDay(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestProjectorSkipsRecordWithoutTimeRange(t *testing.T) {
	drops := &dropCounter{}
	p := NewProjector(time.UTC, logging.New("error"), drops)

	events := p.ProjectAll([]Record{
		{ID: "a1", PatientName: "Ana López", Date: storedDay(2024, time.March, 15), TimeRange: "9:00 - 9:30", Type: TypeFirstVisit},
		{ID: "a2", PatientName: "Luis", Date: storedDay(2024, time.March, 15), TimeRange: "", Type: TypeFollowUp},
	})

	require.Len(t, events, 1)
	assert.Equal(t, "a1", events[0].ID)
	assert.Equal(t, "Ana López - primera", events[0].Title)
	assert.Equal(t, time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC), events[0].Start)
	assert.Equal(t, time.Date(2024, time.March, 15, 9, 30, 0, 0, time.UTC), events[0].End)
	assert.Equal(t, "green", events[0].ColorTag)
	assert.Equal(t, "darkgreen", events[0].BorderTag)
	assert.Equal(t, []string{DropMissingTimeRange}, drops.reasons)
}

func TestProjectorDropsBadRecordsAndKeepsOrder(t *testing.T) {
	drops := &dropCounter{}
	p := NewProjector(time.UTC, logging.New("error"), drops)

	records := []Record{
		{ID: "late", Date: storedDay(2024, time.March, 16), TimeRange: "18:00 - 18:30", Type: TypeFollowUp},
		{ID: "no-date", TimeRange: "10:00 - 10:30", Type: TypeFollowUp},
		{ID: "broken", Date: storedDay(2024, time.March, 15), TimeRange: "10:30 - 10:00", Type: TypeFollowUp},
		{ID: "early", Date: storedDay(2024, time.March, 15), TimeRange: "8:00 - 8:30", Type: TypeFirstVisit},
	}

	var ids []string
	for ev := range p.Project(slices.Values(records)) {
		ids = append(ids, ev.ID)
	}

	assert.Equal(t, []string{"late", "early"}, ids)
	assert.Equal(t, []string{DropMissingDate, DropMalformedRange}, drops.reasons)
}

func TestProjectorKeepsStoredDayForViewersWestOfUTC(t *testing.T) {
	mexico := time.FixedZone("UTC-6", -6*3600)
	p := NewProjector(mexico, logging.New("error"), nil)

	// the driver hands back the stored midnight already shifted into the viewer's zone
	stored := storedDay(2024, time.March, 15).In(mexico)
	events := p.ProjectAll([]Record{{ID: "x", Date: stored, TimeRange: "9:00 - 9:30", Type: TypeFollowUp}})

	require.Len(t, events, 1)
	assert.Equal(t, time.Date(2024, time.March, 15, 9, 0, 0, 0, mexico), events[0].Start)
	assert.Equal(t, "Paciente - seguimiento", events[0].Title)
	assert.Equal(t, "blue", events[0].ColorTag)
	assert.Equal(t, "darkblue", events[0].BorderTag)
}

func TestProjectorStopsWhenConsumerStops(t *testing.T) {
	p := NewProjector(nil, logging.New("error"), nil)
	records := []Record{
		{ID: "1", Date: storedDay(2024, 1, 1), TimeRange: "9:00 - 9:30"},
		{ID: "2", Date: storedDay(2024, 1, 1), TimeRange: "9:30 - 10:00"},
	}

	var seen int
	for range p.Project(slices.Values(records)) {
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

func TestProjectAllEmpty(t *testing.T) {
	p := NewProjector(nil, nil, nil)
	events := p.ProjectAll(nil)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestColorTagsUnknownType(t *testing.T) {
	color, border := ColorTags("otra")
	assert.Equal(t, "gray", color)
	assert.Equal(t, "dimgray", border)
}
