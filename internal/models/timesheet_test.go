package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCalculator is a fixed-answer RateCalculator for entity tests.
type stubCalculator struct {
	fixed  *float64
	hourly float64
	factor float64
}

func (s *stubCalculator) FindFixedRate(t *Timesheet) *float64 { return s.fixed }
func (s *stubCalculator) FindHourlyRate(t *Timesheet) float64 { return s.hourly }
func (s *stubCalculator) RateFactor(t *Timesheet) float64     { return s.factor }

func float64Ptr(v float64) *float64 { return &v }

func TestGetDurationUsesStoredValue(t *testing.T) {
	begin := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)

	timesheet := &Timesheet{
		Begin:    &begin,
		End:      &end,
		Duration: 5400,
	}

	assert.Equal(t, int64(5400), timesheet.GetDuration())
}

func TestGetDurationLiveForRunningEntry(t *testing.T) {
	begin := time.Now().Add(-2 * time.Hour)

	timesheet := &Timesheet{
		Begin:    &begin,
		Duration: 0,
	}

	first := timesheet.GetDuration()
	assert.InDelta(t, 7200, first, 2)

	// Monotonically non-decreasing across successive calls
	second := timesheet.GetDuration()
	assert.GreaterOrEqual(t, second, first)
}

func TestGetDurationFutureBeginClampedToZero(t *testing.T) {
	begin := time.Now().Add(time.Hour)

	timesheet := &Timesheet{Begin: &begin}

	assert.Equal(t, int64(0), timesheet.GetDuration())
}

func TestSetEndNilResetsDurationAndRate(t *testing.T) {
	begin := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := begin.Add(90 * time.Minute)

	timesheet := &Timesheet{
		Begin:    &begin,
		End:      &end,
		Duration: 5400,
		Rate:     float64Ptr(120),
	}

	timesheet.SetEnd(nil)

	assert.Nil(t, timesheet.End)
	assert.True(t, timesheet.IsRunning())
	assert.Equal(t, int64(0), timesheet.Duration)
	assert.Nil(t, timesheet.Rate)
}

func TestSetBeginAdoptsTimezone(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	timesheet := &Timesheet{}
	timesheet.SetBegin(time.Date(2024, 1, 1, 9, 0, 0, 0, berlin))

	assert.Equal(t, "Europe/Berlin", timesheet.Timezone)

	// A later end overwrites the timezone again
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	end := time.Date(2024, 1, 1, 18, 0, 0, 0, tokyo)
	timesheet.SetEnd(&end)

	assert.Equal(t, "Asia/Tokyo", timesheet.Timezone)
}

func TestLocalizationAppliedExactlyOnce(t *testing.T) {
	begin := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)

	timesheet := &Timesheet{
		Begin:    &begin,
		End:      &end,
		Timezone: "Europe/Berlin",
	}

	localizedBegin := timesheet.GetBegin()
	require.NotNil(t, localizedBegin)
	assert.Equal(t, "Europe/Berlin", localizedBegin.Location().String())
	assert.True(t, localizedBegin.Equal(begin))

	localizedEnd := timesheet.GetEnd()
	require.NotNil(t, localizedEnd)
	assert.Equal(t, "Europe/Berlin", localizedEnd.Location().String())

	// Changing the stored timezone afterwards must not re-localize
	timesheet.Timezone = "Asia/Tokyo"
	assert.Equal(t, "Europe/Berlin", timesheet.GetBegin().Location().String())
	assert.Equal(t, "Europe/Berlin", timesheet.GetEnd().Location().String())
}

func TestLocalizationUnknownTimezoneLeavesTimestamps(t *testing.T) {
	begin := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	timesheet := &Timesheet{
		Begin:    &begin,
		Timezone: "Not/AZone",
	}

	assert.Equal(t, "UTC", timesheet.GetBegin().Location().String())
	assert.Nil(t, timesheet.GetEnd())
}

func TestGetRateStoredValueWins(t *testing.T) {
	calc := &stubCalculator{fixed: float64Ptr(500), hourly: 100, factor: 1}

	timesheet := &Timesheet{Rate: float64Ptr(42)}
	assert.Equal(t, 42.0, timesheet.GetRate(calc))

	// An explicit zero is a legitimate free rate, not "uncomputed"
	timesheet.Rate = float64Ptr(0)
	assert.Equal(t, 0.0, timesheet.GetRate(calc))
}

func TestGetRateFixedRateShortCircuits(t *testing.T) {
	calc := &stubCalculator{fixed: float64Ptr(250), hourly: 100, factor: 1}

	timesheet := &Timesheet{Duration: 5400}
	assert.Equal(t, 250.0, timesheet.GetRate(calc))
}

func TestGetRateHourlyFallback(t *testing.T) {
	calc := &stubCalculator{hourly: 100, factor: 1.5}

	// 90 minutes at 100/h with factor 1.5
	timesheet := &Timesheet{Duration: 5400}
	assert.Equal(t, 225.0, timesheet.GetRate(calc))
}

func TestGetRateWithoutCalculator(t *testing.T) {
	timesheet := &Timesheet{Duration: 5400}
	assert.Equal(t, 0.0, timesheet.GetRate(nil))
}

func TestAddTagIsIdempotent(t *testing.T) {
	timesheet := &Timesheet{}
	tag := &Tag{Name: "billing"}

	timesheet.AddTag(tag)
	timesheet.AddTag(tag)

	assert.Len(t, timesheet.Tags, 1)
	assert.Len(t, tag.Timesheets, 1, "back-reference is updated exactly once")

	// A distinct instance with the same name is the same tag
	timesheet.AddTag(&Tag{Name: "billing"})
	assert.Len(t, timesheet.Tags, 1)
}

func TestRemoveTagMaintainsBothSides(t *testing.T) {
	timesheet := &Timesheet{}
	tag := &Tag{Name: "billing"}

	timesheet.AddTag(tag)
	timesheet.RemoveTag(tag)

	assert.Empty(t, timesheet.Tags)
	assert.Empty(t, tag.Timesheets)

	// Removing an absent tag is a no-op
	timesheet.RemoveTag(&Tag{Name: "missing"})
	assert.Empty(t, timesheet.Tags)
}

func TestSetMetaFieldAttachesAndBinds(t *testing.T) {
	timesheet := &Timesheet{ID: 7}

	timesheet.SetMetaField(TimesheetMeta{Name: "ticket", Value: "KIM-123"})

	require.Len(t, timesheet.Meta, 1)
	assert.Equal(t, uint64(7), timesheet.Meta[0].TimesheetID)
	assert.Equal(t, "KIM-123", timesheet.Meta[0].Value)
}

func TestSetMetaFieldMergesExisting(t *testing.T) {
	timesheet := &Timesheet{}
	timesheet.SetMetaField(TimesheetMeta{Name: "ticket", Value: "KIM-123"})
	timesheet.SetMetaField(TimesheetMeta{Name: "Ticket", Value: "KIM-456", Visible: true})

	require.Len(t, timesheet.Meta, 1, "same name must not grow the collection")
	assert.Equal(t, "KIM-456", timesheet.Meta[0].Value)
	assert.True(t, timesheet.Meta[0].Visible)
}

func TestGetMetaFieldLookup(t *testing.T) {
	timesheet := &Timesheet{}
	timesheet.SetMetaField(TimesheetMeta{Name: "ticket", Value: "KIM-123"})

	field := timesheet.GetMetaField("TICKET")
	require.NotNil(t, field)
	assert.Equal(t, "KIM-123", field.Value)

	assert.Nil(t, timesheet.GetMetaField("missing"))
}
