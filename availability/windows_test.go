package availability_test

import (
	"testing"
	"time"

	"github.com/Vaibhavugile/doenew/availability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := availability.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestBookedWindowSet_BufferAfterOccupiedWindow(t *testing.T) {
	policy := availability.DefaultPolicy(availability.ModeSingleDay)
	buffer := policy.PostBookingBufferDays(2, 3)
	assert.Equal(t, 4, buffer)

	set := availability.NewBookedWindowSet([]availability.Interval{{
		OccupiedStart: day(t, "2024-02-10"),
		OccupiedEnd:   day(t, "2024-02-15"),
		UseStart:      day(t, "2024-02-13"),
		UseEnd:        day(t, "2024-02-13"),
	}}, buffer)

	assert.True(t, set.IsBlocked(day(t, "2024-02-19")))
	assert.False(t, set.IsBlocked(day(t, "2024-02-20")))
	assert.Equal(t, availability.DayBuffer, set.Classify(day(t, "2024-02-16")))
	assert.Equal(t, availability.DayOccupied, set.Classify(day(t, "2024-02-15")))
}

func TestBookedWindowSet_EveryDayOfWindowAndBufferIsBlocked(t *testing.T) {
	start, end := day(t, "2024-05-01"), day(t, "2024-05-06")
	for _, buffer := range []int{0, 1, 4, 9} {
		set := availability.NewBookedWindowSet([]availability.Interval{{
			OccupiedStart: start, OccupiedEnd: end, UseStart: start, UseEnd: end,
		}}, buffer)

		for d := start; !d.After(availability.AddDays(end, buffer)); d = availability.AddDays(d, 1) {
			assert.True(t, set.IsBlocked(d), "buffer=%d date=%s", buffer, availability.FormatDate(d))
		}
		assert.False(t, set.IsBlocked(availability.AddDays(start, -1)), "buffer=%d", buffer)
		assert.False(t, set.IsBlocked(availability.AddDays(end, buffer+1)), "buffer=%d", buffer)
	}
}

func TestBookedWindowSet_IgnoresTimeOfDay(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	set := availability.NewBookedWindowSet([]availability.Interval{{
		OccupiedStart: time.Date(2024, 3, 10, 23, 30, 0, 0, ist),
		OccupiedEnd:   time.Date(2024, 3, 12, 0, 15, 0, 0, ist),
	}}, 0)

	assert.True(t, set.IsBlocked(time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)))
	assert.True(t, set.IsBlocked(time.Date(2024, 3, 12, 22, 0, 0, 0, time.UTC)))
	assert.False(t, set.IsBlocked(day(t, "2024-03-13")))
}

func TestBookedWindowSet_OccupiedWinsOverNeighbourBuffer(t *testing.T) {
	set := availability.NewBookedWindowSet([]availability.Interval{
		{OccupiedStart: day(t, "2024-06-01"), OccupiedEnd: day(t, "2024-06-03")},
		{OccupiedStart: day(t, "2024-06-05"), OccupiedEnd: day(t, "2024-06-07")},
	}, 3)

	assert.Equal(t, availability.DayBuffer, set.Classify(day(t, "2024-06-04")))
	assert.Equal(t, availability.DayOccupied, set.Classify(day(t, "2024-06-05")))
	assert.Equal(t, availability.DayBuffer, set.Classify(day(t, "2024-06-10")))
	assert.Equal(t, availability.DayAvailable, set.Classify(day(t, "2024-06-11")))
	assert.Equal(t, 2, set.Len())
}

func TestBookedWindowSet_FirstBlocked(t *testing.T) {
	set := availability.NewBookedWindowSet([]availability.Interval{
		{OccupiedStart: day(t, "2024-07-10"), OccupiedEnd: day(t, "2024-07-12")},
	}, 2)

	d, ok := set.FirstBlocked(day(t, "2024-07-01"), day(t, "2024-07-20"))
	require.True(t, ok)
	assert.Equal(t, "2024-07-10", availability.FormatDate(d))

	_, ok = set.FirstBlocked(day(t, "2024-07-15"), day(t, "2024-07-20"))
	assert.False(t, ok)
}

func TestPostBookingBufferDays_IncludesReverseWhenConfigured(t *testing.T) {
	policy := availability.DefaultPolicy(availability.ModeRanged)
	policy.PostBookingIncludesReverse = true
	assert.Equal(t, 7, policy.PostBookingBufferDays(2, 3))
	assert.Equal(t, 2, policy.PostBookingBufferDays(-1, -1))
}

func TestBookedWindowSet_Overlaps(t *testing.T) {
	set := availability.NewBookedWindowSet([]availability.Interval{
		{OccupiedStart: day(t, "2024-07-10"), OccupiedEnd: day(t, "2024-07-12")},
	}, 2)

	assert.True(t, set.Overlaps(day(t, "2024-07-01"), day(t, "2024-07-10")))
	assert.True(t, set.Overlaps(day(t, "2024-07-14"), day(t, "2024-07-20")))
	assert.False(t, set.Overlaps(day(t, "2024-07-15"), day(t, "2024-07-20")))
	assert.False(t, set.Overlaps(day(t, "2024-07-01"), day(t, "2024-07-09")))
	assert.False(t, availability.NewBookedWindowSet(nil, 2).Overlaps(day(t, "2024-07-01"), day(t, "2024-07-30")))
}

func TestBookedWindowSet_OccupiedOverlapsIgnoresBuffer(t *testing.T) {
	set := availability.NewBookedWindowSet([]availability.Interval{
		{OccupiedStart: day(t, "2024-07-10"), OccupiedEnd: day(t, "2024-07-12")},
	}, 2)

	assert.True(t, set.OccupiedOverlaps(day(t, "2024-07-05"), day(t, "2024-07-10")))
	assert.True(t, set.OccupiedOverlaps(day(t, "2024-07-12"), day(t, "2024-07-20")))
	assert.False(t, set.OccupiedOverlaps(day(t, "2024-07-13"), day(t, "2024-07-20")))
	assert.True(t, set.Overlaps(day(t, "2024-07-13"), day(t, "2024-07-20")))
}
