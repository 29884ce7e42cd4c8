package timeslot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-frontdesk/internal/apperr"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in        string
		hour, min int
		wantErr   bool
	}{
		{in: "14:30", hour: 14, min: 30},
		{in: "9:05", hour: 9, min: 5},
		{in: "00:00", hour: 0, min: 0},
		{in: "02:30 PM", hour: 14, min: 30},
		{in: "02:30pm", hour: 14, min: 30},
		{in: "12:00 AM", hour: 0, min: 0},
		{in: "12:15 PM", hour: 12, min: 15},
		{in: "11:59 PM", hour: 23, min: 59},
		{in: "24:00", wantErr: true},
		{in: "10:60", wantErr: true},
		{in: "13:00 PM", wantErr: true},
		{in: "00:30 AM", wantErr: true},
		{in: "10am", wantErr: true},
		{in: "10:00:00", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, m, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTimeFormat)
				assert.ErrorIs(t, err, apperr.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hour, h)
			assert.Equal(t, tt.min, m)
		})
	}
}

func TestCombine(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)

	got, err := Combine("2024-06-01", "10:00", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 6, 1, 10, 0, 0, 0, loc)))

	_, err = Combine("2024-02-30", "10:00", loc)
	assert.ErrorIs(t, err, ErrInvalidDateTime)

	_, err = Combine("2023-02-29", "10:00", loc)
	assert.ErrorIs(t, err, ErrInvalidDateTime)

	_, err = Combine("2024-02-29", "10:00", loc)
	assert.NoError(t, err)

	_, err = Combine("01/06/2024", "10:00", loc)
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = Combine("2024-06-01", "ten", loc)
	assert.ErrorIs(t, err, ErrInvalidTimeFormat)
}

func TestCombineRejectsSkippedWallTime(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	_, err = Combine("2024-03-10", "02:30", ny)
	assert.ErrorIs(t, err, ErrInvalidDateTime)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	got, err := Combine("2024-03-10", "03:30", ny)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Hour())

	// The repeated hour at the end of DST exists and is accepted.
	got, err = Combine("2024-11-03", "01:30", ny)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Hour())
	assert.Equal(t, 30, got.Minute())
}

func TestCombineTwelveHourMatchesTwentyFourHour(t *testing.T) {
	for _, date := range []string{"2024-01-01", "2024-02-29", "2024-06-30", "2025-12-31"} {
		pm, err := Combine(date, "02:30 PM", time.UTC)
		require.NoError(t, err)
		h24, err := Combine(date, "14:30", time.UTC)
		require.NoError(t, err)
		assert.True(t, pm.Equal(h24), date)
	}
}

func TestSplitRoundTrip(t *testing.T) {
	ts, err := Combine("2024-06-01", "04:30 PM", time.UTC)
	require.NoError(t, err)

	date, clock := Split(ts, time.UTC)
	assert.Equal(t, "2024-06-01", date)
	assert.Equal(t, "16:30", clock)
}

func TestDaySlots(t *testing.T) {
	slots := DaySlots()
	require.Len(t, slots, 16)
	assert.Equal(t, "09:00", slots[0])
	assert.Equal(t, "09:30", slots[1])
	assert.Equal(t, "16:30", slots[15])
	assert.NotContains(t, slots, "17:00")
}

func TestAvailable(t *testing.T) {
	booked := []time.Time{
		time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 1, 13, 30, 0, 0, time.UTC),
		time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC),
	}

	free := Available(booked, time.UTC)
	assert.Len(t, free, 14)
	assert.Equal(t, "09:30", free[0])
	assert.NotContains(t, free, "13:30")

	assert.Equal(t, free, Available(booked, time.UTC))
	assert.Equal(t, DaySlots(), Available(nil, time.UTC))
}

func TestDayRange(t *testing.T) {
	start, end := DayRange(time.Date(2024, 6, 1, 15, 4, 5, 0, time.UTC), time.UTC)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), end)

	s, e, err := DayBounds("2024-06-01", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, start, s)
	assert.Equal(t, end, e)
}
