package marketclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickTimes_EvenSpacing(t *testing.T) {
	ticks, err := TickTimes("10:00", "15:30", 5)
	require.NoError(t, err)
	require.Len(t, ticks, 5)

	assert.Equal(t, "10:00", ticks[0].String())
	assert.Equal(t, "11:22", ticks[1].String())
	assert.Equal(t, "12:45", ticks[2].String())
	assert.Equal(t, "14:07", ticks[3].String())
	assert.Equal(t, "15:30", ticks[4].String())
}

func TestTickTimes_SingleTick(t *testing.T) {
	ticks, err := TickTimes("10:00", "15:30", 1)
	require.NoError(t, err)
	require.Len(t, ticks, 1)
	assert.Equal(t, "10:00", ticks[0].String())
}

func TestTickTimes_Invalid(t *testing.T) {
	_, err := TickTimes("15:30", "10:00", 5)
	assert.Error(t, err)

	_, err = TickTimes("10:00", "15:30", 0)
	assert.Error(t, err)

	_, err = TickTimes("25:00", "15:30", 5)
	assert.Error(t, err)
}

func TestCronSpec(t *testing.T) {
	tod := TimeOfDay{Hour: 9, Minute: 40}
	assert.Equal(t, "40 9 * * MON-FRI", tod.CronSpec())
}

func TestIsTradingDay(t *testing.T) {
	clock, err := New("America/New_York")
	require.NoError(t, err)

	ny := clock.Location()
	// 2024-07-01 is a Monday, 2024-07-06 a Saturday.
	assert.True(t, clock.IsTradingDay(time.Date(2024, 7, 1, 10, 0, 0, 0, ny)))
	assert.False(t, clock.IsTradingDay(time.Date(2024, 7, 6, 10, 0, 0, 0, ny)))
	assert.False(t, clock.IsTradingDay(time.Date(2024, 7, 7, 10, 0, 0, 0, ny)))
}

func TestSameDay(t *testing.T) {
	ny, _ := time.LoadLocation("America/New_York")
	a := time.Date(2024, 7, 1, 23, 0, 0, 0, ny)
	b := time.Date(2024, 7, 2, 1, 0, 0, 0, time.UTC) // 21:00 on 07-01 in NY
	assert.True(t, SameDay(a, b))
	assert.False(t, SameDay(a, b.Add(24*time.Hour)))
}
