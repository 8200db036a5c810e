package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateOf_UsesCalendarTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)
	cal := New(loc)

	// UTC 2026-10-14 17:30 == 上海 2026-10-15 01:30
	utc := time.Date(2026, 10, 14, 17, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-10-15", cal.DateOf(utc))
}

func TestToday_WithClock(t *testing.T) {
	cal := New(time.UTC).WithClock(func() time.Time {
		return time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC)
	})
	assert.Equal(t, "2026-03-01", cal.Today())
}

func TestStartOfDay(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)
	cal := New(loc)

	start, err := cal.StartOfDay("2026-10-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, loc).Unix(), start.Unix())

	_, err = cal.StartOfDay("15/10/2026")
	assert.Error(t, err)
}

func TestValidateDate(t *testing.T) {
	assert.NoError(t, ValidateDate("2026-01-31"))
	assert.Error(t, ValidateDate("2026-02-30"))
	assert.Error(t, ValidateDate(""))
}
