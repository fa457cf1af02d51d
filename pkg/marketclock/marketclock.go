package marketclock

import (
	"fmt"
	"time"
)

// Clock is the single source of truth for scheduling: it supplies the current
// time in the market timezone and answers whether a given day is a trading
// day.
type Clock interface {
	Now() time.Time
	Today() time.Time
	IsTradingDay(t time.Time) bool
	Location() *time.Location
}

type marketClock struct {
	loc *time.Location
}

// New builds a Clock pinned to the given IANA timezone (e.g.
// "America/New_York").
func New(timezone string) (Clock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid market timezone %q: %w", timezone, err)
	}
	return &marketClock{loc: loc}, nil
}

func (c *marketClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Today truncates the current market time to midnight, the date key used for
// order staleness and history rows.
func (c *marketClock) Today() time.Time {
	return Midnight(c.Now())
}

// IsTradingDay applies the weekday mask of the US equities calendar.
// Exchange holidays are not modeled; on a holiday every exchange call fails
// soft and the day trades nothing.
func (c *marketClock) IsTradingDay(t time.Time) bool {
	switch t.In(c.loc).Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}

func (c *marketClock) Location() *time.Location {
	return c.loc
}

// Midnight truncates t to the start of its day, keeping the location.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day in a's
// location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// TickTimes spreads n wall-clock times evenly across the [start, end] window.
// Both bounds are "HH:MM" strings; the first tick lands on start and the last
// on end. With n == 1 the single tick lands on start.
func TickTimes(start, end string, n int) ([]TimeOfDay, error) {
	if n < 1 {
		return nil, fmt.Errorf("tick count must be >= 1, got %d", n)
	}
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return nil, err
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return nil, err
	}
	if e.Minutes() <= s.Minutes() {
		return nil, fmt.Errorf("window end %s must be after start %s", end, start)
	}

	ticks := make([]TimeOfDay, 0, n)
	if n == 1 {
		return append(ticks, s), nil
	}
	span := e.Minutes() - s.Minutes()
	for i := 0; i < n; i++ {
		m := s.Minutes() + i*span/(n-1)
		ticks = append(ticks, TimeOfDay{Hour: m / 60, Minute: m % 60})
	}
	return ticks, nil
}

// TimeOfDay is a wall-clock instant without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses an "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// CronSpec renders the time as a weekday-masked cron expression.
func (t TimeOfDay) CronSpec() string {
	return fmt.Sprintf("%d %d * * MON-FRI", t.Minute, t.Hour)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}
