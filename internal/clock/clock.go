package clock

import (
	"fmt"
	"time"

	"dailybid/internal/models"
)

// Clock supplies the current auction day in the service's reference
// timezone. Passing it explicitly keeps rollover and bid logic
// deterministic under test.
type Clock interface {
	Now() time.Time
	Today() time.Time
}

type systemClock struct {
	loc *time.Location
}

// NewSystemClock returns a Clock reading the wall clock in the named
// timezone (e.g. "UTC", "Europe/Amsterdam").
func NewSystemClock(timezone string) (Clock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", timezone, err)
	}
	return &systemClock{loc: loc}, nil
}

func (c *systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *systemClock) Today() time.Time {
	return DayOf(c.Now())
}

// DayOf truncates t to midnight in its own location. Two instants belong
// to the same auction day iff their DayOf values are equal.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDay parses a YYYY-MM-DD day string in the given location.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(models.DayFormat, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return t, nil
}

// FixedClock always reports the same instant; used in tests and available
// to admin tooling that needs to replay a specific day.
type FixedClock struct {
	Instant time.Time
}

func (c *FixedClock) Now() time.Time   { return c.Instant }
func (c *FixedClock) Today() time.Time { return DayOf(c.Instant) }
