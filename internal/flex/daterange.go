package flex

import (
	"fmt"
	"time"
)

// MaxRangeDays is the widest span the provider accepts for a custom range.
const MaxRangeDays = 365

const queryDateLayout = "20060102"

// DateRange is an inclusive calendar-date window for a statement request.
// The zero value is not valid; build one with NewDateRange.
type DateRange struct {
	from time.Time
	to   time.Time
}

// NewDateRange validates and returns a DateRange. It fails with ErrValidation
// when from is after to, when the span exceeds MaxRangeDays, or when to lies
// after today. Values are never clamped.
func NewDateRange(from, to time.Time) (DateRange, error) {
	return newDateRange(from, to, time.Now())
}

func newDateRange(from, to, now time.Time) (DateRange, error) {
	f, t, today := civilDate(from), civilDate(to), civilDate(now)

	if f.After(t) {
		return DateRange{}, fmt.Errorf("%w: from_date (%s) must be before to_date (%s)",
			ErrValidation, f.Format(time.DateOnly), t.Format(time.DateOnly))
	}
	if days := int(t.Sub(f).Hours() / 24); days > MaxRangeDays {
		return DateRange{}, fmt.Errorf("%w: date range cannot exceed %d days (got %d days)",
			ErrValidation, MaxRangeDays, days)
	}
	if t.After(today) {
		return DateRange{}, fmt.Errorf("%w: to_date (%s) cannot be in the future",
			ErrValidation, t.Format(time.DateOnly))
	}
	return DateRange{from: f, to: t}, nil
}

// civilDate drops the clock and zone, keeping the calendar date as seen in t's location.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// From is the first day of the range (UTC midnight).
func (r DateRange) From() time.Time { return r.from }

// To is the last day of the range, inclusive.
func (r DateRange) To() time.Time { return r.to }

// Days is the number of days between From and To.
func (r DateRange) Days() int { return int(r.to.Sub(r.from).Hours() / 24) }

// QueryParams returns the fd/td values sent with SendRequest.
func (r DateRange) QueryParams() (fd, td string) {
	return r.from.Format(queryDateLayout), r.to.Format(queryDateLayout)
}

// String formats the range as "YYYY-MM-DD..YYYY-MM-DD".
func (r DateRange) String() string {
	return r.from.Format(time.DateOnly) + ".." + r.to.Format(time.DateOnly)
}
