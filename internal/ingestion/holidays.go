package ingestion

import (
	"time"

	"github.com/guttosm/flexsync/internal/flex"
)

// LastNBusinessDays returns the last n NYSE trading days up to and including
// from (most recent first). Weekends and exchange holidays are skipped.
func LastNBusinessDays(n int, from time.Time) []time.Time {
	out := make([]time.Time, 0, n)
	d := truncateToDate(from)

	for len(out) < n {
		if isBusinessDayNYSE(d) {
			out = append(out, d)
		}
		d = d.AddDate(0, 0, -1)
	}
	return out
}

// DefaultRange covers the last n trading days ending with the one before now.
func DefaultRange(n int, now time.Time) (flex.DateRange, error) {
	if n < 1 {
		n = 1
	}
	days := LastNBusinessDays(n, now.AddDate(0, 0, -1))
	return flex.NewDateRange(days[len(days)-1], days[0])
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isBusinessDayNYSE(d time.Time) bool {
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	_, closed := nyseHolidays(d.Year())[truncateToDate(d)]
	return !closed
}

// nyseHolidays returns the full-day closures observed in year, keyed by UTC midnight.
func nyseHolidays(year int) map[time.Time]string {
	h := make(map[time.Time]string, 10)
	add := func(d time.Time, name string) { h[d] = name }

	// New Year's Day falling on a Saturday is not observed on the prior Friday.
	if ny := date(year, time.January, 1); ny.Weekday() == time.Sunday {
		add(ny.AddDate(0, 0, 1), "New Year's Day")
	} else if ny.Weekday() != time.Saturday {
		add(ny, "New Year's Day")
	}

	add(nthWeekday(year, time.January, time.Monday, 3), "Martin Luther King Jr. Day")
	add(nthWeekday(year, time.February, time.Monday, 3), "Washington's Birthday")
	add(easterSunday(year).AddDate(0, 0, -2), "Good Friday")
	add(lastWeekday(year, time.May, time.Monday), "Memorial Day")
	if year >= 2022 {
		add(observed(date(year, time.June, 19)), "Juneteenth")
	}
	add(observed(date(year, time.July, 4)), "Independence Day")
	add(nthWeekday(year, time.September, time.Monday, 1), "Labor Day")
	add(nthWeekday(year, time.November, time.Thursday, 4), "Thanksgiving Day")
	add(observed(date(year, time.December, 25)), "Christmas Day")
	return h
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// observed moves Saturday holidays to Friday and Sunday holidays to Monday.
func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

func nthWeekday(y int, m time.Month, wd time.Weekday, n int) time.Time {
	d := date(y, m, 1)
	offset := (int(wd) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset+7*(n-1))
}

func lastWeekday(y int, m time.Month, wd time.Weekday) time.Time {
	d := date(y, m+1, 1).AddDate(0, 0, -1)
	offset := (int(d.Weekday()) - int(wd) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// easterSunday returns the date of Easter Sunday for a given year
// (Meeus/Jones/Butcher algorithm).
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1

	return date(year, time.Month(month), day)
}
