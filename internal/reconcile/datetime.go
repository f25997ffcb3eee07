package reconcile

import (
	"fmt"
	"strings"
	"sync"
	"time"
	_ "time/tzdata" // statements name US exchange zones; containers often lack zoneinfo

	"github.com/spf13/cast"
)

// DefaultRegion is assumed for IBKR timestamps without a zone suffix.
const DefaultRegion = "America/New_York"

// IBKR suffixes a zone abbreviation; the abbreviation only selects the region,
// DST follows from the date.
var tzRegions = map[string]string{
	"EST": "America/New_York",
	"EDT": "America/New_York",
	"CST": "America/Chicago",
	"CDT": "America/Chicago",
	"MST": "America/Denver",
	"MDT": "America/Denver",
	"PST": "America/Los_Angeles",
	"PDT": "America/Los_Angeles",
	"UTC": "UTC",
	"GMT": "UTC",
}

var regionalLayouts = []string{
	"2006-01-02;15:04:05",
	"2006-01-02;150405",
	"20060102;150405",
	"20060102;15:04:05",
	"20060102 150405",
	"2006-01-02 15:04:05",
}

var utcLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
}

var dateLayouts = []string{
	"20060102",
	"2006-01-02",
}

var (
	locMu    sync.Mutex
	locCache = map[string]*time.Location{}
)

func region(name string) (*time.Location, error) {
	locMu.Lock()
	defer locMu.Unlock()
	if loc, ok := locCache[name]; ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	locCache[name] = loc
	return loc, nil
}

// ParseDateTime parses the timestamp formats found in Flex statements and
// realtime exports and returns the instant in UTC:
//
//	2026-01-15;10:30:00 EST   zone abbreviation selects the region
//	20260115;103000           New York
//	2026-01-15 10:30:00       UTC
//	2026-01-15T10:30:00Z      RFC 3339
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range utcLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}

	zone := DefaultRegion
	if i := strings.LastIndexByte(s, ' '); i > 0 && isAbbreviation(s[i+1:]) {
		if r, ok := tzRegions[s[i+1:]]; ok {
			zone = r
		}
		s = s[:i]
	}
	loc, err := region(zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("loading zone %s: %w", zone, err)
	}
	for _, layout := range regionalLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func isAbbreviation(s string) bool {
	if len(s) < 3 || len(s) > 4 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case *time.Time:
		return x.UTC(), nil
	case string:
		return ParseDateTime(x)
	}
	// epoch seconds from numeric exports
	t, err := cast.ToTimeE(v)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func toDate(v any) (time.Time, error) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, s); err == nil {
				return d, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognised date %q", s)
	}
	t, err := toTime(v)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}
