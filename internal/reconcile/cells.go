package reconcile

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

func isNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		s := strings.TrimSpace(x)
		return s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "null")
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	case time.Time:
		return x.IsZero()
	case *time.Time:
		return x == nil || x.IsZero()
	}
	return false
}

func cellString(row Row, col string) string {
	v := row[col]
	if isNull(v) {
		return ""
	}
	return strings.TrimSpace(cast.ToString(v))
}

func optString(row Row, col string) *string {
	s := cellString(row, col)
	if s == "" {
		return nil
	}
	return &s
}

func optFloat(row Row, col string) (*float64, error) {
	v := row[col]
	if isNull(v) {
		return nil, nil
	}
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", col, err)
	}
	return &f, nil
}

func reqFloat(row Row, col string) (float64, error) {
	f, err := optFloat(row, col)
	if err != nil {
		return 0, err
	}
	if f == nil {
		return 0, fmt.Errorf("column %s: missing value", col)
	}
	return *f, nil
}

func optInt(row Row, col string) (*int64, error) {
	v := row[col]
	if isNull(v) {
		return nil, nil
	}
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", col, err)
	}
	return &n, nil
}

func reqInt(row Row, col string) (int64, error) {
	n, err := optInt(row, col)
	if err != nil {
		return 0, err
	}
	if n == nil {
		return 0, fmt.Errorf("column %s: missing value", col)
	}
	return *n, nil
}

// optTime maps a missing timestamp to the zero time; validation reports it after the merge.
func optTime(row Row, col string) (time.Time, error) {
	v := row[col]
	if isNull(v) {
		return time.Time{}, nil
	}
	t, err := toTime(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("column %s: %w", col, err)
	}
	return t, nil
}

func optDate(row Row, col string) (*time.Time, error) {
	v := row[col]
	if isNull(v) {
		return nil, nil
	}
	d, err := toDate(v)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", col, err)
	}
	return &d, nil
}
