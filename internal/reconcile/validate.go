package reconcile

import (
	"github.com/guttosm/flexsync/internal/domain/models"
	"github.com/guttosm/flexsync/internal/logger"
)

// Check is the outcome of one post-merge sanity check.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
}

// Report is the per-check breakdown of Validate.
type Report struct {
	Checks []Check `json:"checks"`
}

// OK reports whether every check passed.
func (r Report) OK() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Failed lists the names of failing checks.
func (r Report) Failed() []string {
	var names []string
	for _, c := range r.Checks {
		if !c.Passed {
			names = append(names, c.Name)
		}
	}
	return names
}

// Log writes the breakdown at debug level and failures at warn.
func (r Report) Log() {
	for _, c := range r.Checks {
		logger.L().Debug().Str("check", c.Name).Bool("passed", c.Passed).Msg("validation check")
	}
	if !r.OK() {
		logger.L().Warn().Strs("failed_checks", r.Failed()).Msg("unified trades failed validation")
	}
}

// Validate runs the post-merge sanity checks. It never fails; callers decide
// what to do with a failing report.
func Validate(trades []models.UnifiedTrade) Report {
	var (
		noNullIDs = true
		noDupIDs  = true
		sidesOK   = true
		qtyOK     = true
		pricesOK  = true
		timesOK   = true
		seen      = make(map[string]struct{}, len(trades))
	)
	for _, tr := range trades {
		if tr.ExecutionID == "" {
			noNullIDs = false
		} else if _, dup := seen[tr.ExecutionID]; dup {
			noDupIDs = false
		} else {
			seen[tr.ExecutionID] = struct{}{}
		}
		if !tr.Side.Valid() {
			sidesOK = false
		}
		if !(tr.Quantity > 0) {
			qtyOK = false
		}
		if !(tr.Price >= 0) {
			pricesOK = false
		}
		if tr.ExecutionTime.IsZero() {
			timesOK = false
		}
	}
	return Report{Checks: []Check{
		{Name: "no_null_execution_ids", Passed: noNullIDs},
		{Name: "no_duplicate_execution_ids", Passed: noDupIDs},
		{Name: "valid_sides", Passed: sidesOK},
		{Name: "positive_quantities", Passed: qtyOK},
		{Name: "non_negative_prices", Passed: pricesOK},
		{Name: "valid_execution_times", Passed: timesOK},
	}}
}
