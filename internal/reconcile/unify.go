package reconcile

import (
	"time"

	"github.com/guttosm/flexsync/internal/domain/models"
	"github.com/guttosm/flexsync/internal/logger"
)

// Options configures Unify. A positive BackfillCutoff switches to Backfill,
// which always prefers settlement rows and ignores Policy.
type Options struct {
	Policy         Policy
	BackfillCutoff time.Duration
	Validate       bool
	Now            func() time.Time
}

// Result is the reconciled output of Unify.
type Result struct {
	Trades     []models.UnifiedTrade
	Realtime   int
	Settlement int
	Report     *Report
}

// Unify prepares whichever sources are non-empty, merges them and optionally
// validates the outcome. Missing columns in either table fail immediately.
func Unify(realtime, settlement *Table, opts Options) (Result, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	var rt, st []models.UnifiedTrade
	var err error
	if realtime.Len() > 0 {
		if rt, err = PrepareRealtimeTrades(realtime); err != nil {
			return Result{}, err
		}
	}
	if settlement.Len() > 0 {
		if st, err = PrepareSettlementTrades(settlement); err != nil {
			return Result{}, err
		}
	}

	var merged []models.UnifiedTrade
	if opts.BackfillCutoff > 0 {
		merged = Backfill(rt, st, opts.BackfillCutoff, opts.Now())
	} else if merged, err = Merge(rt, st, opts.Policy); err != nil {
		return Result{}, err
	}

	res := Result{Trades: merged}
	for _, tr := range merged {
		if tr.Source == models.SourceRealtime {
			res.Realtime++
		} else {
			res.Settlement++
		}
	}

	if opts.Validate && len(merged) > 0 {
		report := Validate(merged)
		report.Log()
		res.Report = &report
	}

	logger.L().Info().
		Int("total", len(merged)).
		Int("realtime", res.Realtime).
		Int("settlement", res.Settlement).
		Msg("unified trades")
	return res, nil
}
