package reconcile

import (
	"fmt"
	"sort"
	"time"

	"github.com/guttosm/flexsync/internal/domain/models"
)

// Policy decides which row survives when both feeds report the same execution.
type Policy string

const (
	PreferSettlement Policy = "prefer-settlement"
	PreferRealtime   Policy = "prefer-realtime"
	KeepLast         Policy = "keep-last"
)

// DefaultBackfillCutoff is how far back realtime rows are trusted by Backfill.
const DefaultBackfillCutoff = 24 * time.Hour

// ParsePolicy accepts the policy names above; empty means PreferSettlement.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case "":
		return PreferSettlement, nil
	case PreferSettlement, PreferRealtime, KeepLast:
		return p, nil
	default:
		return "", fmt.Errorf("unknown dedup policy %q", s)
	}
}

// Merge concatenates settlement then realtime rows, keeps one row per
// execution id according to policy and sorts the result by execution time.
// Within one source the first occurrence wins under the prefer policies.
func Merge(realtime, settlement []models.UnifiedTrade, policy Policy) ([]models.UnifiedTrade, error) {
	if _, err := ParsePolicy(string(policy)); err != nil {
		return nil, err
	}
	if policy == "" {
		policy = PreferSettlement
	}

	combined := make([]models.UnifiedTrade, 0, len(settlement)+len(realtime))
	combined = append(combined, settlement...)
	combined = append(combined, realtime...)

	winner := make(map[string]int, len(combined))
	for i, tr := range combined {
		cur, seen := winner[tr.ExecutionID]
		if !seen || replaces(policy, combined[cur].Source, tr.Source) {
			winner[tr.ExecutionID] = i
		}
	}

	out := make([]models.UnifiedTrade, 0, len(winner))
	for i, tr := range combined {
		if winner[tr.ExecutionID] == i {
			out = append(out, tr)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ExecutionTime.Before(out[j].ExecutionTime)
	})
	return out, nil
}

func replaces(policy Policy, current, candidate models.Source) bool {
	switch policy {
	case KeepLast:
		return true
	case PreferRealtime:
		return current != models.SourceRealtime && candidate == models.SourceRealtime
	default:
		return current != models.SourceSettlement && candidate == models.SourceSettlement
	}
}

// Backfill trusts settlement rows for all history and realtime rows only for
// executions after now-cutoff, then merges with PreferSettlement. A
// non-positive cutoff uses DefaultBackfillCutoff.
func Backfill(realtime, settlement []models.UnifiedTrade, cutoff time.Duration, now time.Time) []models.UnifiedTrade {
	if cutoff <= 0 {
		cutoff = DefaultBackfillCutoff
	}
	since := now.Add(-cutoff)

	recent := make([]models.UnifiedTrade, 0, len(realtime))
	for _, tr := range realtime {
		if tr.ExecutionTime.After(since) {
			recent = append(recent, tr)
		}
	}
	out, _ := Merge(recent, settlement, PreferSettlement)
	return out
}
