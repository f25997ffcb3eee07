package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/guttosm/flexsync/config"
	"github.com/guttosm/flexsync/internal/flex"
	"github.com/guttosm/flexsync/internal/ingestion"
	"github.com/guttosm/flexsync/internal/reconcile"
)

// ErrSyncInProgress is returned when a sync is requested while another runs.
var ErrSyncInProgress = errors.New("sync already in progress")

// SyncRequest selects what one sync run covers. Zero values fall back to
// the service defaults; an empty Accounts list means every configured account.
type SyncRequest struct {
	Accounts []string
	From     *time.Time
	To       *time.Time
	Days     int
	Policy   string
}

// SyncOutcome bundles the per-account results of a run.
type SyncOutcome struct {
	RunID   string
	Range   *flex.DateRange
	Results []ingestion.Result
}

// SyncDefaults carry the configured pipeline settings.
type SyncDefaults struct {
	Report         string
	Parallel       int
	CacheDir       string
	Policy         reconcile.Policy
	BackfillCutoff time.Duration
}

type SyncService interface {
	Run(ctx context.Context, req SyncRequest) (SyncOutcome, error)
}

type syncService struct {
	running  chan struct{}
	syncer   *ingestion.Syncer
	accounts []config.Account
	defaults SyncDefaults
	now      func() time.Time
}

func NewSyncService(syncer *ingestion.Syncer, accounts []config.Account, defaults SyncDefaults) SyncService {
	return &syncService{
		running:  make(chan struct{}, 1),
		syncer:   syncer,
		accounts: accounts,
		defaults: defaults,
		now:      time.Now,
	}
}

// Run validates the request and syncs the selected accounts. Only one run
// may be active at a time. Per-account failures are returned in the outcome
// together with the joined error.
func (s *syncService) Run(ctx context.Context, req SyncRequest) (SyncOutcome, error) {
	accts, err := s.selectAccounts(req.Accounts)
	if err != nil {
		return SyncOutcome{}, err
	}
	dr, err := s.dateRange(req)
	if err != nil {
		return SyncOutcome{}, err
	}
	policy, cutoff := s.defaults.Policy, s.defaults.BackfillCutoff
	if req.Policy != "" {
		if policy, err = reconcile.ParsePolicy(req.Policy); err != nil {
			return SyncOutcome{}, fmt.Errorf("%w: %w", flex.ErrValidation, err)
		}
		// backfill ignores the policy, so an explicit one turns it off
		cutoff = 0
	}

	select {
	case s.running <- struct{}{}:
		defer func() { <-s.running }()
	default:
		return SyncOutcome{}, ErrSyncInProgress
	}

	out := SyncOutcome{RunID: uuid.NewString(), Range: &dr}
	out.Results, err = s.syncer.Run(ctx, accts, ingestion.Options{
		Report:         s.defaults.Report,
		Range:          &dr,
		Parallel:       s.defaults.Parallel,
		CacheDir:       s.defaults.CacheDir,
		Policy:         policy,
		BackfillCutoff: cutoff,
		RunID:          out.RunID,
		Now:            s.now,
	})
	return out, err
}

func (s *syncService) selectAccounts(ids []string) ([]config.Account, error) {
	if len(ids) == 0 {
		if len(s.accounts) == 0 {
			return nil, fmt.Errorf("%w: no accounts configured", flex.ErrValidation)
		}
		return s.accounts, nil
	}
	cfg := config.Config{Accounts: s.accounts}
	out := make([]config.Account, 0, len(ids))
	for _, id := range ids {
		a, ok := cfg.FindAccount(id)
		if !ok {
			return nil, fmt.Errorf("%w: unknown account %q", flex.ErrValidation, id)
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *syncService) dateRange(req SyncRequest) (flex.DateRange, error) {
	switch {
	case req.From != nil && req.To != nil:
		return flex.NewDateRange(*req.From, *req.To)
	case req.From != nil || req.To != nil:
		return flex.DateRange{}, fmt.Errorf("%w: from and to must be given together", flex.ErrValidation)
	}
	days := req.Days
	if days <= 0 {
		days = ingestion.DefaultDays
	}
	return ingestion.DefaultRange(days, s.now())
}
