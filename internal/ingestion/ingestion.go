package ingestion

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/guttosm/flexsync/config"
	"github.com/guttosm/flexsync/internal/domain/models"
	"github.com/guttosm/flexsync/internal/flex"
	"github.com/guttosm/flexsync/internal/logger"
	"github.com/guttosm/flexsync/internal/reconcile"
	"github.com/guttosm/flexsync/internal/storage"
)

const (
	DefaultReport = "trades"
	DefaultDays   = 5
	cacheFileFmt  = "flex_report_%s_%d.xml"
)

// repoCtor is an indirection for creating the repository; tests can override this.
var repoCtor = func(db *sql.DB) storage.TradesRepository {
	return storage.NewTradesRepository(db)
}

// Fetcher retrieves a Flex statement payload. *flex.Client satisfies it.
type Fetcher interface {
	FetchReport(ctx context.Context, token, queryID string, dr *flex.DateRange) ([]byte, error)
}

// TokenSource hands out a non-expired token for an account.
type TokenSource interface {
	ValidToken(accountID string) (string, error)
}

// Options tunes one sync run.
//   - Report: key into each account's query_ids (default "trades").
//   - Range: statement window; nil leaves the query's own period in effect.
//   - Parallel: max accounts in flight; 0 means one worker per account.
//   - Cache: write each fetched payload under CacheDir.
//   - LoadPath: read the statement from this XML file instead of the Flex service.
//   - BackfillCutoff: when positive, realtime rows older than the cutoff are dropped
//     and settlement rows always win; Policy is ignored.
type Options struct {
	Report         string
	Range          *flex.DateRange
	Parallel       int
	Cache          bool
	CacheDir       string
	LoadPath       string
	Policy         reconcile.Policy
	BackfillCutoff time.Duration
	RunID          string
	Now            func() time.Time
}

// Result is the outcome of syncing one account.
type Result struct {
	AccountID          string
	QueryID            string
	Trades             int
	Realtime           int
	Settlement         int
	Upserted           int64
	CachePath          string
	ValidationFailures []string
	Elapsed            time.Duration
	Err                error
}

// Syncer runs the fetch → reconcile → persist pipeline per account.
type Syncer struct {
	fetcher Fetcher
	tokens  TokenSource
	repo    storage.TradesRepository
}

func NewSyncer(repo storage.TradesRepository, fetcher Fetcher, tokens TokenSource) *Syncer {
	return &Syncer{fetcher: fetcher, tokens: tokens, repo: repo}
}

// SyncAccounts builds a Syncer on db and runs it.
func SyncAccounts(ctx context.Context, db *sql.DB, fetcher Fetcher, tokens TokenSource, accounts []config.Account, opts Options) ([]Result, error) {
	// use indirection to allow tests to swap repository constructor
	return NewSyncer(repoCtor(db), fetcher, tokens).Run(ctx, accounts, opts)
}

// Run syncs every account concurrently. A failing account does not stop the
// others; its error is kept on its Result and all failures are joined into
// the returned error. Results follow the order of accounts.
func (s *Syncer) Run(ctx context.Context, accounts []config.Account, opts Options) ([]Result, error) {
	if opts.Report == "" {
		opts.Report = DefaultReport
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if _, err := reconcile.ParsePolicy(string(opts.Policy)); err != nil {
		return nil, fmt.Errorf("%w: %w", flex.ErrValidation, err)
	}

	maxParallel := len(accounts)
	if opts.Parallel > 0 && opts.Parallel < maxParallel {
		maxParallel = opts.Parallel
	}
	if maxParallel < 1 {
		return nil, nil
	}

	logger.L().Info().
		Str("run_id", opts.RunID).
		Int("accounts", len(accounts)).
		Int("max_parallel", maxParallel).
		Str("report", opts.Report).
		Msg("sync start")

	results := make([]Result, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, maxParallel)

	for i, acct := range accounts {
		i, acct := i, acct
		select {
		case sem <- struct{}{}:
		case <-gctx.Done():
			results[i] = Result{AccountID: acct.AccountID, Err: gctx.Err()}
			continue
		}

		g.Go(func() error {
			defer func() { <-sem }()
			results[i] = s.syncAccount(gctx, acct, opts)
			// only cancellation stops the siblings
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return nil
		})
	}

	waitErr := g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("account %s: %w", r.AccountID, r.Err))
		}
	}
	if waitErr != nil && len(errs) == 0 {
		errs = append(errs, waitErr)
	}

	logger.L().Info().
		Str("run_id", opts.RunID).
		Int("accounts", len(accounts)).
		Int("failed", len(errs)).
		Msg("sync done")
	return results, errors.Join(errs...)
}

func (s *Syncer) syncAccount(ctx context.Context, acct config.Account, opts Options) Result {
	start := time.Now()
	log := logger.ForAccount(acct.AccountID)
	res := Result{AccountID: acct.AccountID, QueryID: acct.QueryID(opts.Report)}

	res.Err = s.fetchAndStore(ctx, acct, opts, &res)
	res.Elapsed = time.Since(start)

	entry := models.FetchLog{
		RunID:     opts.RunID,
		AccountID: acct.AccountID,
		QueryID:   res.QueryID,
		Trades:    res.Trades,
		Status:    models.FetchOK,
		FetchedAt: opts.Now().UTC(),
	}
	if opts.Range != nil {
		from, to := opts.Range.From(), opts.Range.To()
		entry.FromDate, entry.ToDate = &from, &to
	}
	if res.Err != nil {
		entry.Status = models.FetchFailed
		entry.Error = res.Err.Error()
		log.Error().Err(res.Err).Dur("elapsed", res.Elapsed).Msg("account sync failed")
	} else {
		log.Info().
			Int("trades", res.Trades).
			Int64("upserted", res.Upserted).
			Dur("elapsed", res.Elapsed).
			Msg("account sync done")
	}

	// the fetch log must be written even when the run was cancelled
	if err := s.repo.RecordFetch(context.WithoutCancel(ctx), entry); err != nil {
		log.Error().Err(err).Msg("record fetch log failed")
		if res.Err == nil {
			res.Err = fmt.Errorf("record fetch log: %w", err)
		}
	}
	return res
}

func (s *Syncer) fetchAndStore(ctx context.Context, acct config.Account, opts Options, res *Result) error {
	payload, err := s.statementPayload(ctx, acct, opts, res)
	if err != nil {
		return err
	}

	st, err := flex.ParseStatement(payload)
	if err != nil {
		return err
	}
	settlement := reconcile.TableFromRecords(st.TradesByAccount()[acct.AccountID])

	realtime, err := loadRealtime(acct)
	if err != nil {
		return err
	}

	out, err := reconcile.Unify(realtime, settlement, reconcile.Options{
		Policy:         opts.Policy,
		BackfillCutoff: opts.BackfillCutoff,
		Validate:       true,
		Now:            opts.Now,
	})
	if err != nil {
		return err
	}
	res.Trades, res.Realtime, res.Settlement = len(out.Trades), out.Realtime, out.Settlement
	if out.Report != nil {
		res.ValidationFailures = out.Report.Failed()
	}

	// only prefer-settlement protects rows that have already settled
	write := s.repo.UpsertTrades
	if p, _ := reconcile.ParsePolicy(string(opts.Policy)); p != reconcile.PreferSettlement && opts.BackfillCutoff <= 0 {
		write = s.repo.OverwriteTrades
	}
	n, err := write(ctx, out.Trades)
	if err != nil {
		return fmt.Errorf("persist trades: %w", err)
	}
	res.Upserted = n
	return nil
}

// statementPayload loads the statement from disk when LoadPath is set and
// otherwise fetches it, caching the raw XML when asked to.
func (s *Syncer) statementPayload(ctx context.Context, acct config.Account, opts Options, res *Result) ([]byte, error) {
	if opts.LoadPath != "" {
		payload, err := os.ReadFile(opts.LoadPath)
		if err != nil {
			return nil, fmt.Errorf("load cached statement: %w", err)
		}
		return payload, nil
	}

	if res.QueryID == "" {
		return nil, fmt.Errorf("%w: no %q query id configured", flex.ErrValidation, opts.Report)
	}
	tok, err := s.tokens.ValidToken(acct.AccountID)
	if err != nil {
		return nil, err
	}
	payload, err := s.fetcher.FetchReport(ctx, tok, res.QueryID, opts.Range)
	if err != nil {
		return nil, err
	}

	if opts.Cache {
		path, err := writeCache(opts.CacheDir, acct.AccountID, payload, opts.Now())
		if err != nil {
			return nil, err
		}
		res.CachePath = path
	}
	return payload, nil
}

func writeCache(dir, accountID string, payload []byte, now time.Time) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf(cacheFileFmt, accountID, now.Unix()))
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return "", fmt.Errorf("write cached statement: %w", err)
	}
	logger.L().Debug().Str("path", path).Msg("statement cached")
	return path, nil
}

// loadRealtime reads the account's realtime execution export, if configured,
// keeping only rows of this account when the file carries several.
func loadRealtime(acct config.Account) (*reconcile.Table, error) {
	if acct.RealtimePath == "" {
		return nil, nil
	}
	f, err := os.Open(acct.RealtimePath)
	if errors.Is(err, os.ErrNotExist) {
		logger.L().Warn().Str("account", acct.AccountID).Str("path", acct.RealtimePath).Msg("realtime file not found")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := reconcile.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("realtime %s: %w", acct.RealtimePath, err)
	}
	rows := t.Rows[:0]
	for _, row := range t.Rows {
		if v, _ := row["account"].(string); v == "" || v == acct.AccountID {
			rows = append(rows, row)
		}
	}
	t.Rows = rows
	return t, nil
}
