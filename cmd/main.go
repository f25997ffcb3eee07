package main

//
//  @title           flexsync API
//  @version         1.0
//  @description     IBKR Flex statement sync, token administration and unified trade queries.
//  @termsOfService  https://github.com/guttosm/flexsync
//  @contact.name    API Support
//  @contact.url     https://github.com/guttosm/flexsync
//  @contact.email   support@example.com
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        tokens
//  @tag.description Flex Web Service token registration and status
//
//  @tag.name        trades
//  @tag.description Reconciled trades persisted by the sync pipeline
//
//  @tag.name        sync
//  @tag.description Statement fetch, reconcile and persist runs
//
//  @tag.name        health
//  @tag.description Liveness and readiness probes

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/guttosm/flexsync/config"
	_ "github.com/guttosm/flexsync/docs" // swagger docs
	"github.com/guttosm/flexsync/internal/app"
	"github.com/guttosm/flexsync/internal/flex"
	"github.com/guttosm/flexsync/internal/ingestion"
	"github.com/guttosm/flexsync/internal/logger"
	"github.com/guttosm/flexsync/internal/reconcile"
	"github.com/guttosm/flexsync/internal/service"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
//
// Parameters:
//   - router (http.Handler): The HTTP router (Gin Engine) configured with all routes.
//   - port (string): The port where the server will listen for incoming requests.
//
// Returns:
//   - *http.Server: The initialized HTTP server instance.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown gracefully terminates the HTTP server and cleans up resources
// when an OS interrupt signal (SIGINT, SIGTERM) is received.
//
// Parameters:
//   - ctx (context.Context): A context with timeout for graceful shutdown.
//   - server (*http.Server): The HTTP server instance to shut down.
//   - cleanup (func()): Cleanup callback to release resources (e.g., DB connections).
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatal().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// syncFlags are the --mode sync options.
type syncFlags struct {
	report   string
	days     int
	from     string
	to       string
	accounts string
	parallel int
	cache    bool
	load     string
	policy   string
}

// syncPlan resolves syncFlags against the configuration: the accounts to
// run and the ingestion options. now anchors the default date range.
func syncPlan(cfg config.Config, f syncFlags, now time.Time) ([]config.Account, ingestion.Options, error) {
	opts := ingestion.Options{
		Report:         f.report,
		Parallel:       f.parallel,
		Cache:          f.cache,
		CacheDir:       cfg.Sync.CacheDir,
		LoadPath:       f.load,
		BackfillCutoff: cfg.Reconcile.BackfillCutoff,
		RunID:          uuid.NewString(),
	}
	if opts.Parallel == 0 {
		opts.Parallel = cfg.Sync.Parallel
	}

	policy := cfg.Reconcile.Policy
	if f.policy != "" {
		// backfill ignores the policy, so an explicit one turns it off
		policy, opts.BackfillCutoff = f.policy, 0
	}
	p, err := reconcile.ParsePolicy(policy)
	if err != nil {
		return nil, opts, err
	}
	opts.Policy = p

	switch {
	case f.from != "" && f.to != "":
		from, err := time.Parse(time.DateOnly, f.from)
		if err != nil {
			return nil, opts, fmt.Errorf("--from: %w", err)
		}
		to, err := time.Parse(time.DateOnly, f.to)
		if err != nil {
			return nil, opts, fmt.Errorf("--to: %w", err)
		}
		dr, err := flex.NewDateRange(from, to)
		if err != nil {
			return nil, opts, err
		}
		opts.Range = &dr
	case f.from != "" || f.to != "":
		return nil, opts, errors.New("--from and --to must be given together")
	case f.load == "":
		dr, err := ingestion.DefaultRange(f.days, now)
		if err != nil {
			return nil, opts, err
		}
		opts.Range = &dr
	}

	accounts := cfg.Accounts
	if strings.TrimSpace(f.accounts) != "" {
		accounts = nil
		for _, id := range strings.Split(f.accounts, ",") {
			a, ok := cfg.FindAccount(strings.TrimSpace(id))
			if !ok {
				return nil, opts, fmt.Errorf("unknown account %q", id)
			}
			accounts = append(accounts, a)
		}
	}
	if len(accounts) == 0 {
		return nil, opts, errors.New("no accounts configured (IB_JSON)")
	}
	return accounts, opts, nil
}

// runSync executes one sync run against the database and logs a line per account.
func runSync(ctx context.Context, cfg config.Config, f syncFlags) error {
	accounts, opts, err := syncPlan(cfg, f, time.Now())
	if err != nil {
		return err
	}

	db, err := app.InitPostgres(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	tokens := app.NewTokenService(ctx, cfg)
	defer app.FlushAlerts()
	log := logger.L().With().Str("run_id", opts.RunID).Logger()
	if opts.Range != nil {
		log = log.With().Str("range", opts.Range.String()).Logger()
	}
	log.Info().Int("accounts", len(accounts)).Str("policy", string(opts.Policy)).Msg("running sync")

	results, err := ingestion.SyncAccounts(ctx, db, app.NewFlexClient(cfg), tokens, accounts, opts)
	for _, r := range results {
		ev := log.Info()
		if r.Err != nil {
			ev = log.Error().Err(r.Err)
		}
		ev.Str("account", r.AccountID).
			Int("trades", r.Trades).
			Int("realtime", r.Realtime).
			Int("settlement", r.Settlement).
			Int64("upserted", r.Upserted).
			Strs("validation_failures", r.ValidationFailures).
			Dur("elapsed", r.Elapsed).
			Msg("account synced")
	}
	return err
}

// printTokens writes the token status report as indented JSON.
func printTokens(w io.Writer, svc service.TokenService) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(svc.Status(context.Background()))
}

// main is the entry point of the flexsync application.
//
// Modes (selected via --mode flag):
//   - sync:   Fetches Flex statements for the configured accounts, reconciles
//     them with realtime executions and persists the unified trades.
//   - api:    Starts the REST API (tokens, trades, sync trigger).
//   - tokens: Prints the token status report as JSON.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration from environment or .env file
	config.LoadConfig()

	// Initialize JSON logger
	logger.Init()

	var sf syncFlags
	mode := flag.String("mode", "sync", "Mode: sync, api or tokens")
	flag.StringVar(&sf.report, "report", ingestion.DefaultReport, "query_ids key of the Flex report to fetch")
	flag.IntVar(&sf.days, "days", ingestion.DefaultDays, "Number of last NYSE business days to request")
	flag.StringVar(&sf.from, "from", "", "Start date YYYY-MM-DD (requires --to)")
	flag.StringVar(&sf.to, "to", "", "End date YYYY-MM-DD (requires --from)")
	flag.StringVar(&sf.accounts, "accounts", "", "Comma separated account ids (default: all configured)")
	flag.IntVar(&sf.parallel, "parallel", 0, "Accounts synced concurrently (0 = SYNC_PARALLEL)")
	flag.BoolVar(&sf.cache, "cache", false, "Write fetched XML to STATEMENT_CACHE_DIR")
	flag.StringVar(&sf.load, "load", "", "Load the statement from an XML file instead of the Flex service")
	flag.StringVar(&sf.policy, "policy", "", "Dedup policy: prefer-settlement, prefer-realtime or keep-last")
	port := flag.String("port", config.AppConfig.Server.Port, "Port for API mode")
	flag.Parse()

	switch *mode {
	case "sync":
		if err := runSync(ctx, config.AppConfig, sf); err != nil {
			logger.L().Fatal().Err(err).Msg("sync failed")
		}
		logger.L().Info().Msg("sync completed successfully")

	case "api":
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, *port)
		gracefulShutdown(context.Background(), server, cleanup)

	case "tokens":
		// stdout carries the report
		logger.SetOutput(os.Stderr)
		if err := printTokens(os.Stdout, app.NewTokenService(ctx, config.AppConfig)); err != nil {
			logger.L().Fatal().Err(err).Msg("token report failed")
		}

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}
