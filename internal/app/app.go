package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/flexsync/config"
	"github.com/guttosm/flexsync/internal/api"
	"github.com/guttosm/flexsync/internal/flex"
	"github.com/guttosm/flexsync/internal/ingestion"
	"github.com/guttosm/flexsync/internal/logger"
	"github.com/guttosm/flexsync/internal/notify"
	"github.com/guttosm/flexsync/internal/reconcile"
	"github.com/guttosm/flexsync/internal/service"
	"github.com/guttosm/flexsync/internal/storage"
	"github.com/guttosm/flexsync/internal/token"
)

const alertFlushTimeout = 10 * time.Second

// InitializeApp sets up all application dependencies and returns
// a fully configured Gin router, a cleanup function for graceful shutdown,
// and any error encountered during initialization.
//
// Responsibilities:
//   - Connects to PostgreSQL using InitPostgres().
//   - Builds the token service and registers the tokens found in IB_JSON.
//   - Builds the Flex client and the sync pipeline.
//   - Configures the Gin router with all API routes.
//   - Registers health and readiness probes.
//   - Provides a cleanup function to close resources (e.g., DB connection).
//
// Returns:
//   - *gin.Engine: the configured Gin HTTP router.
//   - func(): cleanup function to be executed on shutdown.
//   - error: any initialization error that occurred.
func InitializeApp() (*gin.Engine, func(), error) {
	cfg := config.AppConfig

	// indirection for unit testing
	db, err := postgresOpener(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	tokens := NewTokenService(context.Background(), cfg)
	repo := storage.NewTradesRepository(db)

	syncer := ingestion.NewSyncer(repo, NewFlexClient(cfg), tokens)
	syncSvc := service.NewSyncService(syncer, cfg.Accounts, SyncDefaults(cfg))

	handler := api.NewHandler(tokens, service.NewTradeService(repo), syncSvc)
	router := api.NewRouter(handler)

	api.NewHealthHandler(db.PingContext, tokens.Status).Register(router)

	cleanup := func() {
		FlushAlerts()
		_ = db.Close()
	}

	return router, cleanup, nil
}

// NewNotifier returns the expiry notifier: always the log, plus Telegram
// when TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are set.
func NewNotifier(cfg config.Config) notify.Notifier {
	if !cfg.Telegram.Enabled() {
		return notify.LogNotifier{}
	}
	return notify.Multi{notify.LogNotifier{}, notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)}
}

// NewTokenService builds the guarded tracker and loads the configured tokens.
func NewTokenService(ctx context.Context, cfg config.Config) service.TokenService {
	onSoon, onExpired := notify.ExpiryCallbacks(NewNotifier(cfg))
	svc := service.NewTokenService(token.NewTracker(token.Config{
		TTL:            cfg.Token.TTL,
		WarnWindow:     cfg.Token.WarnWindow,
		OnExpiringSoon: onSoon,
		OnExpired:      onExpired,
	}))
	n := service.RegisterConfigured(ctx, svc, cfg.Accounts)
	logger.L().Info().Int("tokens", n).Int("accounts", len(cfg.Accounts)).Msg("flex tokens loaded")
	return svc
}

// FlushAlerts waits a bounded time for token alerts still being delivered.
func FlushAlerts() {
	ctx, cancel := context.WithTimeout(context.Background(), alertFlushTimeout)
	defer cancel()
	if err := notify.Flush(ctx); err != nil {
		logger.L().Warn().Err(err).Msg("token alerts still pending at exit")
	}
}

// NewFlexClient builds the Flex Web Service client from FLEX_* settings.
func NewFlexClient(cfg config.Config) *flex.Client {
	transport := flex.NewHTTPTransport(flex.HTTPConfig{
		BaseURL:       cfg.Flex.BaseURL,
		UserAgent:     cfg.Flex.UserAgent,
		Timeout:       cfg.Flex.Timeout,
		RatePerSecond: cfg.Flex.RatePerSecond,
	})
	return flex.NewClient(transport, flex.Config{
		MaxRetries: cfg.Flex.MaxRetries,
		BaseDelay:  cfg.Flex.BaseDelay,
		MaxDelay:   cfg.Flex.MaxDelay,
		PollDelay:  cfg.Flex.PollDelay,
	})
}

// SyncDefaults maps SYNC_* and RECONCILE_* settings. The policy was
// validated at load time, so a parse error falls back to the default.
func SyncDefaults(cfg config.Config) service.SyncDefaults {
	policy, err := reconcile.ParsePolicy(cfg.Reconcile.Policy)
	if err != nil {
		policy = reconcile.PreferSettlement
	}
	return service.SyncDefaults{
		Report:         ingestion.DefaultReport,
		Parallel:       cfg.Sync.Parallel,
		CacheDir:       cfg.Sync.CacheDir,
		Policy:         policy,
		BackfillCutoff: cfg.Reconcile.BackfillCutoff,
	}
}
