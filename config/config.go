package config

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/guttosm/flexsync/internal/reconcile"
	"github.com/guttosm/flexsync/internal/token"
)

// Config holds the full application configuration loaded from environment variables or .env file.
//
// Example ENV equivalent:
//
//	SERVER_PORT=8080
//	POSTGRES_HOST=localhost
//	POSTGRES_DB=flexsync
//	FLEX_MAX_RETRIES=5
//	RECONCILE_POLICY=prefer-settlement
//	IB_JSON={"accounts":[{"name":"main","account_id":"U1234567","flex_token":"...","query_ids":{"trades":"123456"}}]}
type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Flex      FlexConfig
	Token     TokenConfig
	Reconcile ReconcileConfig
	Sync      SyncConfig
	Telegram  TelegramConfig
	Accounts  []Account
}

// ServerConfig holds HTTP server settings such as the port to listen on.
type ServerConfig struct {
	Port string
}

// PostgresConfig defines connection details for PostgreSQL.
// URL is the computed DSN used by database/sql.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string
}

// FlexConfig configures the Flex Web Service transport and retry policy.
type FlexConfig struct {
	BaseURL       string
	UserAgent     string
	Timeout       time.Duration
	MaxRetries    int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	PollDelay     time.Duration
	RatePerSecond float64
}

type TokenConfig struct {
	TTL        time.Duration
	WarnWindow time.Duration
}

type ReconcileConfig struct {
	Policy         string
	BackfillCutoff time.Duration
}

// SyncConfig tunes the multi-account pipeline. Parallel 0 means one worker per account.
type SyncConfig struct {
	Parallel int
	CacheDir string
}

// TelegramConfig enables expiry notifications when both fields are set.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

func (t TelegramConfig) Enabled() bool { return t.BotToken != "" && t.ChatID != "" }

// Account is one brokerage account entry of IB_JSON.
type Account struct {
	Name          string            `json:"name"`
	AccountID     string            `json:"account_id"`
	FlexToken     string            `json:"flex_token"`
	TokenIssuedAt *time.Time        `json:"token_issued_at,omitempty"`
	QueryIDs      map[string]string `json:"-"`
	RealtimePath  string            `json:"realtime_path,omitempty"`
}

// QueryID returns the Flex query id configured for a report name, or "".
func (a Account) QueryID(report string) string {
	return a.QueryIDs[strings.ToLower(report)]
}

// UnmarshalJSON accepts query ids written either as strings or numbers.
func (a *Account) UnmarshalJSON(data []byte) error {
	type plain Account
	var raw struct {
		plain
		QueryIDs map[string]any `json:"query_ids"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = Account(raw.plain)
	a.QueryIDs = make(map[string]string, len(raw.QueryIDs))
	for k, v := range raw.QueryIDs {
		s, err := cast.ToStringE(v)
		if err != nil {
			return fmt.Errorf("query_ids.%s: %w", k, err)
		}
		a.QueryIDs[strings.ToLower(k)] = s
	}
	return nil
}

// ParseAccounts decodes the IB_JSON document.
func ParseAccounts(raw string) ([]Account, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var doc struct {
		Accounts []Account `json:"accounts"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("parsing IB_JSON: %w", err)
	}
	for i, a := range doc.Accounts {
		if a.AccountID == "" {
			doc.Accounts[i].AccountID = a.Name
		}
	}
	return doc.Accounts, nil
}

// AppConfig is the globally accessible configuration instance.
//
// It is populated once via LoadConfig() and used throughout the application.
var AppConfig Config

// LoadConfig initializes the global AppConfig by reading from .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
//
// Fatal exit:
//   - If required variables are missing or invalid, validateConfig() terminates the app.
func LoadConfig() {
	viper.SetDefault("SERVER_PORT", "8080")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "flexsync")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	viper.SetDefault("FLEX_BASE_URL", "https://ndcdyn.interactivebrokers.com/AccountManagement/FlexWebService")
	viper.SetDefault("FLEX_USER_AGENT", "flexsync/1.0")
	viper.SetDefault("FLEX_TIMEOUT", "30s")
	viper.SetDefault("FLEX_MAX_RETRIES", 5)
	viper.SetDefault("FLEX_BASE_DELAY", "1s")
	viper.SetDefault("FLEX_MAX_DELAY", "60s")
	viper.SetDefault("FLEX_POLL_DELAY", "2s")
	viper.SetDefault("FLEX_RATE_PER_SEC", 1.0)

	viper.SetDefault("TOKEN_TTL", token.DefaultTTL.String())
	viper.SetDefault("TOKEN_WARN_WINDOW", token.DefaultWarnWindow.String())

	viper.SetDefault("RECONCILE_POLICY", string(reconcile.PreferSettlement))
	// backfill is opt-in; a zero cutoff merges strictly by policy
	viper.SetDefault("RECONCILE_BACKFILL_CUTOFF", "0s")

	viper.SetDefault("SYNC_PARALLEL", 0)
	viper.SetDefault("STATEMENT_CACHE_DIR", "data")

	viper.SetDefault("TELEGRAM_BOT_TOKEN", "")
	viper.SetDefault("TELEGRAM_CHAT_ID", "")
	viper.SetDefault("IB_JSON", `{"accounts":[]}`)

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	viper.AutomaticEnv()

	AppConfig = Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
		Flex: FlexConfig{
			BaseURL:       viper.GetString("FLEX_BASE_URL"),
			UserAgent:     viper.GetString("FLEX_USER_AGENT"),
			Timeout:       viper.GetDuration("FLEX_TIMEOUT"),
			MaxRetries:    viper.GetInt("FLEX_MAX_RETRIES"),
			BaseDelay:     viper.GetDuration("FLEX_BASE_DELAY"),
			MaxDelay:      viper.GetDuration("FLEX_MAX_DELAY"),
			PollDelay:     viper.GetDuration("FLEX_POLL_DELAY"),
			RatePerSecond: viper.GetFloat64("FLEX_RATE_PER_SEC"),
		},
		Token: TokenConfig{
			TTL:        viper.GetDuration("TOKEN_TTL"),
			WarnWindow: viper.GetDuration("TOKEN_WARN_WINDOW"),
		},
		Reconcile: ReconcileConfig{
			Policy:         viper.GetString("RECONCILE_POLICY"),
			BackfillCutoff: viper.GetDuration("RECONCILE_BACKFILL_CUTOFF"),
		},
		Sync: SyncConfig{
			Parallel: viper.GetInt("SYNC_PARALLEL"),
			CacheDir: viper.GetString("STATEMENT_CACHE_DIR"),
		},
		Telegram: TelegramConfig{
			BotToken: viper.GetString("TELEGRAM_BOT_TOKEN"),
			ChatID:   viper.GetString("TELEGRAM_CHAT_ID"),
		},
	}

	AppConfig.Postgres.URL = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		AppConfig.Postgres.User,
		AppConfig.Postgres.Password,
		AppConfig.Postgres.Host,
		AppConfig.Postgres.Port,
		AppConfig.Postgres.DBName,
		AppConfig.Postgres.SSLMode,
	)

	accounts, err := ParseAccounts(viper.GetString("IB_JSON"))
	if err != nil {
		log.Fatalf("invalid IB_JSON: %v", err)
	}
	AppConfig.Accounts = accounts

	validateConfig()
}

// validateConfig collects every missing or invalid setting and terminates
// the application when there is at least one.
func validateConfig() {
	var missing []string

	if AppConfig.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if AppConfig.Postgres.Host == "" {
		missing = append(missing, "POSTGRES_HOST")
	}
	if AppConfig.Postgres.Port == 0 {
		missing = append(missing, "POSTGRES_PORT")
	}
	if AppConfig.Postgres.User == "" {
		missing = append(missing, "POSTGRES_USER")
	}
	if AppConfig.Postgres.Password == "" {
		missing = append(missing, "POSTGRES_PASSWORD")
	}
	if AppConfig.Postgres.DBName == "" {
		missing = append(missing, "POSTGRES_DB")
	}
	if AppConfig.Flex.BaseURL == "" {
		missing = append(missing, "FLEX_BASE_URL")
	}
	if len(missing) > 0 {
		log.Fatalf("missing required environment variables: %v", missing)
	}

	if _, err := reconcile.ParsePolicy(AppConfig.Reconcile.Policy); err != nil {
		log.Fatalf("invalid RECONCILE_POLICY: %v", err)
	}
	for _, a := range AppConfig.Accounts {
		if a.AccountID == "" {
			log.Fatalf("IB_JSON: account entry without account_id or name")
		}
	}
}

// FindAccount returns the configured account with the given id.
func (c Config) FindAccount(accountID string) (Account, bool) {
	for _, a := range c.Accounts {
		if a.AccountID == accountID {
			return a, true
		}
	}
	return Account{}, false
}
