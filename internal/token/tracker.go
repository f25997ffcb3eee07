// Package token tracks the lifetime of Flex Web Service tokens per account.
//
// Tokens are issued outside this process and cannot be refreshed; the Tracker
// only records when each one was registered, reports how long it has left and
// fires callbacks when it is about to expire or already has. A Tracker is not
// safe for concurrent use; callers sharing one across goroutines must
// serialise access themselves.
package token

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/guttosm/flexsync/internal/flex"
	"github.com/guttosm/flexsync/internal/logger"
)

const (
	DefaultTTL        = 6 * time.Hour
	DefaultWarnWindow = 30 * time.Minute
)

var (
	// ErrNotRegistered is returned for accounts without a token. It is a token error.
	ErrNotRegistered = fmt.Errorf("%w: account not registered", flex.ErrToken)
	ErrInvalidInput  = errors.New("token: token and account id are required")
)

// Info describes one registered token.
type Info struct {
	Token     string
	AccountID string
	CreatedAt time.Time
	TTL       time.Duration
	ExpiresAt time.Time
}

// Masked returns the token with everything but its first and last four characters hidden.
func (i Info) Masked() string { return Mask(i.Token) }

func (i Info) IsExpired(now time.Time) bool { return !now.Before(i.ExpiresAt) }

func (i Info) MinutesRemaining(now time.Time) float64 {
	return i.ExpiresAt.Sub(now).Minutes()
}

// IsExpiringSoon reports whether the token has not expired yet but will within window.
func (i Info) IsExpiringSoon(now time.Time, window time.Duration) bool {
	left := i.MinutesRemaining(now)
	return left > 0 && left <= window.Minutes()
}

// Mask hides a secret for logging.
func Mask(tok string) string {
	if len(tok) <= 8 {
		return "****"
	}
	return tok[:4] + "..." + tok[len(tok)-4:]
}

// Callback receives the account and a copy of its token info.
type Callback func(accountID string, info Info)

// Config configures a Tracker. Zero durations use the defaults; Now defaults to time.Now.
type Config struct {
	TTL            time.Duration
	WarnWindow     time.Duration
	OnExpiringSoon Callback
	OnExpired      Callback
	Now            func() time.Time
}

// Status is a read-only snapshot of one account's token.
type Status struct {
	Valid            bool      `json:"is_valid"`
	ExpiringSoon     bool      `json:"is_expiring_soon"`
	MinutesRemaining float64   `json:"minutes_remaining"`
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
	MaskedToken      string    `json:"token"`
}

// Tracker owns the token map and the set of accounts already warned about
// imminent expiry.
type Tracker struct {
	cfg    Config
	tokens map[string]*Info
	warned map[string]struct{}
}

func NewTracker(cfg Config) *Tracker {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.WarnWindow <= 0 {
		cfg.WarnWindow = DefaultWarnWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Tracker{
		cfg:    cfg,
		tokens: make(map[string]*Info),
		warned: make(map[string]struct{}),
	}
}

// Register stores tok for accountID as issued now, replacing any previous
// token and clearing the account's warned flag.
func (t *Tracker) Register(tok, accountID string) (Info, error) {
	return t.RegisterAt(tok, accountID, t.cfg.Now())
}

// RegisterAt is Register with an explicit issuance time.
func (t *Tracker) RegisterAt(tok, accountID string, createdAt time.Time) (Info, error) {
	if strings.TrimSpace(tok) == "" || strings.TrimSpace(accountID) == "" {
		return Info{}, ErrInvalidInput
	}
	info := &Info{
		Token:     tok,
		AccountID: accountID,
		CreatedAt: createdAt,
		TTL:       t.cfg.TTL,
		ExpiresAt: createdAt.Add(t.cfg.TTL),
	}
	t.tokens[accountID] = info
	delete(t.warned, accountID)

	logger.L().Info().
		Str("account", accountID).
		Str("token", info.Masked()).
		Time("expires_at", info.ExpiresAt).
		Msg("flex token registered")
	return *info, nil
}

// SetExpiresAt overrides the expiry of a registered token.
func (t *Tracker) SetExpiresAt(accountID string, at time.Time) error {
	info, ok := t.tokens[accountID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, accountID)
	}
	info.ExpiresAt = at
	return nil
}

// ValidToken returns the account's token if it has not expired. An expired
// token fires OnExpired before the error is returned. The first call inside
// the warning window fires OnExpiringSoon; later calls do not until the
// token is registered again.
func (t *Tracker) ValidToken(accountID string) (string, error) {
	info, ok := t.tokens[accountID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotRegistered, accountID)
	}

	now := t.cfg.Now()
	if info.IsExpired(now) {
		logger.L().Error().
			Str("account", accountID).
			Time("expired_at", info.ExpiresAt).
			Msg("flex token expired")
		if t.cfg.OnExpired != nil {
			t.cfg.OnExpired(accountID, *info)
		}
		return "", fmt.Errorf("%w: account %s, expired at %s", flex.ErrTokenExpired, accountID, info.ExpiresAt.Format(time.RFC3339))
	}

	if info.IsExpiringSoon(now, t.cfg.WarnWindow) {
		if _, done := t.warned[accountID]; !done {
			t.warned[accountID] = struct{}{}
			logger.L().Warn().
				Str("account", accountID).
				Float64("minutes_remaining", info.MinutesRemaining(now)).
				Msg("flex token expiring soon")
			if t.cfg.OnExpiringSoon != nil {
				t.cfg.OnExpiringSoon(accountID, *info)
			}
		}
	}
	return info.Token, nil
}

func (t *Tracker) IsValid(accountID string) bool {
	info, ok := t.tokens[accountID]
	return ok && !info.IsExpired(t.cfg.Now())
}

func (t *Tracker) IsExpiringSoon(accountID string) bool {
	info, ok := t.tokens[accountID]
	return ok && info.IsExpiringSoon(t.cfg.Now(), t.cfg.WarnWindow)
}

// Info returns a copy of the account's token info.
func (t *Tracker) Info(accountID string) (Info, bool) {
	info, ok := t.tokens[accountID]
	if !ok {
		return Info{}, false
	}
	return *info, true
}

// Remove drops the account's token and reports whether one existed.
func (t *Tracker) Remove(accountID string) bool {
	if _, ok := t.tokens[accountID]; !ok {
		return false
	}
	delete(t.tokens, accountID)
	delete(t.warned, accountID)
	logger.L().Info().Str("account", accountID).Msg("flex token removed")
	return true
}

// Clear drops every token and returns how many there were.
func (t *Tracker) Clear() int {
	n := len(t.tokens)
	t.tokens = make(map[string]*Info)
	t.warned = make(map[string]struct{})
	return n
}

// Accounts lists registered account ids in sorted order.
func (t *Tracker) Accounts() []string {
	ids := make([]string, 0, len(t.tokens))
	for id := range t.tokens {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StatusReport snapshots every registered token. It never fires callbacks.
func (t *Tracker) StatusReport() map[string]Status {
	now := t.cfg.Now()
	out := make(map[string]Status, len(t.tokens))
	for id, info := range t.tokens {
		out[id] = Status{
			Valid:            !info.IsExpired(now),
			ExpiringSoon:     info.IsExpiringSoon(now, t.cfg.WarnWindow),
			MinutesRemaining: info.MinutesRemaining(now),
			ExpiresAt:        info.ExpiresAt,
			CreatedAt:        info.CreatedAt,
			MaskedToken:      info.Masked(),
		}
	}
	return out
}
