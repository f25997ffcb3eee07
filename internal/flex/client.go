package flex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/guttosm/flexsync/internal/logger"
)

// Defaults applied by NewClient to zero Config fields.
const (
	DefaultMaxRetries = 5
	DefaultBaseDelay  = 1 * time.Second
	DefaultMaxDelay   = 60 * time.Second
	DefaultPollDelay  = 2 * time.Second
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config holds the retry policy of a Client. Zero values fall back to the defaults.
// Rand and Sleep exist for deterministic tests.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	PollDelay  time.Duration
	Rand       *rand.Rand
	Sleep      SleepFunc
}

// Client drives the request, poll and fetch cycle against a Transport.
// Token errors and malformed responses stop immediately; every other failure,
// including fatal provider codes, is retried with capped exponential backoff
// and multiplicative jitter.
type Client struct {
	transport Transport
	cfg       Config

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

func NewClient(transport Transport, cfg Config) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.PollDelay < 0 {
		cfg.PollDelay = 0
	} else if cfg.PollDelay == 0 {
		cfg.PollDelay = DefaultPollDelay
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Client{transport: transport, cfg: cfg, rng: rng}
}

// SendRequest asks the provider to generate a statement and returns its reference code.
func (c *Client) SendRequest(ctx context.Context, token, queryID string, dr *DateRange) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: token is required", ErrValidation)
	}
	if strings.TrimSpace(queryID) == "" {
		return "", fmt.Errorf("%w: query id is required", ErrValidation)
	}

	var ref string
	err := c.retry(ctx, PhaseSendRequest, func(ctx context.Context) error {
		body, err := c.transport.SendRequest(ctx, token, queryID, dr)
		if err != nil {
			return err
		}
		out, err := ParseRequestResponse(body)
		if err != nil {
			return err
		}
		if !out.OK() {
			return newProviderError(PhaseSendRequest, out.Failure)
		}
		ref = out.ReferenceCode
		return nil
	})
	if err != nil {
		return "", err
	}

	logger.L().Debug().Str("query_id", queryID).Str("reference_code", ref).Msg("flex request accepted")
	return ref, nil
}

// GetStatement fetches a generated statement by reference code and returns it verbatim.
func (c *Client) GetStatement(ctx context.Context, token, referenceCode string) ([]byte, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: token is required", ErrValidation)
	}
	if strings.TrimSpace(referenceCode) == "" {
		return nil, fmt.Errorf("%w: reference code is required", ErrValidation)
	}

	var payload []byte
	err := c.retry(ctx, PhaseGetStatement, func(ctx context.Context) error {
		body, err := c.transport.GetStatement(ctx, token, referenceCode)
		if err != nil {
			return err
		}
		out, err := ParseStatementResponse(body)
		if err != nil {
			return err
		}
		if !out.OK() {
			return newProviderError(PhaseGetStatement, out.Failure)
		}
		payload = out.Payload
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// FetchReport runs SendRequest, waits the flat poll delay, then GetStatement.
// Errors from either phase are returned unchanged.
func (c *Client) FetchReport(ctx context.Context, token, queryID string, dr *DateRange) ([]byte, error) {
	ref, err := c.SendRequest(ctx, token, queryID, dr)
	if err != nil {
		return nil, err
	}
	if err := c.cfg.Sleep(ctx, c.cfg.PollDelay); err != nil {
		return nil, err
	}
	return c.GetStatement(ctx, token, ref)
}

func (c *Client) retry(ctx context.Context, phase Phase, call func(context.Context) error) error {
	var last error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", phase.terminal(), err)
		}

		err := call(ctx)
		if err == nil {
			return nil
		}

		var hint time.Duration
		var perr *ProviderError
		switch {
		case errors.As(err, &perr):
			switch perr.Class {
			case ClassTokenExpired, ClassTokenInvalid:
				return perr
			}
			// fatal and unknown codes share the retry budget without a hint
			hint = Classify(perr.Code).RetryHint
		case errors.Is(err, ErrParse):
			return fmt.Errorf("%w: %w", phase.terminal(), err)
		case ctx.Err() != nil:
			return fmt.Errorf("%w: %w", phase.terminal(), err)
		}

		last = err
		delay := c.backoff(attempt, hint)
		logger.L().Warn().
			Err(err).
			Str("phase", string(phase)).
			Int("attempt", attempt+1).
			Int("max_attempts", c.cfg.MaxRetries).
			Int64("delay_ms", delay.Milliseconds()).
			Msg("flex call failed, retrying")

		if attempt < c.cfg.MaxRetries-1 {
			if err := c.cfg.Sleep(ctx, delay); err != nil {
				return fmt.Errorf("%w: %w", phase.terminal(), err)
			}
		}
	}
	return fmt.Errorf("%w: failed after %d attempts: %w", phase.terminal(), c.cfg.MaxRetries, last)
}

// backoff returns min(base*2^attempt, max) scaled by a factor drawn from
// [0.5, 1.5). A provider hint larger than the configured base replaces it.
func (c *Client) backoff(attempt int, hint time.Duration) time.Duration {
	base := c.cfg.BaseDelay
	if hint > base {
		base = hint
	}
	delay := math.Min(float64(base)*math.Pow(2, float64(attempt)), float64(c.cfg.MaxDelay))

	c.mu.Lock()
	jitter := 0.5 + c.rng.Float64()
	c.mu.Unlock()

	return time.Duration(delay * jitter)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
