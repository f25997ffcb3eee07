package flex

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://ndcdyn.interactivebrokers.com/AccountManagement/FlexWebService"
	DefaultUserAgent = "flexsync/1.0"
	DefaultTimeout   = 30 * time.Second

	apiVersion = "3"
)

// Transport performs the two raw Flex Web Service calls and returns the
// response bodies untouched.
type Transport interface {
	SendRequest(ctx context.Context, token, queryID string, dr *DateRange) ([]byte, error)
	GetStatement(ctx context.Context, token, referenceCode string) ([]byte, error)
}

// HTTPConfig configures HTTPTransport. Zero values fall back to the defaults above.
// RatePerSecond paces outgoing calls; zero disables pacing.
type HTTPConfig struct {
	BaseURL       string
	UserAgent     string
	Timeout       time.Duration
	RatePerSecond float64
	HTTPClient    *http.Client
}

// HTTPTransport talks to the provider over HTTPS.
type HTTPTransport struct {
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
}

var _ Transport = (*HTTPTransport)(nil)

func NewHTTPTransport(cfg HTTPConfig) *HTTPTransport {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	t := &HTTPTransport{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		client:    client,
	}
	if cfg.RatePerSecond > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return t
}

// SendRequest calls SendRequest with t, q, v and, for a range, fd and td, in that order.
func (t *HTTPTransport) SendRequest(ctx context.Context, token, queryID string, dr *DateRange) ([]byte, error) {
	params := query{{"t", token}, {"q", queryID}, {"v", apiVersion}}
	if dr != nil {
		fd, td := dr.QueryParams()
		params = append(params, param{"fd", fd}, param{"td", td})
	}
	return t.get(ctx, "SendRequest", params)
}

// GetStatement calls GetStatement with t, q (the reference code) and v.
func (t *HTTPTransport) GetStatement(ctx context.Context, token, referenceCode string) ([]byte, error) {
	return t.get(ctx, "GetStatement", query{{"t", token}, {"q", referenceCode}, {"v", apiVersion}})
}

type param struct{ key, value string }

// query keeps parameter order; url.Values.Encode sorts keys.
type query []param

func (q query) encode() string {
	var b strings.Builder
	for i, p := range q {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

func (t *HTTPTransport) get(ctx context.Context, endpoint string, params query) ([]byte, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: rate limiter: %w", endpoint, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/"+endpoint+"?"+params.encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: building request: %w", endpoint, err)
	}
	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		// url.Error carries the full URL including the token
		if ue, ok := err.(*url.Error); ok {
			err = ue.Err
		}
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: reading body: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: unexpected HTTP status %d", endpoint, resp.StatusCode)
	}
	return body, nil
}
