package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	svcmetrics "MarketBrief/internal/service/metrics"
	xhttp "MarketBrief/pkg/http"
	applogger "MarketBrief/pkg/logger"
)

const userAgent = "MarketBrief/1.0"

// Waiter throttles outbound calls per key.
type Waiter interface {
	Wait(ctx context.Context, key string) error
}

// Options configures a provider client.
type Options struct {
	Name    string
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Retries int
	Backoff time.Duration
	Limiter Waiter
	Logger  *applogger.Logger
	// HTTPClient overrides the client built from Timeout, mostly for tests.
	HTTPClient *xhttp.Client
}

// Base provides a shared foundation for provider HTTP clients.
// It centralizes client construction, throttling and retried JSON requests.
type Base struct {
	name    string
	baseURL string
	apiKey  string
	retries int
	backoff time.Duration
	client  *xhttp.Client
	limiter Waiter
	log     *applogger.Logger
}

// NewBase builds an HTTP client with timeout and base URL from opts.
func NewBase(opts Options) *Base {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	client := opts.HTTPClient
	if client == nil {
		client = xhttp.NewClient(xhttp.WithTimeout(timeout), xhttp.WithUserAgent(userAgent))
	}
	l := opts.Logger
	if l == nil {
		l = applogger.Nop()
	}
	svcmetrics.Register()
	return &Base{
		name:    opts.Name,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		retries: opts.Retries,
		backoff: backoff,
		client:  client,
		limiter: opts.Limiter,
		log:     l.With(applogger.String("provider", opts.Name)),
	}
}

// Name returns the provider name used in logs and metrics.
func (b *Base) Name() string { return b.name }

// APIKey returns the configured credential.
func (b *Base) APIKey() string { return b.apiKey }

// Logger returns the provider-scoped logger.
func (b *Base) Logger() *applogger.Logger { return b.log }

// GetJSON sends a GET to path under baseURL and decodes JSON into dest.
func (b *Base) GetJSON(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	return b.do(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         b.baseURL + path,
		QueryParams: query,
	}, dest)
}

// PostJSON posts payload to path under baseURL and decodes JSON into dest.
func (b *Base) PostJSON(ctx context.Context, path string, headers map[string]string, payload, dest interface{}) error {
	h := map[string]string{"Content-Type": "application/json"}
	for k, v := range headers {
		h[k] = v
	}
	return b.do(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     b.baseURL + path,
		Headers: h,
		Body:    payload,
	}, dest)
}

// do performs the request with up to retries extra attempts for transient errors.
func (b *Base) do(ctx context.Context, opts *xhttp.RequestOptions, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("%s http client not initialized", b.name)
	}
	attempts := b.retries + 1
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 1; i <= attempts; i++ {
		if b.limiter != nil {
			if werr := b.limiter.Wait(ctx, b.name); werr != nil {
				return werr
			}
		}
		err = b.client.SendAndParse(ctx, opts, dest)
		svcmetrics.ProviderAttempts.WithLabelValues(b.name, svcmetrics.CodeLabel(statusCode(err))).Inc()
		if err == nil {
			return nil
		}
		if !xhttp.IsRetryable(err) || i == attempts {
			break
		}
		svcmetrics.ProviderRetries.WithLabelValues(b.name).Inc()
		b.log.Debug("retrying provider request", applogger.Int("attempt", i), applogger.Error(err))
		select {
		case <-time.After(time.Duration(i) * b.backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s %s: %w", b.name, trimQuery(opts.URL), err)
}

func statusCode(err error) int {
	if err == nil {
		return 200
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

func trimQuery(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}
