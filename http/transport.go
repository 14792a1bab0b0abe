package http

import (
	"context"
	"crypto/tls"
	"io"
	"math"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/fwojciec/dirgeo"
)

// RetryConfig controls how RetryTransport retries failed requests.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BackoffFactor scales the exponential delay. The first retry is
	// immediate; retry n waits BackoffFactor * 2^(n-1).
	BackoffFactor time.Duration

	// BackoffMax caps a single delay.
	BackoffMax time.Duration

	// StatusForcelist holds the response codes that are retried.
	StatusForcelist []int
}

// DefaultRetryConfig returns 5 retries with a 1s factor on 502, 503 and 504.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      5,
		BackoffFactor:   1 * time.Second,
		BackoffMax:      120 * time.Second,
		StatusForcelist: []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
	}
}

// Backoff returns the delay before retry n (1-based).
func (c RetryConfig) Backoff(n int) time.Duration {
	if n <= 1 {
		return 0
	}
	d := time.Duration(float64(c.BackoffFactor) * math.Pow(2, float64(n-1)))
	if c.BackoffMax > 0 && d > c.BackoffMax {
		d = c.BackoffMax
	}
	return d
}

// LogFunc is the signature for a logging function.
type LogFunc func(format string, args ...any)

var _ http.RoundTripper = (*RetryTransport)(nil)

// RetryTransport retries transport errors and forcelisted statuses with
// exponential backoff. After the budget is spent it returns an
// EUNAVAILABLE error instead of the last response.
type RetryTransport struct {
	next   http.RoundTripper
	config RetryConfig
	logger LogFunc
}

// NewRetryTransport wraps next with the retry policy in config.
// A nil next uses http.DefaultTransport. The logger, if provided, is
// called before each retry.
func NewRetryTransport(next http.RoundTripper, config RetryConfig, logger LogFunc) *RetryTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &RetryTransport{next: next, config: config, logger: logger}
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	for attempt := 0; ; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			req.Body = body
		}

		resp, err := t.next.RoundTrip(req)
		if !t.shouldRetry(ctx, req, resp, err) {
			return resp, err
		}

		if attempt >= t.config.MaxRetries {
			if err != nil {
				return nil, dirgeo.Errorf(dirgeo.EUNAVAILABLE, "giving up on %s after %d retries: %v", req.URL.Redacted(), attempt, err)
			}
			drain(resp)
			return nil, dirgeo.Errorf(dirgeo.EUNAVAILABLE, "giving up on %s after %d retries: HTTP %d", req.URL.Redacted(), attempt, resp.StatusCode)
		}

		delay := t.config.Backoff(attempt + 1)
		if resp != nil {
			if ra, ok := retryAfter(resp); ok {
				delay = ra
			}
			if t.logger != nil {
				t.logger("retry %s (attempt %d): HTTP %d", req.URL.Redacted(), attempt+2, resp.StatusCode)
			}
			drain(resp)
		} else if t.logger != nil {
			t.logger("retry %s (attempt %d): %v", req.URL.Redacted(), attempt+2, err)
		}

		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (t *RetryTransport) shouldRetry(ctx context.Context, req *http.Request, resp *http.Response, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	// A consumed body without GetBody cannot be replayed.
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return false
	}
	if err != nil {
		return true
	}
	return slices.Contains(t.config.StatusForcelist, resp.StatusCode)
}

// retryAfter honors a Retry-After header given in seconds on 503 and 429.
func retryAfter(resp *http.Response) (time.Duration, bool) {
	if resp.StatusCode != http.StatusServiceUnavailable && resp.StatusCode != http.StatusTooManyRequests {
		return 0, false
	}
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NewBaseTransport returns a clone of http.DefaultTransport.
//
// A positive attemptTimeout bounds the wait for response headers of each
// single attempt, so a RetryTransport on top keeps its full retry budget.
// Use it instead of http.Client.Timeout, which spans every retry.
//
// With insecureSkipVerify set, server certificates are not verified. This is
// a deliberate weakening for endpoints with broken chains and must be
// requested explicitly by the caller.
func NewBaseTransport(insecureSkipVerify bool, attemptTimeout time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if attemptTimeout > 0 {
		t.ResponseHeaderTimeout = attemptTimeout
	}
	if insecureSkipVerify {
		if t.TLSClientConfig == nil {
			t.TLSClientConfig = &tls.Config{}
		}
		t.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec // opt-in via --insecure-skip-verify
	}
	return t
}
