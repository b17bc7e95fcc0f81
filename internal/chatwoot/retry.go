package chatwoot

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/capitalize-ai/supportbot-workspace/pkg/metrics"
)

// RetryPolicy controls timeouts, transport retries and 429 backoff.
type RetryPolicy struct {
	// Timeout is the first attempt's budget; each read timeout adds
	// TimeoutStep up to MaxTimeout.
	Timeout     time.Duration
	TimeoutStep time.Duration
	MaxTimeout  time.Duration
	// Retries is the number of extra attempts after a timeout or transport
	// failure. The pause before retry n is 1s+n.
	Retries int
	// RateLimitRetries is the number of extra attempts after HTTP 429.
	RateLimitRetries int
	// BaseDelay is doubled per 429 when no Retry-After header is sent.
	BaseDelay time.Duration
	MaxJitter time.Duration
}

// DefaultRetryPolicy mirrors the helpdesk's documented rate limits.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Timeout:          25 * time.Second,
		TimeoutStep:      10 * time.Second,
		MaxTimeout:       60 * time.Second,
		Retries:          2,
		RateLimitRetries: 3,
		BaseDelay:        1500 * time.Millisecond,
		MaxJitter:        300 * time.Millisecond,
	}
}

// getWithBackoff performs a GET, backing off on 429. When the rate-limit
// retries are exhausted the last 429 response is returned for the caller to
// turn into an error.
func (c *Client) getWithBackoff(ctx context.Context, endpoint, path string, params map[string]string) (*resty.Response, error) {
	var resp *resty.Response
	for attempt := 0; attempt <= c.policy.RateLimitRetries; attempt++ {
		var err error
		resp, err = c.getWithRetry(ctx, endpoint, path, params)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() != http.StatusTooManyRequests {
			return resp, nil
		}
		if attempt == c.policy.RateLimitRetries {
			break
		}

		delay := c.rateLimitDelay(resp, attempt)
		metrics.RecordRetry(endpoint, "rate_limit")
		c.log.Debug("chatwoot rate limited",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (c *Client) rateLimitDelay(resp *resty.Response, attempt int) time.Duration {
	delay := time.Duration(float64(c.policy.BaseDelay) * math.Pow(2, float64(attempt)))
	if ra := strings.TrimSpace(resp.Header().Get("Retry-After")); ra != "" {
		if secs, err := strconv.ParseFloat(ra, 64); err == nil && secs >= 0 {
			delay = time.Duration(secs * float64(time.Second))
		}
	}
	return delay + c.jitter(c.policy.MaxJitter)
}

// getWithRetry performs a GET, retrying timeouts with a growing budget and
// other transport failures with a short pause. HTTP statuses are returned
// untouched.
func (c *Client) getWithRetry(ctx context.Context, endpoint, path string, params map[string]string) (*resty.Response, error) {
	timeout := c.policy.Timeout
	var lastErr error
	for attempt := 0; attempt <= c.policy.Retries; attempt++ {
		resp, err := c.getOnce(ctx, path, params, timeout)
		if err == nil {
			metrics.RecordUpstream(endpoint, strconv.Itoa(resp.StatusCode()))
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		reason := "transport"
		if isTimeout(err) {
			reason = "timeout"
		}
		metrics.RecordUpstream(endpoint, reason)
		if attempt == c.policy.Retries {
			break
		}

		metrics.RecordRetry(endpoint, reason)
		c.log.Warn("chatwoot request failed, retrying",
			zap.String("endpoint", endpoint),
			zap.String("reason", reason),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if err := c.sleep(ctx, time.Second+time.Duration(attempt)*time.Second); err != nil {
			return nil, err
		}
		if reason == "timeout" {
			timeout += c.policy.TimeoutStep
			if timeout > c.policy.MaxTimeout {
				timeout = c.policy.MaxTimeout
			}
		}
	}
	return nil, lastErr
}

func (c *Client) getOnce(ctx context.Context, path string, params map[string]string, timeout time.Duration) (*resty.Response, error) {
	attemptCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.http.R().
		SetContext(attemptCtx).
		SetQueryParams(params).
		Get(path)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// checkStatus turns a >=400 response into a FetchError.
func checkStatus(op string, resp *resty.Response) error {
	if resp.StatusCode() < 400 {
		return nil
	}
	return &FetchError{
		Op:         op,
		StatusCode: resp.StatusCode(),
		Body:       truncate(resp.String(), 200),
	}
}
