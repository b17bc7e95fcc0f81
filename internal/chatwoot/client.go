// Package chatwoot is a client for the helpdesk REST API: paginated
// conversation and message fetches with rate-limit backoff, directory
// lookups, reports and outgoing replies.
package chatwoot

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/capitalize-ai/supportbot-workspace/pkg/logger"
)

// Credentials identify one helpdesk account.
type Credentials struct {
	BaseURL   string
	AccountID string
	Token     string
}

// Complete reports whether every field is set.
func (c Credentials) Complete() bool {
	return c.BaseURL != "" && c.AccountID != "" && c.Token != ""
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// JitterFunc returns a random duration in [0, max).
type JitterFunc func(max time.Duration) time.Duration

// Client talks to one helpdesk account.
type Client struct {
	http   *resty.Client
	creds  Credentials
	policy RetryPolicy
	cache  *DirectoryCache
	log    *logger.Logger
	sleep  SleepFunc
	jitter JitterFunc
}

// Option configures a Client.
type Option func(*Client)

// WithPolicy overrides the retry policy.
func WithPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.policy = p }
}

// WithCache shares a directory cache between clients.
func WithCache(cache *DirectoryCache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithLogger sets the client logger.
func WithLogger(log *logger.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithSleep replaces the backoff sleeper. Tests use it to record delays.
func WithSleep(fn SleepFunc) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithJitter replaces the jitter source.
func WithJitter(fn JitterFunc) Option {
	return func(c *Client) { c.jitter = fn }
}

// New builds a client for creds.
func New(creds Credentials, opts ...Option) (*Client, error) {
	creds.BaseURL = strings.TrimRight(strings.TrimSpace(creds.BaseURL), "/")
	if !creds.Complete() {
		return nil, ErrMissingCredentials
	}

	c := &Client{
		creds:  creds,
		policy: DefaultRetryPolicy(),
		log:    logger.Global(),
		sleep:  sleepContext,
		jitter: randomJitter,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http = resty.New().
		SetBaseURL(creds.BaseURL).
		SetHeader("api_access_token", creds.Token).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "supportbot-workspace/1.0")

	return c, nil
}

// Credentials returns the account this client talks to.
func (c *Client) Credentials() Credentials {
	return c.creds
}

func (c *Client) accountPath(format string, args ...any) string {
	return fmt.Sprintf("/api/v1/accounts/%s", c.creds.AccountID) + fmt.Sprintf(format, args...)
}

func (c *Client) reportsPath(format string, args ...any) string {
	return fmt.Sprintf("/api/v2/accounts/%s", c.creds.AccountID) + fmt.Sprintf(format, args...)
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

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}

// decode parses a response body into a generic JSON value. Numbers stay
// float64 so ids and epoch timestamps behave like the helpdesk's JS clients.
func decode(resp *resty.Response) (any, error) {
	body := resp.Body()
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return v, nil
}

// objects converts a decoded JSON array into records, skipping non-objects.
func objects(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// payloadList returns the first non-empty array found under the given keys
// of a decoded object, or the value itself when it is already an array.
func payloadList(v any, keys ...string) []map[string]any {
	if list := objects(v); list != nil {
		return list
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	for _, k := range keys {
		if list := objects(m[k]); len(list) > 0 {
			return list
		}
	}
	return nil
}
