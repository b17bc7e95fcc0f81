package chatwoot

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamFetch matches every fatal helpdesk call failure.
	ErrUpstreamFetch = errors.New("upstream fetch failed")

	// ErrMissingCredentials is returned when URL, account or token is empty.
	ErrMissingCredentials = errors.New("chatwoot url, token and account id are required")
)

// FetchError is a failed helpdesk call: a non-2xx status after retries, a
// timeout or a transport error.
type FetchError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode > 0:
		return fmt.Sprintf("%s: %s: chatwoot responded %d: %s", ErrUpstreamFetch, e.Op, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", ErrUpstreamFetch, e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", ErrUpstreamFetch, e.Op)
	}
}

// Is lets errors.Is(err, ErrUpstreamFetch) match any FetchError.
func (e *FetchError) Is(target error) bool {
	return target == ErrUpstreamFetch
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
