package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error describes a failed request against the publisher's site. The
// Transient flag drives every retry decision in this package and in the
// backfill orchestrator: rate limiting and server hiccups are worth
// retrying, a missing document is not.
type Error struct {
	URL        string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransient reports whether a retry could plausibly succeed.
// Anything that is not a fetch error is assumed permanent.
func IsTransient(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Transient
	}
	return false
}

// transientStatus classifies HTTP status codes: 429 and the 5xx family
// are retryable, every other non-200 is permanent.
func transientStatus(code int) bool {
	return code == 429 || (code >= 500 && code < 600)
}

// transientNetErr classifies transport-level failures. Timeouts and
// connection problems are retryable; a canceled context means the
// caller gave up and retrying would be wrong.
func transientNetErr(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
