package birdeye

import (
	"errors"
	"fmt"
	"time"
)

// TransientError covers failures worth retrying: network errors, timeouts,
// upstream 5xx responses and bodies that cannot be decoded.
type TransientError struct {
	Endpoint string
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure on %s: %v", e.Endpoint, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// RateLimitError signals an upstream 429. The client has already slept the
// grown backoff interval by the time the caller sees this; retrying does not
// consume a transient attempt.
type RateLimitError struct {
	Endpoint string
	Backoff  time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited on %s, backoff %s", e.Endpoint, e.Backoff)
}

// FatalError marks a response that retrying cannot fix: a non-retryable 4xx
// status or a decoded envelope with success=false.
type FatalError struct {
	Endpoint string
	Status   int
	Reason   string
}

func (e *FatalError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fatal failure on %s: status %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("fatal failure on %s: %s", e.Endpoint, e.Reason)
}

// IsTransient reports whether err is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsRateLimit reports whether err is a RateLimitError.
func IsRateLimit(err error) bool {
	var re *RateLimitError
	return errors.As(err, &re)
}

// IsFatal reports whether err is a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
