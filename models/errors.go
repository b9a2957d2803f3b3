package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes remote collaborators can produce.
// Callers classify with errors.Is after unwrapping.
var (
	// ErrNoResult means a similarity query matched nothing; the query
	// pipeline signals it instead of returning an empty answer.
	ErrNoResult = errors.New("no matching documents in collection")

	// ErrRateLimited means the remote API asked us to back off.
	ErrRateLimited = errors.New("remote api rate limit exceeded")

	// ErrAuthentication means the remote API rejected our credentials.
	// Never retried.
	ErrAuthentication = errors.New("remote api authentication failed")

	// ErrTransient covers network failures and 5xx responses that are
	// worth retrying with backoff.
	ErrTransient = errors.New("transient remote api failure")
)

// ConfigError reports an invalid tunable, such as a non-positive chunk size.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// DimensionMismatchError reports a vector whose length disagrees with the
// collection's fixed dimension. Always a hard error, never retried.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: collection expects %d, got %d", e.Want, e.Got)
}

// Retryable reports whether err is worth retrying with backoff. Only
// transient network failures and rate limits qualify; authentication,
// configuration and dimension errors are permanent.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrRateLimited)
}
