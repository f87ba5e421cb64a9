// Package util provides shared utility functions for hugefs.
package util

import (
	"errors"
	"io/fs"

	"github.com/avast/retry-go/v4"
)

// CreateThenReopenOptions returns retry options for the open fallback used by
// update-mode opens: the first attempt opens an existing file, and if it does
// not exist create is run once before the single retry.
// A create failure is kept in *createErr so the retried open can report it.
func CreateThenReopenOptions(create func() error, createErr *error) []retry.Option {
	return []retry.Option{
		retry.Attempts(2),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsNotExist),
		retry.OnRetry(func(attempt uint, _ error) {
			// retry-go also calls OnRetry after the final attempt
			if attempt == 0 {
				*createErr = create()
			}
		}),
	}
}

// Retry executes fn with retry logic.
// Returns the last error if all attempts fail.
func Retry(fn func() error, opts ...retry.Option) error {
	return retry.Do(fn, opts...)
}

// RetryWithResult executes fn with retry logic and returns the result.
func RetryWithResult[T any](fn func() (T, error), opts ...retry.Option) (T, error) {
	return retry.DoWithData(fn, opts...)
}

// Common retry predicates

// IsNotExist returns true if the error indicates a missing file.
func IsNotExist(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, fs.ErrNotExist)
}
