package main

import (
	"context"
	"time"
)

// retryOn runs fn up to tries times, sleeping delay after each failure,
// and returns the first success or the last error.  watch uses it to
// ride out an acme-styles service that is not yet posted.
func retryOn[T any](ctx context.Context, tries int, delay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	v, err := fn()
	for n := 1; err != nil && n < tries; n++ {
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, ctx.Err()
		case <-t.C:
		}
		v, err = fn()
	}
	if err != nil {
		return zero, err
	}
	return v, nil
}
