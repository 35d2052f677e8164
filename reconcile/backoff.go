/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

package reconcile

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/pvandervelde/merge-warden/platform"
)

const (
	backoffBase    = 100 * time.Millisecond
	backoffMax     = 5 * time.Second
	backoffRetries = 3
)

// retry runs fn up to backoffRetries+1 times, retrying only on
// *platform.TransientError with jittered exponential backoff (spec
// §4.4/§7). No third-party backoff library in the corpus covers exactly
// this "3 retries, 100ms base, 5s cap, full jitter" shape standalone, so
// it is implemented directly over stdlib time/math/rand (see DESIGN.md).
func retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= backoffRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		var te *platform.TransientError
		if !errors.As(err, &te) {
			return err
		}
		if attempt == backoffRetries {
			break
		}

		wait := backoffFor(attempt, te.RetryAfter)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

func backoffFor(attempt int, retryAfterSeconds int) time.Duration {
	if retryAfterSeconds > 0 {
		d := time.Duration(retryAfterSeconds) * time.Second
		if d > backoffMax {
			return backoffMax
		}
		return d
	}
	d := backoffBase << attempt
	if d > backoffMax {
		d = backoffMax
	}
	return time.Duration(rand.Int64N(int64(d) + 1))
}
