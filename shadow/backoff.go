// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package shadow

import (
	"context"
	"math"
	"time"
)

// BackoffPolicy returns the wait before the poll that follows the retry-th fetch.
type BackoffPolicy func(retry uint) time.Duration

// Exponential returns base * 2^retry, capped at limit. A zero limit disables the cap.
func Exponential(base, limit time.Duration) BackoffPolicy {
	return func(retry uint) time.Duration {
		d := base
		for i := uint(0); i < retry; i++ {
			if d > math.MaxInt64/2 {
				d = math.MaxInt64
				break
			}
			d *= 2
			if limit > 0 && d >= limit {
				return limit
			}
		}
		if limit > 0 && d > limit {
			return limit
		}
		return d
	}
}

// sleep waits for d or until ctx is done.
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
