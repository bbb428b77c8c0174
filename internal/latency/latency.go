// Package latency simulates backend round-trips for screens that fake a
// loading state. Waits are bound to a context so a cancelled request stops
// waiting immediately.
package latency

import (
	"context"
	"time"
)

// Wait blocks for d or until ctx is done, whichever comes first. It returns
// ctx.Err() when the context ends the wait.
func Wait(ctx context.Context, d time.Duration) error {
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
