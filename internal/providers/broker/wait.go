package broker

import (
	"context"
	"time"

	"k8s.io/utils/clock"
)

// sleepCtx blocks for d on clk or until ctx is done.
// Returns true if the sleep completed (context still alive).
func sleepCtx(ctx context.Context, clk clock.Clock, d time.Duration) bool {
	t := clk.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C():
		return true
	case <-ctx.Done():
		return false
	}
}
