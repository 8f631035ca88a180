// Package retry implements the bounded fixed-delay retry policy applied to
// every blocking exchange call. Only transport-class failures are retried;
// business errors pass straight through to the caller.
package retry

import (
	"context"
	"time"

	"github.com/jpillora/backoff"

	"retradeBot/internal/ports"
)

// Config bounds one retry loop. The delay is fixed between attempts.
type Config struct {
	Attempts int
	Delay    time.Duration
}

// DefaultConfig mirrors the live-trading policy: a handful of attempts with a
// constant pause, scoped to the single blocking call, never the whole cycle.
var DefaultConfig = Config{Attempts: 5, Delay: 30 * time.Second}

// Do runs fn, retrying when it reports a transport failure. The last error is
// returned once the attempt budget is spent or the context is canceled.
func Do(ctx context.Context, cfg Config, fn func(context.Context) error) error {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	b := &backoff.Backoff{Min: cfg.Delay, Max: cfg.Delay, Factor: 1}

	var err error
	for attempt := 0; attempt < cfg.Attempts; attempt++ {
		err = fn(ctx)
		if err == nil || !ports.IsTransport(err) {
			return err
		}
		if attempt == cfg.Attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.Duration()):
		}
	}
	return err
}
