// internal/listener/reconnect.go
package listener

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rovshanmuradov/raydium-sniper/internal/metrics"
	"go.uber.org/zap"
)

// healthySession is how long a stream must stay up before the reconnect
// delay starts again from its initial interval.
const healthySession = 30 * time.Second

func newReconnectBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	return b
}

// keepAlive runs session until ctx is cancelled, re-running it after each
// failure with exponential delay.
func keepAlive(ctx context.Context, stream string, b backoff.BackOff, m *metrics.Collector, logger *zap.Logger, session func(context.Context) error) error {
	for {
		started := time.Now()
		err := session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if time.Since(started) > healthySession {
			b.Reset()
		}

		delay := b.NextBackOff()
		logger.Warn("Subscription lost, reconnecting",
			zap.String("stream", stream),
			zap.Duration("backoff", delay),
			zap.Error(err))
		m.Reconnected(stream)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}
