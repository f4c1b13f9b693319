// internal/listener/burn.go
package listener

import (
	"context"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v5"
	"github.com/rovshanmuradov/raydium-sniper/internal/blockchain"
	"github.com/rovshanmuradov/raydium-sniper/internal/dex/raydium"
	"github.com/rovshanmuradov/raydium-sniper/internal/events"
	"github.com/rovshanmuradov/raydium-sniper/internal/metrics"
	"go.uber.org/zap"
)

// EventPublisher is the part of the event bus the watchers need.
type EventPublisher interface {
	Publish(event events.Event) error
}

// BurnWatcher reports transactions touching the AMM authority whose logs
// contain an LP token burn.
type BurnWatcher struct {
	sub       blockchain.Subscriber
	publisher EventPublisher
	metrics   *metrics.Collector
	logger    *zap.Logger

	newBackOff func() backoff.BackOff
}

func NewBurnWatcher(sub blockchain.Subscriber, publisher EventPublisher, m *metrics.Collector, logger *zap.Logger) *BurnWatcher {
	return &BurnWatcher{
		sub:        sub,
		publisher:  publisher,
		metrics:    m,
		logger:     logger.Named("burn-watcher"),
		newBackOff: newReconnectBackOff,
	}
}

// Run watches until ctx is cancelled.
func (w *BurnWatcher) Run(ctx context.Context) error {
	authority, err := raydium.AmmAuthority()
	if err != nil {
		return fmt.Errorf("derive amm authority: %w", err)
	}

	return keepAlive(ctx, "lp-burns", w.newBackOff(), w.metrics, w.logger, func(ctx context.Context) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		stream, err := w.sub.SubscribeLogs(ctx, authority)
		if err != nil {
			return fmt.Errorf("subscribe to amm authority logs: %w", err)
		}
		defer stream.Close()

		for {
			n, err := stream.Recv(ctx)
			if err != nil {
				return fmt.Errorf("receive log notification: %w", err)
			}
			w.handle(n)
		}
	})
}

func (w *BurnWatcher) handle(n *blockchain.LogNotification) {
	if n.Err != nil || !containsBurn(n.Logs) {
		return
	}

	w.logger.Info("Liquidity burned", zap.String("signature", n.Signature.String()))
	if err := w.publisher.Publish(events.LiquidityBurnedEvent{
		BaseEvent: events.NewBase(events.LiquidityBurned),
		Signature: n.Signature,
	}); err != nil {
		w.logger.Debug("Failed to publish burn event", zap.Error(err))
	}
}

func containsBurn(logs []string) bool {
	for _, line := range logs {
		if strings.Contains(line, "Burn") {
			return true
		}
	}
	return false
}
