// internal/bot/runner.go
package bot

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Run loads the wallet and runs the pipeline until ctx is cancelled or a
// component fails. Registered services are closed before it returns.
func (b *Bot) Run(ctx context.Context) error {
	defer b.closeServices()

	quoteAccount, err := b.loadWallet(ctx)
	if err != nil {
		return err
	}
	b.setupTrading(quoteAccount)

	b.logger.Info("🚀 Sniper started",
		zap.String("quote", b.cfg.Quote.Symbol),
		zap.String("quote_amount", b.cfg.Quote.FromRaw(b.cfg.QuoteAmount).String()),
		zap.Bool("auto_sell", b.cfg.AutoSell),
		zap.Bool("snipe_list", b.cfg.UseSnipeList))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return b.listener.Run(gctx, b.handlePool)
	})
	if b.cfg.AutoSell {
		g.Go(func() error {
			return b.monitor.Run(gctx)
		})
	} else {
		b.logger.Info("Auto sell disabled, positions are held")
	}
	if b.snipeList != nil {
		g.Go(func() error {
			return b.snipeList.Run(gctx, b.cfg.SnipeListRefreshInterval)
		})
	}
	if b.burns != nil {
		g.Go(func() error {
			return b.burns.Run(gctx)
		})
	}
	if b.cfg.MetricsAddr != "" {
		g.Go(func() error {
			return b.metrics.Serve(gctx, b.cfg.MetricsAddr, b.logger)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	fields := []zap.Field{zap.Int("open_positions", b.store.Len())}
	if b.journal != nil {
		records, _ := b.journal.GetStats()
		fields = append(fields, zap.Uint64("journal_records", records))
	}
	b.logger.Info("👋 Sniper stopped", fields...)
	return err
}

func (b *Bot) closeServices() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := b.shutdown.Shutdown(ctx); err != nil {
		b.logger.Warn("Shutdown completed with errors", zap.Error(err))
	}
}
