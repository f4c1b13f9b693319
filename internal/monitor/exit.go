// internal/monitor/exit.go
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/raydium-sniper/internal/blockchain"
	"github.com/rovshanmuradov/raydium-sniper/internal/dex/raydium"
	"github.com/rovshanmuradov/raydium-sniper/internal/metrics"
	"github.com/rovshanmuradov/raydium-sniper/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceMode selects how the live price of a pool is computed.
type PriceMode string

const (
	// PriceModeReserves prices from vault balances, in the same unit as the
	// entry price.
	PriceModeReserves PriceMode = "reserves"
	// PriceModeSwapCounters uses the cumulative swap counters of the pool.
	PriceModeSwapCounters PriceMode = "swap_counters"
)

// Exit reasons.
const (
	ReasonTakeProfit = "take_profit"
	ReasonStopLoss   = "stop_loss"
	ReasonUnpriced   = "unpriced"
)

const defaultCheckTimeout = 10 * time.Second

var errUnexpectedAccounts = errors.New("unexpected number of accounts")

// Seller sells a held mint.
type Seller interface {
	Sell(ctx context.Context, mint solana.PublicKey) error
}

// ExitConfig configures the exit rules.
type ExitConfig struct {
	Interval   time.Duration
	TakeProfit decimal.Decimal // fraction, 0.5 = +50%
	StopLoss   decimal.Decimal // fraction, 0.2 = -20%
	PriceMode  PriceMode
	// AutoSellDelay skips positions younger than this.
	AutoSellDelay time.Duration
	// MaxSellRetries stops triggering a position after that many failed
	// sells. Zero means unlimited.
	MaxSellRetries int
	CheckTimeout   time.Duration
}

type sellResult struct {
	mint   solana.PublicKey
	reason string
	err    error
}

// ExitMonitor periodically prices open positions and sells those that cross
// the take-profit or stop-loss threshold.
type ExitMonitor struct {
	client  blockchain.Client
	store   *store.Store
	seller  Seller
	cfg     ExitConfig
	metrics *metrics.Collector
	logger  *zap.Logger
	now     func() time.Time

	results chan sellResult
}

func NewExitMonitor(client blockchain.Client, st *store.Store, seller Seller, cfg ExitConfig, m *metrics.Collector, logger *zap.Logger) *ExitMonitor {
	if cfg.PriceMode == "" {
		cfg.PriceMode = PriceModeReserves
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = defaultCheckTimeout
	}
	return &ExitMonitor{
		client:  client,
		store:   st,
		seller:  seller,
		cfg:     cfg,
		metrics: m,
		logger:  logger.Named("exit_monitor"),
		now:     time.Now,
		results: make(chan sellResult, 64),
	}
}

// Run checks positions every Interval until ctx is cancelled.
func (m *ExitMonitor) Run(ctx context.Context) error {
	m.logger.Info("Starting exit monitor",
		zap.Duration("interval", m.cfg.Interval),
		zap.String("take_profit", m.cfg.TakeProfit.String()),
		zap.String("stop_loss", m.cfg.StopLoss.String()),
		zap.String("price_mode", string(m.cfg.PriceMode)))
	if m.cfg.PriceMode == PriceModeSwapCounters {
		m.logger.Warn("swap_counters price mode does not track the spot price; exits may trigger late or never")
	}

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("Exit monitor stopped")
			return nil
		case r := <-m.results:
			m.handleResult(r)
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

func (m *ExitMonitor) handleResult(r sellResult) {
	m.store.ClearPendingSell(r.mint)
	if r.err != nil {
		m.logger.Warn("Exit sell failed",
			zap.String("mint", r.mint.String()),
			zap.String("reason", r.reason),
			zap.Error(r.err))
		return
	}
	m.logger.Info("Exit sell done", zap.String("mint", r.mint.String()), zap.String("reason", r.reason))
}

// Check runs one pass over the open positions. Errors for one position do
// not stop the pass.
func (m *ExitMonitor) Check(ctx context.Context) {
	for _, pos := range m.store.Positions() {
		if ctx.Err() != nil {
			return
		}
		if !m.eligible(pos) {
			continue
		}

		reason, err := m.evaluate(ctx, pos)
		if err != nil {
			m.logger.Warn("Failed to price position", zap.String("mint", pos.Mint.String()), zap.Error(err))
			continue
		}
		if reason == "" {
			continue
		}
		m.trigger(ctx, pos, reason)
	}
}

func (m *ExitMonitor) eligible(pos store.Position) bool {
	if pos.PoolKeys == nil || m.store.IsPendingSell(pos.Mint) {
		return false
	}
	if m.cfg.AutoSellDelay > 0 && m.now().Sub(pos.BoughtAt) < m.cfg.AutoSellDelay {
		return false
	}
	if m.cfg.MaxSellRetries > 0 && pos.FailedSells >= m.cfg.MaxSellRetries {
		return false
	}
	return true
}

// evaluate returns the exit reason for pos, or "" to keep holding.
func (m *ExitMonitor) evaluate(ctx context.Context, pos store.Position) (string, error) {
	// Без цены входа пороги не имеют смысла.
	if pos.BuyPrice.Sign() <= 0 {
		return ReasonUnpriced, nil
	}

	checkCtx, cancel := context.WithTimeout(ctx, m.cfg.CheckTimeout)
	defer cancel()

	price, err := m.livePrice(checkCtx, pos.PoolKeys)
	if err != nil {
		return "", err
	}

	one := decimal.NewFromInt(1)
	takeProfit := pos.BuyPrice.Mul(one.Add(m.cfg.TakeProfit))
	stopLoss := pos.BuyPrice.Mul(one.Sub(m.cfg.StopLoss))

	m.logger.Debug("Position priced",
		zap.String("mint", pos.Mint.String()),
		zap.String("price", price.String()),
		zap.String("buy_price", pos.BuyPrice.String()))

	switch {
	case price.GreaterThanOrEqual(takeProfit):
		return ReasonTakeProfit, nil
	case price.LessThanOrEqual(stopLoss):
		return ReasonStopLoss, nil
	}
	return "", nil
}

func (m *ExitMonitor) livePrice(ctx context.Context, keys *raydium.PoolKeys) (decimal.Decimal, error) {
	data, err := m.client.GetMultipleAccountsData(ctx, []solana.PublicKey{keys.ID, keys.BaseVault, keys.QuoteVault})
	if err != nil {
		return decimal.Zero, err
	}
	if len(data) != 3 {
		return decimal.Zero, fmt.Errorf("%w: got %d", errUnexpectedAccounts, len(data))
	}

	if m.cfg.PriceMode == PriceModeSwapCounters {
		if data[0] == nil {
			return decimal.Zero, fmt.Errorf("pool %s: %w", keys.ID, blockchain.ErrAccountNotFound)
		}
		state, err := raydium.DecodeLiquidityStateV4(data[0])
		if err != nil {
			return decimal.Zero, err
		}
		return state.SwapCounterPrice(), nil
	}

	if data[1] == nil || data[2] == nil {
		return decimal.Zero, fmt.Errorf("pool %s vaults: %w", keys.ID, blockchain.ErrAccountNotFound)
	}
	base, err := raydium.DecodeTokenAccount(data[1])
	if err != nil {
		return decimal.Zero, err
	}
	quote, err := raydium.DecodeTokenAccount(data[2])
	if err != nil {
		return decimal.Zero, err
	}
	return raydium.ReservePrice(base.Amount, quote.Amount), nil
}

// trigger marks the position pending and sells it on its own goroutine. The
// outcome comes back over the results channel, which clears the mark.
func (m *ExitMonitor) trigger(ctx context.Context, pos store.Position, reason string) {
	if !m.store.MarkPendingSell(pos.Mint) {
		return
	}
	m.metrics.ExitTriggered(reason)
	m.logger.Info("Exit triggered",
		zap.String("mint", pos.Mint.String()),
		zap.String("reason", reason))

	go func() {
		err := m.seller.Sell(ctx, pos.Mint)
		select {
		case m.results <- sellResult{mint: pos.Mint, reason: reason, err: err}:
		case <-ctx.Done():
			m.store.ClearPendingSell(pos.Mint)
		}
	}()
}
