// internal/trade/trade.go
package trade

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/raydium-sniper/internal/blockchain"
	"github.com/rovshanmuradov/raydium-sniper/internal/dex/raydium"
	"github.com/rovshanmuradov/raydium-sniper/internal/events"
	"github.com/rovshanmuradov/raydium-sniper/internal/metrics"
	"github.com/rovshanmuradov/raydium-sniper/internal/store"
	"github.com/rovshanmuradov/raydium-sniper/internal/wallet"
	"go.uber.org/zap"
)

// Publisher receives trade outcome events.
type Publisher interface {
	Publish(event events.Event) error
}

// Config holds the trading parameters shared by buys and sells.
type Config struct {
	Quote raydium.QuoteToken
	// QuoteAmount is the raw quote amount spent per buy.
	QuoteAmount uint64
	// QuoteTokenAccount is the wallet account holding the quote token.
	QuoteTokenAccount solana.PublicKey

	ComputeUnitPrice uint64
	ComputeUnitLimit uint32

	// PollInterval is the confirmation polling period.
	PollInterval time.Duration
	// SellRetryWait is how long a sell waits once for a missing token account.
	SellRetryWait time.Duration
}

// Deps are the collaborators of the executors.
type Deps struct {
	Client    blockchain.Client
	Wallet    *wallet.Wallet
	Store     *store.Store
	Publisher Publisher
	Metrics   *metrics.Collector
	Logger    *zap.Logger
}

func (c Config) computeBudget() []solana.Instruction {
	price, limit := c.ComputeUnitPrice, c.ComputeUnitLimit
	if price == 0 {
		price = raydium.DefaultComputeUnitPrice
	}
	if limit == 0 {
		limit = raydium.DefaultComputeUnitLimit
	}
	return raydium.ComputeBudgetInstructions(limit, price)
}

func publish(p Publisher, logger *zap.Logger, e events.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(e); err != nil {
		logger.Debug("Failed to publish event", zap.String("event_type", string(e.Type())), zap.Error(err))
	}
}
