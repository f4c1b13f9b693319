// internal/trade/buy.go
package trade

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/rovshanmuradov/raydium-sniper/internal/dex/raydium"
	"github.com/rovshanmuradov/raydium-sniper/internal/events"
	"github.com/rovshanmuradov/raydium-sniper/internal/store"
	"go.uber.org/zap"
)

// Buyer swaps the quote token into the base token of a new pool.
type Buyer struct {
	Deps
	cfg Config
	tx  *submitter
	now func() time.Time
}

func NewBuyer(deps Deps, cfg Config) *Buyer {
	logger := deps.Logger.Named("buyer")
	deps.Logger = logger
	return &Buyer{
		Deps: deps,
		cfg:  cfg,
		tx: &submitter{
			client:       deps.Client,
			wallet:       deps.Wallet,
			pollInterval: cfg.PollInterval,
			logger:       logger,
		},
		now: time.Now,
	}
}

// Buy spends the configured quote amount on the pool's base token. A
// Position is stored only after the transaction is confirmed. Failed or
// expired buys are not retried.
func (b *Buyer) Buy(ctx context.Context, poolID solana.PublicKey, state *raydium.LiquidityStateV4) (*store.Position, error) {
	mint := state.BaseMint
	unlock := b.Store.LockMint(mint)
	defer unlock()

	if _, ok := b.Store.Get(mint); ok {
		return nil, store.ErrPositionExists
	}

	tradeID := uuid.New().String()
	logger := b.Logger.With(
		zap.String("trade_id", tradeID),
		zap.String("mint", mint.String()),
		zap.String("pool", poolID.String()))

	pos, err := b.buy(ctx, logger, poolID, state)
	if err != nil {
		logger.Error("Buy failed", zap.Error(err))
		ev := events.TradeEvent{
			BaseEvent: events.NewBase(events.BuyFailed),
			TradeID:   tradeID,
			Mint:      mint,
			PoolID:    poolID,
			Amount:    b.cfg.QuoteAmount,
			Err:       err,
		}
		var txErr *TxError
		if errors.As(err, &txErr) {
			ev.Signature = txErr.Signature
		}
		publish(b.Publisher, logger, ev)
		return nil, err
	}

	logger.Info("Buy confirmed",
		zap.String("signature", pos.BuySignature.String()),
		zap.Uint64("tokens", pos.TokensReceived),
		zap.String("price", pos.BuyPrice.String()))
	publish(b.Publisher, logger, events.TradeEvent{
		BaseEvent: events.NewBase(events.BuyConfirmed),
		TradeID:   tradeID,
		Mint:      mint,
		PoolID:    poolID,
		Signature: pos.BuySignature,
		Amount:    pos.TokensReceived,
		Price:     pos.BuyPrice,
	})
	return pos, nil
}

func (b *Buyer) buy(ctx context.Context, logger *zap.Logger, poolID solana.PublicKey, state *raydium.LiquidityStateV4) (*store.Position, error) {
	mint := state.BaseMint

	market, err := b.market(ctx, mint, state.MarketID)
	if err != nil {
		return nil, &TxError{Op: "buy", Mint: mint, Err: err}
	}

	keys, err := raydium.NewPoolKeys(poolID, state, market.Info)
	if err != nil {
		return nil, &TxError{Op: "buy", Mint: mint, Err: err}
	}

	ataIx, err := b.Wallet.CreateAssociatedTokenAccountIdempotentInstruction(mint)
	if err != nil {
		return nil, &TxError{Op: "buy", Mint: mint, Err: err}
	}
	swapIx, err := raydium.NewSwapBaseInInstruction(raydium.SwapParams{
		Keys:        keys,
		Owner:       b.Wallet.PublicKey,
		SourceToken: b.cfg.QuoteTokenAccount,
		DestToken:   market.TokenAccount,
		AmountIn:    b.cfg.QuoteAmount,
	})
	if err != nil {
		return nil, &TxError{Op: "buy", Mint: mint, Err: err}
	}

	ixs := append(b.cfg.computeBudget(), ataIx, swapIx)

	start := b.now()
	sig, err := b.tx.submit(ctx, ixs)
	b.Metrics.RecordTransaction("buy", b.now().Sub(start), err == nil)
	if err != nil {
		return nil, &TxError{Op: "buy", Mint: mint, Signature: sig, Err: err}
	}

	received := b.tokensReceived(ctx, logger, mint)
	pos := store.Position{
		Mint:           mint,
		TokenAccount:   market.TokenAccount,
		PoolID:         poolID,
		PoolKeys:       keys,
		BuyPrice:       raydium.RawPrice(new(big.Int).SetUint64(b.cfg.QuoteAmount), new(big.Int).SetUint64(received)),
		QuoteSpent:     b.cfg.QuoteAmount,
		TokensReceived: received,
		BuySignature:   sig,
		BoughtAt:       b.now(),
	}
	if err := b.Store.Put(pos); err != nil {
		return nil, &TxError{Op: "buy", Mint: mint, Signature: sig, Err: err}
	}
	b.Metrics.SetOpenPositions(b.Store.Len())
	return &pos, nil
}

// market returns the cached market of mint, fetching and caching it together
// with the wallet token account on first use.
func (b *Buyer) market(ctx context.Context, mint, marketID solana.PublicKey) (store.MarketEntry, error) {
	if e, ok := b.Store.MarketInfo(mint); ok && e.Info != nil {
		return e, nil
	}

	data, err := b.Client.GetAccountData(ctx, marketID)
	if err != nil {
		return store.MarketEntry{}, fmt.Errorf("fetch market %s: %w", marketID, err)
	}
	info, err := raydium.DecodeMarketV3(data)
	if err != nil {
		return store.MarketEntry{}, err
	}
	ata, err := b.Wallet.GetATA(mint)
	if err != nil {
		return store.MarketEntry{}, fmt.Errorf("derive token account: %w", err)
	}

	b.Store.PutMarketInfo(mint, info, ata)
	return store.MarketEntry{Info: info, TokenAccount: ata}, nil
}

// tokensReceived returns the wallet balance of mint after the buy. A failed
// query is logged and counted as zero.
func (b *Buyer) tokensReceived(ctx context.Context, logger *zap.Logger, mint solana.PublicKey) uint64 {
	accounts, err := b.Client.GetTokenAccountsByOwner(ctx, b.Wallet.PublicKey, &mint)
	if err != nil {
		logger.Warn("Failed to query balance after buy", zap.Error(err))
		return 0
	}
	var total uint64
	for _, a := range accounts {
		total += a.Amount
	}
	return total
}
