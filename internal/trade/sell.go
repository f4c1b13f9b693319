// internal/trade/sell.go
package trade

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/rovshanmuradov/raydium-sniper/internal/blockchain"
	"github.com/rovshanmuradov/raydium-sniper/internal/dex/raydium"
	"github.com/rovshanmuradov/raydium-sniper/internal/events"
	"github.com/rovshanmuradov/raydium-sniper/internal/store"
	"go.uber.org/zap"
)

const (
	defaultSellRetryWait = time.Second
	// ReasonZeroBalance закрывает позицию без свопа.
	ReasonZeroBalance = "zero_balance"
)

// Seller swaps the full balance of a held token back into the quote token.
type Seller struct {
	Deps
	cfg Config
	tx  *submitter
	now func() time.Time
}

func NewSeller(deps Deps, cfg Config) *Seller {
	logger := deps.Logger.Named("seller")
	deps.Logger = logger
	if cfg.SellRetryWait <= 0 {
		cfg.SellRetryWait = defaultSellRetryWait
	}
	return &Seller{
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

// Sell sells the whole wallet balance of mint and closes its token account.
// A zero balance removes the position without a transaction. On failure the
// position is kept and its failed sell count is incremented.
func (s *Seller) Sell(ctx context.Context, mint solana.PublicKey) error {
	unlock := s.Store.LockMint(mint)
	defer unlock()

	pos, ok := s.Store.Get(mint)
	if !ok || pos.PoolKeys == nil {
		return ErrNotTradable
	}

	tradeID := uuid.New().String()
	logger := s.Logger.With(
		zap.String("trade_id", tradeID),
		zap.String("mint", mint.String()),
		zap.String("pool", pos.PoolID.String()))

	account, err := s.tokenAccount(ctx, pos)
	if err != nil {
		return s.failed(logger, tradeID, pos, 0, &TxError{Op: "sell", Mint: mint, Err: err})
	}
	balance := account.Amount

	if balance == 0 {
		s.Store.Remove(mint)
		s.Metrics.SetOpenPositions(s.Store.Len())
		logger.Info("Position closed, wallet holds no tokens")
		publish(s.Publisher, logger, events.PositionClosedEvent{
			BaseEvent: events.NewBase(events.PositionClosed),
			Mint:      mint,
			Reason:    ReasonZeroBalance,
		})
		return nil
	}

	swapIx, err := raydium.NewSwapBaseInInstruction(raydium.SwapParams{
		Keys:        pos.PoolKeys,
		Owner:       s.Wallet.PublicKey,
		SourceToken: account.Address,
		DestToken:   s.cfg.QuoteTokenAccount,
		AmountIn:    balance,
	})
	if err != nil {
		return s.failed(logger, tradeID, pos, balance, &TxError{Op: "sell", Mint: mint, Err: err})
	}
	ixs := append(s.cfg.computeBudget(),
		swapIx,
		raydium.CloseAccountInstruction(account.Address, s.Wallet.PublicKey))

	start := s.now()
	sig, err := s.tx.submit(ctx, ixs)
	s.Metrics.RecordTransaction("sell", s.now().Sub(start), err == nil)
	if err != nil {
		return s.failed(logger, tradeID, pos, balance, &TxError{Op: "sell", Mint: mint, Signature: sig, Err: err})
	}

	s.Store.Remove(mint)
	s.Metrics.SetOpenPositions(s.Store.Len())
	logger.Info("Sell confirmed",
		zap.String("signature", sig.String()),
		zap.Uint64("tokens", balance))
	publish(s.Publisher, logger, events.TradeEvent{
		BaseEvent: events.NewBase(events.SellConfirmed),
		TradeID:   tradeID,
		Mint:      mint,
		PoolID:    pos.PoolID,
		Signature: sig,
		Amount:    balance,
	})
	return nil
}

func (s *Seller) failed(logger *zap.Logger, tradeID string, pos store.Position, amount uint64, err *TxError) error {
	failures := s.Store.RecordSellFailure(pos.Mint)
	logger.Error("Sell failed", zap.Int("failed_sells", failures), zap.Error(err))
	publish(s.Publisher, logger, events.TradeEvent{
		BaseEvent: events.NewBase(events.SellFailed),
		TradeID:   tradeID,
		Mint:      pos.Mint,
		PoolID:    pos.PoolID,
		Signature: err.Signature,
		Amount:    amount,
		Err:       err,
	})
	return err
}

// tokenAccount finds the wallet account holding mint, waiting once if the
// wallet has none yet.
func (s *Seller) tokenAccount(ctx context.Context, pos store.Position) (blockchain.TokenAccount, error) {
	operation := func() (blockchain.TokenAccount, error) {
		accounts, err := s.Client.GetTokenAccountsByOwner(ctx, s.Wallet.PublicKey, &pos.Mint)
		if err != nil {
			return blockchain.TokenAccount{}, backoff.Permanent(fmt.Errorf("fetch token accounts: %w", err))
		}
		if len(accounts) == 0 {
			return blockchain.TokenAccount{}, ErrTokenAccountNotFound
		}
		return pickTokenAccount(accounts, pos.TokenAccount), nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(s.cfg.SellRetryWait)),
		backoff.WithMaxTries(2))
}

// pickTokenAccount prefers the account recorded at buy time, then the first
// account with a balance. An empty account is returned only when all are
// empty, so the zero-balance close cannot hide tokens held elsewhere.
func pickTokenAccount(accounts []blockchain.TokenAccount, recorded solana.PublicKey) blockchain.TokenAccount {
	for _, a := range accounts {
		if a.Address.Equals(recorded) {
			return a
		}
	}
	for _, a := range accounts {
		if a.Amount > 0 {
			return a
		}
	}
	return accounts[0]
}
