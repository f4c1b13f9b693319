// internal/filter/filter.go
package filter

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/raydium-sniper/internal/blockchain"
	"github.com/rovshanmuradov/raydium-sniper/internal/dex/raydium"
	"github.com/rovshanmuradov/raydium-sniper/internal/metrics"
	"github.com/rovshanmuradov/raydium-sniper/internal/store"
	"go.uber.org/zap"
)

// Rejection reasons.
const (
	ReasonAdmitted     = "admitted"
	ReasonNotListed    = "not_in_snipe_list"
	ReasonPoolTooSmall = "pool_too_small"
	ReasonMintable     = "mint_not_renounced"
	ReasonLPNotBurned  = "lp_not_burned"
	ReasonKnownMint    = "known_mint"
	ReasonCheckFailed  = "check_failed"
)

// Decision is the outcome of evaluating a pool.
type Decision struct {
	Admit  bool
	Reason string
}

// Allowlist restricts trading to listed mints.
type Allowlist interface {
	Contains(mint solana.PublicKey) bool
}

// Config selects which checks run.
type Config struct {
	// MinPoolSize is the minimum quote reserve in raw quote units.
	MinPoolSize        *big.Int
	CheckMintRenounced bool
	CheckLPBurned      bool
	// SnipeList is consulted only when non-nil.
	SnipeList Allowlist
}

// Filter decides whether a new pool is traded.
type Filter struct {
	client  blockchain.Client
	store   *store.Store
	cfg     Config
	metrics *metrics.Collector
	logger  *zap.Logger
}

func New(client blockchain.Client, st *store.Store, cfg Config, m *metrics.Collector, logger *zap.Logger) *Filter {
	if cfg.MinPoolSize == nil {
		cfg.MinPoolSize = new(big.Int)
	}
	return &Filter{
		client:  client,
		store:   st,
		cfg:     cfg,
		metrics: m,
		logger:  logger.Named("filter"),
	}
}

// Evaluate runs the checks in order and stops at the first rejection. An
// admitted pool's base mint is recorded as known before Evaluate returns, so
// a concurrent evaluation for the same mint is rejected.
func (f *Filter) Evaluate(ctx context.Context, poolID solana.PublicKey, state *raydium.LiquidityStateV4) Decision {
	d := f.evaluate(ctx, state)
	f.metrics.RecordAdmission(d.Admit, d.Reason)

	fields := []zap.Field{
		zap.String("pool", poolID.String()),
		zap.String("mint", state.BaseMint.String()),
		zap.String("reason", d.Reason),
	}
	if d.Admit {
		f.logger.Info("Pool admitted", fields...)
	} else {
		f.logger.Debug("Pool rejected", fields...)
	}
	return d
}

func (f *Filter) evaluate(ctx context.Context, state *raydium.LiquidityStateV4) Decision {
	if f.cfg.SnipeList != nil && !f.cfg.SnipeList.Contains(state.BaseMint) {
		return reject(ReasonNotListed)
	}

	if state.QuoteReserve().Cmp(f.cfg.MinPoolSize) < 0 {
		return reject(ReasonPoolTooSmall)
	}

	if f.cfg.CheckMintRenounced {
		ok, err := f.renounced(ctx, state.BaseMint)
		if err != nil {
			f.logger.Warn("Mint check failed", zap.String("mint", state.BaseMint.String()), zap.Error(err))
			return reject(ReasonCheckFailed)
		}
		if !ok {
			return reject(ReasonMintable)
		}
	}

	if f.cfg.CheckLPBurned {
		ok, err := f.renounced(ctx, state.LpMint)
		if err != nil {
			f.logger.Warn("LP mint check failed", zap.String("lp_mint", state.LpMint.String()), zap.Error(err))
			return reject(ReasonCheckFailed)
		}
		if !ok {
			return reject(ReasonLPNotBurned)
		}
	}

	if !f.store.AddKnownMint(state.BaseMint) {
		return reject(ReasonKnownMint)
	}
	return Decision{Admit: true, Reason: ReasonAdmitted}
}

// renounced fetches mint and reports whether its authority is unset.
func (f *Filter) renounced(ctx context.Context, mint solana.PublicKey) (bool, error) {
	data, err := f.client.GetAccountData(ctx, mint)
	if err != nil {
		return false, fmt.Errorf("fetch mint %s: %w", mint, err)
	}
	m, err := raydium.DecodeMint(data)
	if err != nil {
		return false, err
	}
	return raydium.IsMintRenounced(m), nil
}

func reject(reason string) Decision {
	return Decision{Admit: false, Reason: reason}
}
