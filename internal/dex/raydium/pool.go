// internal/dex/raydium/pool.go
package raydium

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// PoolKeys is the full account set of an AMM v4 swap.
type PoolKeys struct {
	ID            solana.PublicKey
	BaseMint      solana.PublicKey
	QuoteMint     solana.PublicKey
	LpMint        solana.PublicKey
	BaseDecimals  uint8
	QuoteDecimals uint8
	LpDecimals    uint8

	ProgramID     solana.PublicKey
	Authority     solana.PublicKey
	OpenOrders    solana.PublicKey
	TargetOrders  solana.PublicKey
	BaseVault     solana.PublicKey
	QuoteVault    solana.PublicKey
	WithdrawQueue solana.PublicKey
	LpVault       solana.PublicKey

	MarketProgramID  solana.PublicKey
	MarketID         solana.PublicKey
	MarketAuthority  solana.PublicKey
	MarketBaseVault  solana.PublicKey
	MarketQuoteVault solana.PublicKey
	MarketBids       solana.PublicKey
	MarketAsks       solana.PublicKey
	MarketEventQueue solana.PublicKey
}

var (
	ammAuthorityOnce sync.Once
	ammAuthority     solana.PublicKey
	ammAuthorityErr  error
)

// AmmAuthority returns the AMM v4 authority PDA.
func AmmAuthority() (solana.PublicKey, error) {
	ammAuthorityOnce.Do(func() {
		ammAuthority, _, ammAuthorityErr = solana.FindProgramAddress(
			[][]byte{[]byte(AmmAuthoritySeed)},
			AmmV4ProgramID,
		)
	})
	return ammAuthority, ammAuthorityErr
}

// NewPoolKeys derives PoolKeys from a decoded pool and its market.
func NewPoolKeys(id solana.PublicKey, state *LiquidityStateV4, market *MinimalMarketInfo) (*PoolKeys, error) {
	if state == nil || market == nil {
		return nil, fmt.Errorf("pool state and market info are required")
	}

	authority, err := AmmAuthority()
	if err != nil {
		return nil, fmt.Errorf("failed to derive amm authority: %w", err)
	}

	marketAuthority, err := MarketAuthority(state.MarketProgramID, state.MarketID, market.VaultSignerNonce)
	if err != nil {
		return nil, err
	}

	return &PoolKeys{
		ID:               id,
		BaseMint:         state.BaseMint,
		QuoteMint:        state.QuoteMint,
		LpMint:           state.LpMint,
		BaseDecimals:     uint8(state.BaseDecimal),
		QuoteDecimals:    uint8(state.QuoteDecimal),
		LpDecimals:       LPDecimals,
		ProgramID:        AmmV4ProgramID,
		Authority:        authority,
		OpenOrders:       state.OpenOrders,
		TargetOrders:     state.TargetOrders,
		BaseVault:        state.BaseVault,
		QuoteVault:       state.QuoteVault,
		WithdrawQueue:    state.WithdrawQueue,
		LpVault:          state.LpVault,
		MarketProgramID:  state.MarketProgramID,
		MarketID:         state.MarketID,
		MarketAuthority:  marketAuthority,
		MarketBaseVault:  market.BaseVault,
		MarketQuoteVault: market.QuoteVault,
		MarketBids:       market.Bids,
		MarketAsks:       market.Asks,
		MarketEventQueue: market.EventQueue,
	}, nil
}
