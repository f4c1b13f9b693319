// internal/dex/raydium/constants.go
package raydium

import (
	"github.com/gagliardetto/solana-go"
)

// Program IDs
var (
	AmmV4ProgramID    = solana.MPK("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	OpenBookProgramID = solana.MPK("srmqPvymJeFKQ4zGQed1GFppgkRHL9kaELCbyksJtPX")
	WrappedSolMint    = solana.MPK("So11111111111111111111111111111111111111112")
	USDCMint          = solana.MPK("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

// AmmAuthoritySeed is the single seed of the AMM v4 authority PDA.
const AmmAuthoritySeed = "amm authority"

// Liquidity state v4 layout
const (
	LiquidityStateV4Size = 752

	StatusOffset          = 0
	PoolOpenTimeOffset    = 224
	QuoteMintOffset       = 432
	MarketProgramIDOffset = 560
)

// Pool status values stored in the first u64 of the state account.
const (
	StatusUninitialized uint64 = 0
	StatusInitialized   uint64 = 1
	StatusDisabled      uint64 = 2
	StatusWithdrawOnly  uint64 = 3
	StatusLiquidityOnly uint64 = 4
	StatusOrderBookOnly uint64 = 5
	StatusSwapOnly      uint64 = 6
	StatusWaitingTrade  uint64 = 7
)

// OpenBook market v3 layout
const (
	MarketStateV3Size = 388

	marketVaultSignerNonceOffset = 45
	marketBaseMintOffset         = 53
	marketQuoteMintOffset        = 85
	marketBaseVaultOffset        = 117
	marketQuoteVaultOffset       = 165
	marketEventQueueOffset       = 253
	marketBidsOffset             = 285
	marketAsksOffset             = 317
)

// Swap instruction discriminators
const (
	InstructionSwapBaseIn uint8 = 9
)

// Compute budget defaults used by buy and sell transactions.
const (
	DefaultComputeUnitPrice uint64 = 421197
	DefaultComputeUnitLimit uint32 = 101337
)

// LPDecimals is fixed for AMM v4 pools.
const LPDecimals = 5
