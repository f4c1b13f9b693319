// internal/dex/raydium/instructions.go
package raydium

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/token"
)

// SwapDirection selects which side of the pool is spent.
type SwapDirection int

const (
	// QuoteToBase spends the quote token (buy).
	QuoteToBase SwapDirection = iota
	// BaseToQuote spends the base token (sell).
	BaseToQuote
)

func (d SwapDirection) String() string {
	if d == BaseToQuote {
		return "base->quote"
	}
	return "quote->base"
}

// SwapParams describes a fixed-input swap against an AMM v4 pool.
type SwapParams struct {
	Keys         *PoolKeys
	Owner        solana.PublicKey
	SourceToken  solana.PublicKey
	DestToken    solana.PublicKey
	AmountIn     uint64
	MinAmountOut uint64
}

// EncodeSwapBaseInData packs the swap_base_in instruction data.
func EncodeSwapBaseInData(amountIn, minAmountOut uint64) []byte {
	data := make([]byte, 17)
	data[0] = InstructionSwapBaseIn
	binary.LittleEndian.PutUint64(data[1:9], amountIn)
	binary.LittleEndian.PutUint64(data[9:17], minAmountOut)
	return data
}

// NewSwapBaseInInstruction builds the AMM v4 swap_base_in instruction. Account
// order is fixed by the program.
func NewSwapBaseInInstruction(p SwapParams) (solana.Instruction, error) {
	if p.Keys == nil {
		return nil, fmt.Errorf("pool keys are required")
	}
	if p.Owner.IsZero() || p.SourceToken.IsZero() || p.DestToken.IsZero() {
		return nil, fmt.Errorf("owner and user token accounts are required")
	}
	if p.AmountIn == 0 {
		return nil, fmt.Errorf("amount in must be positive")
	}

	k := p.Keys
	accounts := solana.AccountMetaSlice{
		solana.Meta(solana.TokenProgramID),
		solana.Meta(k.ID).WRITE(),
		solana.Meta(k.Authority),
		solana.Meta(k.OpenOrders).WRITE(),
		solana.Meta(k.TargetOrders).WRITE(),
		solana.Meta(k.BaseVault).WRITE(),
		solana.Meta(k.QuoteVault).WRITE(),
		solana.Meta(k.MarketProgramID),
		solana.Meta(k.MarketID).WRITE(),
		solana.Meta(k.MarketBids).WRITE(),
		solana.Meta(k.MarketAsks).WRITE(),
		solana.Meta(k.MarketEventQueue).WRITE(),
		solana.Meta(k.MarketBaseVault).WRITE(),
		solana.Meta(k.MarketQuoteVault).WRITE(),
		solana.Meta(k.MarketAuthority),
		solana.Meta(p.SourceToken).WRITE(),
		solana.Meta(p.DestToken).WRITE(),
		solana.Meta(p.Owner).SIGNER(),
	}

	return solana.NewInstruction(k.ProgramID, accounts, EncodeSwapBaseInData(p.AmountIn, p.MinAmountOut)), nil
}

// ComputeBudgetInstructions returns the unit limit and unit price pair.
func ComputeBudgetInstructions(unitLimit uint32, microLamports uint64) []solana.Instruction {
	return []solana.Instruction{
		computebudget.NewSetComputeUnitLimitInstructionBuilder().
			SetUnits(unitLimit).
			Build(),
		computebudget.NewSetComputeUnitPriceInstructionBuilder().
			SetMicroLamports(microLamports).
			Build(),
	}
}

// CloseAccountInstruction reclaims rent of an emptied token account.
func CloseAccountInstruction(account, owner solana.PublicKey) solana.Instruction {
	return token.NewCloseAccountInstruction(account, owner, owner, nil).Build()
}
