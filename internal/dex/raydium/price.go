// internal/dex/raydium/price.go
package raydium

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// pricePrecision is the number of decimal places kept by price divisions.
const pricePrecision = 36

// RawPrice returns quote/base in raw units, or zero when base is zero.
func RawPrice(quote, base *big.Int) decimal.Decimal {
	if base == nil || base.Sign() == 0 || quote == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(quote, 0).DivRound(decimal.NewFromBigInt(base, 0), pricePrecision)
}

// ReservePrice prices the pool from its vault balances, in the same unit as
// an entry price computed by RawPrice(quoteSpent, tokensReceived).
func ReservePrice(baseVaultAmount, quoteVaultAmount uint64) decimal.Decimal {
	return RawPrice(new(big.Int).SetUint64(quoteVaultAmount), new(big.Int).SetUint64(baseVaultAmount))
}

// SwapCounterPrice is the ratio of the cumulative quote-out and quote-in swap
// counters. It is not normalised for decimals and does not track the spot
// price; it exists for compatibility with older deployments.
func (s *LiquidityStateV4) SwapCounterPrice() decimal.Decimal {
	return RawPrice(u128BigInt(s.SwapQuoteOutAmount), u128BigInt(s.SwapQuoteInAmount))
}
