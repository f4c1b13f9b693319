// internal/dex/raydium/quote.go
package raydium

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// ErrUnsupportedQuote is returned for quote symbols outside the table.
var ErrUnsupportedQuote = errors.New("unsupported quote token")

// QuoteToken is a token pools can be quoted in.
type QuoteToken struct {
	Symbol   string
	Mint     solana.PublicKey
	Decimals int32
}

var quoteTokens = map[string]QuoteToken{
	"WSOL": {Symbol: "WSOL", Mint: WrappedSolMint, Decimals: 9},
	"USDC": {Symbol: "USDC", Mint: USDCMint, Decimals: 6},
}

// LookupQuoteToken resolves a quote symbol such as "WSOL" or "USDC".
func LookupQuoteToken(symbol string) (QuoteToken, error) {
	q, ok := quoteTokens[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return QuoteToken{}, fmt.Errorf("%w: %q", ErrUnsupportedQuote, symbol)
	}
	return q, nil
}

// ToRaw converts a human amount into raw integer units. Fractional digits
// beyond the token precision are truncated.
func (q QuoteToken) ToRaw(amount decimal.Decimal) *big.Int {
	return amount.Shift(q.Decimals).Truncate(0).BigInt()
}

// FromRaw converts raw units into a human amount.
func (q QuoteToken) FromRaw(raw *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(raw, -q.Decimals)
}

// ParseAmount parses a decimal string into raw units of the quote token.
func (q QuoteToken) ParseAmount(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid %s amount %q: %w", q.Symbol, s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("invalid %s amount %q: negative", q.Symbol, s)
	}
	return q.ToRaw(d), nil
}
