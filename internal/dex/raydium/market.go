// internal/dex/raydium/market.go
package raydium

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// MinimalMarketInfo holds the OpenBook market addresses a swap needs.
type MinimalMarketInfo struct {
	EventQueue       solana.PublicKey
	Bids             solana.PublicKey
	Asks             solana.PublicKey
	BaseVault        solana.PublicKey
	QuoteVault       solana.PublicKey
	BaseMint         solana.PublicKey
	QuoteMint        solana.PublicKey
	VaultSignerNonce uint64
}

// DecodeMarketV3 extracts MinimalMarketInfo from an OpenBook market v3 account.
func DecodeMarketV3(data []byte) (*MinimalMarketInfo, error) {
	if len(data) < MarketStateV3Size {
		return nil, fmt.Errorf("%w: market v3 got %d, want %d", ErrInvalidLength, len(data), MarketStateV3Size)
	}

	key := func(off int) solana.PublicKey {
		return solana.PublicKeyFromBytes(data[off : off+32])
	}

	return &MinimalMarketInfo{
		EventQueue:       key(marketEventQueueOffset),
		Bids:             key(marketBidsOffset),
		Asks:             key(marketAsksOffset),
		BaseVault:        key(marketBaseVaultOffset),
		QuoteVault:       key(marketQuoteVaultOffset),
		BaseMint:         key(marketBaseMintOffset),
		QuoteMint:        key(marketQuoteMintOffset),
		VaultSignerNonce: binary.LittleEndian.Uint64(data[marketVaultSignerNonceOffset:]),
	}, nil
}

// MarketAuthority derives the vault signer of a market from its nonce.
func MarketAuthority(marketProgramID, marketID solana.PublicKey, nonce uint64) (solana.PublicKey, error) {
	nonceBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(nonceBytes, nonce)

	authority, err := solana.CreateProgramAddress([][]byte{marketID[:], nonceBytes}, marketProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive market authority for %s: %w", marketID, err)
	}
	return authority, nil
}
