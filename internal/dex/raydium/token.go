// internal/dex/raydium/token.go
package raydium

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go/programs/token"
)

// DecodeMint decodes an SPL mint account.
func DecodeMint(data []byte) (*token.Mint, error) {
	var mint token.Mint
	if err := bin.NewBinDecoder(data).Decode(&mint); err != nil {
		return nil, fmt.Errorf("failed to decode mint: %w", err)
	}
	return &mint, nil
}

// IsMintRenounced reports whether the mint authority option is none, so no
// further supply can be minted.
func IsMintRenounced(mint *token.Mint) bool {
	return mint != nil && mint.MintAuthority == nil
}

// DecodeTokenAccount decodes an SPL token account.
func DecodeTokenAccount(data []byte) (*token.Account, error) {
	var acc token.Account
	if err := bin.NewBinDecoder(data).Decode(&acc); err != nil {
		return nil, fmt.Errorf("failed to decode token account: %w", err)
	}
	return &acc, nil
}
