// internal/trade/errors.go
package trade

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrNotTradable is returned when a mint has no position or no pool keys.
	ErrNotTradable = errors.New("position not tradable")
	// ErrTokenAccountNotFound is returned when the wallet has no account for the mint yet.
	ErrTokenAccountNotFound = errors.New("token account not found")
	// ErrTransactionExpired is returned when the blockhash expired before confirmation.
	ErrTransactionExpired = errors.New("transaction expired before confirmation")
	// ErrTransactionFailed is returned when the ledger executed the transaction with an error.
	ErrTransactionFailed = errors.New("transaction failed")
)

// TxError describes a failed buy or sell.
type TxError struct {
	Op        string
	Mint      solana.PublicKey
	Signature solana.Signature
	Err       error
}

func (e *TxError) Error() string {
	if e.Signature == (solana.Signature{}) {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Mint, e.Err)
	}
	return fmt.Sprintf("%s %s (tx %s): %v", e.Op, e.Mint, e.Signature, e.Err)
}

func (e *TxError) Unwrap() error {
	return e.Err
}
