// internal/trade/transaction.go
package trade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/raydium-sniper/internal/blockchain"
	"github.com/rovshanmuradov/raydium-sniper/internal/wallet"
	"go.uber.org/zap"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	// maxConfirmWait bounds polling if block height cannot be read.
	maxConfirmWait = 2 * time.Minute
)

var errPending = errors.New("transaction not confirmed yet")

// submitter builds, signs, sends and confirms transactions.
type submitter struct {
	client       blockchain.Client
	wallet       *wallet.Wallet
	pollInterval time.Duration
	logger       *zap.Logger
}

// submit sends ixs in one transaction and waits until it is confirmed, fails
// or its blockhash expires. The signature is returned whenever the
// transaction was sent.
func (s *submitter) submit(ctx context.Context, ixs []solana.Instruction) (solana.Signature, error) {
	bh, err := s.client.GetLatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(ixs, bh.Hash, solana.TransactionPayer(s.wallet.PublicKey))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to create transaction: %w", err)
	}
	if err := s.wallet.SignTransaction(tx); err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := s.client.SendTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	s.logger.Debug("Transaction sent",
		zap.String("signature", sig.String()),
		zap.Uint64("last_valid_block_height", bh.LastValidBlockHeight))

	return sig, s.confirm(ctx, sig, bh.LastValidBlockHeight)
}

// confirm polls the signature status until the block height passes
// lastValid.
func (s *submitter) confirm(ctx context.Context, sig solana.Signature, lastValid uint64) error {
	interval := s.pollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	operation := func() (struct{}, error) {
		st, err := s.client.GetSignatureStatus(ctx, sig)
		if err != nil {
			return struct{}{}, err
		}
		if st != nil {
			if st.Err != nil {
				return struct{}{}, backoff.Permanent(fmt.Errorf("%w: %v", ErrTransactionFailed, st.Err))
			}
			if st.Confirmed {
				return struct{}{}, nil
			}
		}

		height, err := s.client.GetBlockHeight(ctx)
		if err == nil && height > lastValid {
			return struct{}{}, backoff.Permanent(ErrTransactionExpired)
		}
		return struct{}{}, errPending
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(interval)),
		backoff.WithMaxElapsedTime(maxConfirmWait))
	if errors.Is(err, errPending) {
		return ErrTransactionExpired
	}
	return err
}
