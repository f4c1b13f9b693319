// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/raydium-sniper/internal/blockchain"
	"github.com/rovshanmuradov/raydium-sniper/internal/dex/raydium"
	"github.com/rovshanmuradov/raydium-sniper/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ClientConfig configures the RPC adapter.
type ClientConfig struct {
	Endpoint      string
	Commitment    rpc.CommitmentType
	RateLimit     float64 // requests per second, <= 0 disables limiting
	Burst         int
	SkipPreflight bool
}

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через solana-go.
// Every request waits on a shared rate limiter first.
type Client struct {
	rpc           *rpc.Client
	limiter       *rate.Limiter
	commitment    rpc.CommitmentType
	skipPreflight bool
	metrics       *metrics.Collector
	logger        *zap.Logger
}

var _ blockchain.Client = (*Client)(nil)

// NewClient создаёт новый клиент.
func NewClient(cfg ClientConfig, m *metrics.Collector, logger *zap.Logger) *Client {
	return &Client{
		rpc:           rpc.New(cfg.Endpoint),
		limiter:       newLimiter(cfg.RateLimit, cfg.Burst),
		commitment:    commitmentOrDefault(cfg.Commitment),
		skipPreflight: cfg.SkipPreflight,
		metrics:       m,
		logger:        logger.Named("solbc-client"),
	}
}

func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func commitmentOrDefault(c rpc.CommitmentType) rpc.CommitmentType {
	if c == "" {
		return rpc.CommitmentConfirmed
	}
	return c
}

const (
	maxCallTries  uint = 3
	callRetryWait      = 200 * time.Millisecond
)

// call waits for the limiter, runs fn and records the outcome. Transient
// failures (see IsRetryableError) are retried a few times.
func (c *Client) call(ctx context.Context, method string, fn func() error) error {
	return c.callWithTries(ctx, method, maxCallTries, fn)
}

// callOnce never repeats fn. Used for requests that must not be resubmitted.
func (c *Client) callOnce(ctx context.Context, method string, fn func() error) error {
	return c.callWithTries(ctx, method, 1, fn)
}

func (c *Client) callWithTries(ctx context.Context, method string, tries uint, fn func() error) error {
	operation := func() (struct{}, error) {
		start := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			return struct{}{}, backoff.Permanent(&RPCError{Method: method, Err: err})
		}

		err := fn()
		c.metrics.RecordRPC(method, time.Since(start), err)
		if err == nil {
			return struct{}{}, nil
		}
		c.logger.Debug("RPC request failed", zap.String("method", method), zap.Error(err))
		rpcErr := &RPCError{Method: method, Err: err}
		if !IsRetryableError(err) {
			return struct{}{}, backoff.Permanent(rpcErr)
		}
		return struct{}{}, rpcErr
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(callRetryWait)),
		backoff.WithMaxTries(tries))
	return err
}

// GetAccountData возвращает сырые данные аккаунта.
func (c *Client) GetAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error) {
	var res *rpc.GetAccountInfoResult
	err := c.call(ctx, "getAccountInfo", func() (err error) {
		res, err = c.rpc.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: c.commitment,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", blockchain.ErrAccountNotFound, account)
		}
		return nil, err
	}
	if res == nil || res.Value == nil {
		return nil, fmt.Errorf("%w: %s", blockchain.ErrAccountNotFound, account)
	}
	return res.Value.Data.GetBinary(), nil
}

// GetMultipleAccountsData получает данные нескольких аккаунтов за один запрос.
func (c *Client) GetMultipleAccountsData(ctx context.Context, accounts []solana.PublicKey) ([][]byte, error) {
	if len(accounts) == 0 {
		return nil, nil
	}

	var res *rpc.GetMultipleAccountsResult
	err := c.call(ctx, "getMultipleAccounts", func() (err error) {
		res, err = c.rpc.GetMultipleAccountsWithOpts(ctx, accounts, &rpc.GetMultipleAccountsOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: c.commitment,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([][]byte, len(accounts))
	for i, acc := range res.Value {
		if i >= len(out) {
			break
		}
		if acc != nil && acc.Data != nil {
			out[i] = acc.Data.GetBinary()
		}
	}
	return out, nil
}

// GetTokenAccountsByOwner возвращает SPL токен-аккаунты владельца.
func (c *Client) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, mint *solana.PublicKey) ([]blockchain.TokenAccount, error) {
	conf := &rpc.GetTokenAccountsConfig{}
	if mint != nil {
		conf.Mint = mint
	} else {
		programID := solana.TokenProgramID
		conf.ProgramId = &programID
	}

	var res *rpc.GetTokenAccountsResult
	err := c.call(ctx, "getTokenAccountsByOwner", func() (err error) {
		res, err = c.rpc.GetTokenAccountsByOwner(ctx, owner, conf, &rpc.GetTokenAccountsOpts{
			Commitment: c.commitment,
			Encoding:   solana.EncodingBase64,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	accounts := make([]blockchain.TokenAccount, 0, len(res.Value))
	for _, ta := range res.Value {
		if ta == nil || ta.Account.Data == nil {
			continue
		}
		decoded, err := raydium.DecodeTokenAccount(ta.Account.Data.GetBinary())
		if err != nil {
			c.logger.Debug("Skipping undecodable token account",
				zap.String("account", ta.Pubkey.String()),
				zap.Error(err))
			continue
		}
		accounts = append(accounts, blockchain.TokenAccount{
			Address: ta.Pubkey,
			Mint:    decoded.Mint,
			Amount:  decoded.Amount,
		})
	}
	return accounts, nil
}

// GetLatestBlockhash получает последний blockhash и границу его валидности.
func (c *Client) GetLatestBlockhash(ctx context.Context) (blockchain.Blockhash, error) {
	var res *rpc.GetLatestBlockhashResult
	err := c.call(ctx, "getLatestBlockhash", func() (err error) {
		res, err = c.rpc.GetLatestBlockhash(ctx, c.commitment)
		return err
	})
	if err != nil {
		return blockchain.Blockhash{}, err
	}
	return blockchain.Blockhash{
		Hash:                 res.Value.Blockhash,
		LastValidBlockHeight: res.Value.LastValidBlockHeight,
	}, nil
}

// GetBlockHeight возвращает текущую высоту блока.
func (c *Client) GetBlockHeight(ctx context.Context) (uint64, error) {
	var height uint64
	err := c.call(ctx, "getBlockHeight", func() (err error) {
		height, err = c.rpc.GetBlockHeight(ctx, c.commitment)
		return err
	})
	return height, err
}

// SendTransaction отправляет подписанную транзакцию. Отправка не
// повторяется: сбой отменяет попытку.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	var sig solana.Signature
	err := c.callOnce(ctx, "sendTransaction", func() (err error) {
		sig, err = c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			SkipPreflight:       c.skipPreflight,
			PreflightCommitment: c.commitment,
		})
		return err
	})
	if err != nil {
		c.logger.Error("SendTransaction error", zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

// GetSignatureStatus возвращает статус подписи или nil, если она ещё не видна.
func (c *Client) GetSignatureStatus(ctx context.Context, sig solana.Signature) (*blockchain.SignatureStatus, error) {
	var res *rpc.GetSignatureStatusesResult
	err := c.call(ctx, "getSignatureStatuses", func() (err error) {
		res, err = c.rpc.GetSignatureStatuses(ctx, false, sig)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
		return nil, nil
	}

	st := res.Value[0]
	confirmed := st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
		st.ConfirmationStatus == rpc.ConfirmationStatusFinalized
	return &blockchain.SignatureStatus{
		Confirmed: confirmed,
		Err:       st.Err,
	}, nil
}
