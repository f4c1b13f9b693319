// internal/blockchain/types.go
package blockchain

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// ErrAccountNotFound is returned when an account does not exist.
var ErrAccountNotFound = errors.New("account not found")

// TokenAccount is an SPL token account owned by the wallet.
type TokenAccount struct {
	Address solana.PublicKey
	Mint    solana.PublicKey
	Amount  uint64
}

// Blockhash is a recent blockhash and the last block height it is valid for.
type Blockhash struct {
	Hash                 solana.Hash
	LastValidBlockHeight uint64
}

// SignatureStatus is the observed state of a submitted transaction.
type SignatureStatus struct {
	Confirmed bool
	Err       interface{}
}

// Client определяет общий интерфейс для взаимодействия с блокчейном.
type Client interface {
	// Данные аккаунта; ErrAccountNotFound если аккаунта нет.
	GetAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error)
	// Данные нескольких аккаунтов одним запросом; nil для отсутствующих.
	GetMultipleAccountsData(ctx context.Context, accounts []solana.PublicKey) ([][]byte, error)
	// Токен-аккаунты владельца; mint == nil возвращает все SPL аккаунты.
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, mint *solana.PublicKey) ([]TokenAccount, error)
	GetLatestBlockhash(ctx context.Context) (Blockhash, error)
	GetBlockHeight(ctx context.Context) (uint64, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	// nil статус означает, что транзакция ещё не видна.
	GetSignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error)
}

// ProgramNotification is one account change of a program subscription.
type ProgramNotification struct {
	Account solana.PublicKey
	Data    []byte
}

// LogNotification is one transaction log event.
type LogNotification struct {
	Signature solana.Signature
	Err       interface{}
	Logs      []string
}

// ProgramStream delivers program account changes until closed.
type ProgramStream interface {
	Recv(ctx context.Context) (*ProgramNotification, error)
	Close()
}

// LogStream delivers transaction logs until closed.
type LogStream interface {
	Recv(ctx context.Context) (*LogNotification, error)
	Close()
}

// Subscriber opens push subscriptions.
type Subscriber interface {
	SubscribeProgram(ctx context.Context, program solana.PublicKey, filters []rpc.RPCFilter) (ProgramStream, error)
	SubscribeLogs(ctx context.Context, mention solana.PublicKey) (LogStream, error)
}
