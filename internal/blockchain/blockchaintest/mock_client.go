// internal/blockchain/blockchaintest/mock_client.go
package blockchaintest

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/raydium-sniper/internal/blockchain"
	"github.com/stretchr/testify/mock"
)

// MockClient is a testify mock of blockchain.Client.
type MockClient struct {
	mock.Mock
}

var _ blockchain.Client = (*MockClient)(nil)

func (m *MockClient) GetAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error) {
	args := m.Called(ctx, account)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockClient) GetMultipleAccountsData(ctx context.Context, accounts []solana.PublicKey) ([][]byte, error) {
	args := m.Called(ctx, accounts)
	data, _ := args.Get(0).([][]byte)
	return data, args.Error(1)
}

func (m *MockClient) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, mint *solana.PublicKey) ([]blockchain.TokenAccount, error) {
	args := m.Called(ctx, owner, mint)
	accounts, _ := args.Get(0).([]blockchain.TokenAccount)
	return accounts, args.Error(1)
}

func (m *MockClient) GetLatestBlockhash(ctx context.Context) (blockchain.Blockhash, error) {
	args := m.Called(ctx)
	return args.Get(0).(blockchain.Blockhash), args.Error(1)
}

func (m *MockClient) GetBlockHeight(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockClient) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	args := m.Called(ctx, tx)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *MockClient) GetSignatureStatus(ctx context.Context, sig solana.Signature) (*blockchain.SignatureStatus, error) {
	args := m.Called(ctx, sig)
	st, _ := args.Get(0).(*blockchain.SignatureStatus)
	return st, args.Error(1)
}
