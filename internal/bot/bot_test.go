package bot

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/raydium-sniper/internal/blockchain"
	"github.com/rovshanmuradov/raydium-sniper/internal/blockchain/blockchaintest"
	"github.com/rovshanmuradov/raydium-sniper/internal/config"
	"github.com/rovshanmuradov/raydium-sniper/internal/dex/raydium"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	quote, err := raydium.LookupQuoteToken("WSOL")
	require.NoError(t, err)
	return &config.Config{
		File: config.File{
			PrivateKey:    solana.NewWallet().PrivateKey.String(),
			ExitPriceMode: "reserves",
		},
		Quote:           quote,
		QuoteAmount:     big.NewInt(10_000_000),
		MinPoolSize:     big.NewInt(1_000),
		MonitorInterval: time.Second,
	}
}

func newTestBot(t *testing.T, client *blockchaintest.MockClient) *Bot {
	t.Helper()
	b, err := newBot(testConfig(t), client, nil, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(b.closeServices)
	return b
}

func TestLoadWalletRequiresQuoteAccount(t *testing.T) {
	client := &blockchaintest.MockClient{}
	b := newTestBot(t, client)
	client.On("GetTokenAccountsByOwner", mock.Anything, b.wallet.PublicKey, (*solana.PublicKey)(nil)).
		Return([]blockchain.TokenAccount{{Address: solana.NewWallet().PublicKey(), Mint: solana.NewWallet().PublicKey()}}, nil)

	_, err := b.loadWallet(context.Background())
	assert.ErrorIs(t, err, ErrQuoteAccountMissing)
}

func TestLoadWalletRemembersTokenAccounts(t *testing.T) {
	client := &blockchaintest.MockClient{}
	b := newTestBot(t, client)

	quoteAccount := solana.NewWallet().PublicKey()
	otherMint := solana.NewWallet().PublicKey()
	otherAccount := solana.NewWallet().PublicKey()
	client.On("GetTokenAccountsByOwner", mock.Anything, b.wallet.PublicKey, (*solana.PublicKey)(nil)).
		Return([]blockchain.TokenAccount{
			{Address: quoteAccount, Mint: b.cfg.Quote.Mint, Amount: 5},
			{Address: otherAccount, Mint: otherMint},
		}, nil)

	got, err := b.loadWallet(context.Background())
	require.NoError(t, err)
	assert.Equal(t, quoteAccount, got)

	ata, err := b.wallet.GetATA(otherMint)
	require.NoError(t, err)
	assert.Equal(t, otherAccount, ata)
}

func TestLoadWalletRPCError(t *testing.T) {
	client := &blockchaintest.MockClient{}
	b := newTestBot(t, client)
	client.On("GetTokenAccountsByOwner", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	_, err := b.loadWallet(context.Background())
	assert.Error(t, err)
}

func TestBelowMinimumPoolIsNeverBought(t *testing.T) {
	client := &blockchaintest.MockClient{}
	b := newTestBot(t, client)
	b.setupTrading(solana.NewWallet().PublicKey())

	state := &raydium.LiquidityStateV4{BaseMint: solana.NewWallet().PublicKey()}
	state.SwapQuoteInAmount.Lo = 999

	b.handlePool(context.Background(), solana.NewWallet().PublicKey(), state)

	assert.Zero(t, b.store.Len())
	client.AssertNotCalled(t, "GetAccountData", mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)
}

func TestRejectedPoolIsLoggedOnce(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	client := &blockchaintest.MockClient{}
	b, err := newBot(testConfig(t), client, nil, nil, zap.New(core))
	require.NoError(t, err)
	t.Cleanup(b.closeServices)
	b.setupTrading(solana.NewWallet().PublicKey())

	state := &raydium.LiquidityStateV4{BaseMint: solana.NewWallet().PublicKey()}
	state.SwapQuoteInAmount.Lo = 1
	b.handlePool(context.Background(), solana.NewWallet().PublicKey(), state)

	assert.Equal(t, 1, logs.FilterMessage("Pool rejected").Len())
	assert.Zero(t, logs.FilterMessage("Pool admitted").Len())
}

func TestShutdownClosesInReverseOrder(t *testing.T) {
	sh := NewShutdownHandler(zaptest.NewLogger(t), time.Second)

	var mu sync.Mutex
	var order []string
	record := func(name string, err error) func() error {
		return func() error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return err
		}
	}
	boom := errors.New("boom")
	sh.AddFunc("first", record("first", nil))
	sh.AddFunc("second", record("second", boom))

	err := sh.Shutdown(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"second", "first"}, order)

	require.NoError(t, sh.Shutdown(context.Background()))
	assert.Len(t, order, 2)
}

func TestShutdownTimeout(t *testing.T) {
	sh := NewShutdownHandler(zaptest.NewLogger(t), 10*time.Millisecond)
	release := make(chan struct{})
	defer close(release)
	sh.AddFunc("stuck", func() error {
		<-release
		return nil
	})

	err := sh.Shutdown(context.Background())
	assert.ErrorContains(t, err, "shutdown timeout")
}
