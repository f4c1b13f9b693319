package trade

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/raydium-sniper/internal/blockchain"
	"github.com/rovshanmuradov/raydium-sniper/internal/blockchain/blockchaintest"
	"github.com/rovshanmuradov/raydium-sniper/internal/dex/raydium"
	"github.com/rovshanmuradov/raydium-sniper/internal/events"
	"github.com/rovshanmuradov/raydium-sniper/internal/store"
	"github.com/rovshanmuradov/raydium-sniper/internal/wallet"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type())
	}
	return out
}

type fixture struct {
	client *blockchaintest.MockClient
	wallet *wallet.Wallet
	store  *store.Store
	events *recorder
	cfg    Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	w, err := wallet.NewWallet(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)
	quote, err := raydium.LookupQuoteToken("WSOL")
	require.NoError(t, err)
	return &fixture{
		client: &blockchaintest.MockClient{},
		wallet: w,
		store:  store.New(),
		events: &recorder{},
		cfg: Config{
			Quote:             quote,
			QuoteAmount:       1_000_000,
			QuoteTokenAccount: solana.NewWallet().PublicKey(),
			PollInterval:      time.Millisecond,
			SellRetryWait:     time.Millisecond,
		},
	}
}

func (f *fixture) deps(t *testing.T) Deps {
	return Deps{
		Client:    f.client,
		Wallet:    f.wallet,
		Store:     f.store,
		Publisher: f.events,
		Logger:    zaptest.NewLogger(t),
	}
}

// newPool returns a pool whose market is already cached in the store.
func (f *fixture) newPool(t *testing.T) (solana.PublicKey, *raydium.LiquidityStateV4) {
	t.Helper()
	state := &raydium.LiquidityStateV4{
		BaseMint:        solana.NewWallet().PublicKey(),
		QuoteMint:       solana.WrappedSol,
		LpMint:          solana.NewWallet().PublicKey(),
		OpenOrders:      solana.NewWallet().PublicKey(),
		TargetOrders:    solana.NewWallet().PublicKey(),
		BaseVault:       solana.NewWallet().PublicKey(),
		QuoteVault:      solana.NewWallet().PublicKey(),
		MarketID:        solana.NewWallet().PublicKey(),
		MarketProgramID: raydium.OpenBookProgramID,
	}
	market := &raydium.MinimalMarketInfo{
		EventQueue: solana.NewWallet().PublicKey(),
		Bids:       solana.NewWallet().PublicKey(),
		Asks:       solana.NewWallet().PublicKey(),
		BaseVault:  solana.NewWallet().PublicKey(),
		QuoteVault: solana.NewWallet().PublicKey(),
	}
	for nonce := uint64(0); nonce < 255; nonce++ {
		if _, err := raydium.MarketAuthority(state.MarketProgramID, state.MarketID, nonce); err == nil {
			market.VaultSignerNonce = nonce
			ata, err := f.wallet.GetATA(state.BaseMint)
			require.NoError(t, err)
			f.store.PutMarketInfo(state.BaseMint, market, ata)
			return solana.NewWallet().PublicKey(), state
		}
	}
	t.Fatal("no valid vault signer nonce")
	return solana.PublicKey{}, nil
}

func (f *fixture) expectSend(sig solana.Signature, status *blockchain.SignatureStatus) {
	f.client.On("GetLatestBlockhash", mock.Anything).
		Return(blockchain.Blockhash{Hash: solana.Hash{1}, LastValidBlockHeight: 100}, nil)
	f.client.On("SendTransaction", mock.Anything, mock.Anything).Return(sig, nil)
	f.client.On("GetSignatureStatus", mock.Anything, sig).Return(status, nil)
}

func (f *fixture) expectBalance(pos store.Position, amount uint64) {
	f.client.On("GetTokenAccountsByOwner", mock.Anything, f.wallet.PublicKey, &pos.Mint).
		Return([]blockchain.TokenAccount{{Address: pos.TokenAccount, Mint: pos.Mint, Amount: amount}}, nil)
}

func TestBuyStoresPosition(t *testing.T) {
	f := newFixture(t)
	poolID, state := f.newPool(t)
	sig := solana.Signature{7}
	f.expectSend(sig, &blockchain.SignatureStatus{Confirmed: true})
	f.client.On("GetTokenAccountsByOwner", mock.Anything, f.wallet.PublicKey, mock.Anything).
		Return([]blockchain.TokenAccount{{Mint: state.BaseMint, Amount: 500}}, nil)

	pos, err := NewBuyer(f.deps(t), f.cfg).Buy(context.Background(), poolID, state)
	require.NoError(t, err)

	assert.Equal(t, sig, pos.BuySignature)
	assert.Equal(t, uint64(500), pos.TokensReceived)
	assert.True(t, decimal.NewFromInt(2_000).Equal(pos.BuyPrice), "price %s", pos.BuyPrice)
	assert.NotNil(t, pos.PoolKeys)

	stored, ok := f.store.Get(state.BaseMint)
	require.True(t, ok)
	assert.Equal(t, poolID, stored.PoolID)
	assert.Equal(t, []events.EventType{events.BuyConfirmed}, f.events.types())
	f.client.AssertNotCalled(t, "GetAccountData", mock.Anything, mock.Anything)
}

func TestBuyWithUnknownBalanceHasZeroPrice(t *testing.T) {
	f := newFixture(t)
	poolID, state := f.newPool(t)
	f.expectSend(solana.Signature{1}, &blockchain.SignatureStatus{Confirmed: true})
	f.client.On("GetTokenAccountsByOwner", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("rpc unavailable"))

	pos, err := NewBuyer(f.deps(t), f.cfg).Buy(context.Background(), poolID, state)
	require.NoError(t, err)
	assert.Zero(t, pos.TokensReceived)
	assert.True(t, pos.BuyPrice.IsZero())
	assert.Equal(t, 1, f.store.Len())
}

func TestBuyFailureStoresNothing(t *testing.T) {
	f := newFixture(t)
	poolID, state := f.newPool(t)
	sig := solana.Signature{2}
	f.expectSend(sig, &blockchain.SignatureStatus{Err: map[string]interface{}{"InstructionError": []interface{}{2, "Custom"}}})

	_, err := NewBuyer(f.deps(t), f.cfg).Buy(context.Background(), poolID, state)
	require.ErrorIs(t, err, ErrTransactionFailed)

	var txErr *TxError
	require.True(t, errors.As(err, &txErr))
	assert.Equal(t, sig, txErr.Signature)
	assert.Zero(t, f.store.Len())
	assert.Equal(t, []events.EventType{events.BuyFailed}, f.events.types())
}

func TestBuyExpiredBlockhash(t *testing.T) {
	f := newFixture(t)
	poolID, state := f.newPool(t)
	sig := solana.Signature{3}
	f.expectSend(sig, nil)
	f.client.On("GetBlockHeight", mock.Anything).Return(uint64(101), nil)

	_, err := NewBuyer(f.deps(t), f.cfg).Buy(context.Background(), poolID, state)
	require.ErrorIs(t, err, ErrTransactionExpired)
	assert.Zero(t, f.store.Len())
}

func TestBuyRejectsExistingPosition(t *testing.T) {
	f := newFixture(t)
	poolID, state := f.newPool(t)
	require.NoError(t, f.store.Put(store.Position{Mint: state.BaseMint}))

	_, err := NewBuyer(f.deps(t), f.cfg).Buy(context.Background(), poolID, state)
	require.ErrorIs(t, err, store.ErrPositionExists)
	f.client.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)
}

func (f *fixture) openPosition(t *testing.T) store.Position {
	t.Helper()
	f.expectSend(solana.Signature{9}, &blockchain.SignatureStatus{Confirmed: true})
	f.client.On("GetTokenAccountsByOwner", mock.Anything, mock.Anything, mock.Anything).
		Return([]blockchain.TokenAccount{{Amount: 100}}, nil)

	poolID, state := f.newPool(t)
	pos, err := NewBuyer(f.deps(t), f.cfg).Buy(context.Background(), poolID, state)
	require.NoError(t, err)

	f.client.ExpectedCalls = nil
	f.client.Calls = nil
	f.events.events = nil
	return *pos
}

func TestSellNotTradable(t *testing.T) {
	f := newFixture(t)
	s := NewSeller(f.deps(t), f.cfg)

	err := s.Sell(context.Background(), solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrNotTradable)

	mint := solana.NewWallet().PublicKey()
	require.NoError(t, f.store.Put(store.Position{Mint: mint}))
	assert.ErrorIs(t, s.Sell(context.Background(), mint), ErrNotTradable)
}

func TestSellZeroBalanceClosesPosition(t *testing.T) {
	f := newFixture(t)
	pos := f.openPosition(t)
	f.expectBalance(pos, 0)

	err := NewSeller(f.deps(t), f.cfg).Sell(context.Background(), pos.Mint)
	require.NoError(t, err)

	_, ok := f.store.Get(pos.Mint)
	assert.False(t, ok)
	assert.Equal(t, []events.EventType{events.PositionClosed}, f.events.types())
	f.client.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)
}

func TestSellMissingTokenAccount(t *testing.T) {
	f := newFixture(t)
	pos := f.openPosition(t)
	f.client.On("GetTokenAccountsByOwner", mock.Anything, f.wallet.PublicKey, &pos.Mint).
		Return([]blockchain.TokenAccount{}, nil)

	err := NewSeller(f.deps(t), f.cfg).Sell(context.Background(), pos.Mint)
	require.ErrorIs(t, err, ErrTokenAccountNotFound)

	f.client.AssertNumberOfCalls(t, "GetTokenAccountsByOwner", 2)
	kept, ok := f.store.Get(pos.Mint)
	require.True(t, ok)
	assert.Equal(t, 1, kept.FailedSells)
	assert.Equal(t, []events.EventType{events.SellFailed}, f.events.types())
}

func TestSellConfirmedRemovesPosition(t *testing.T) {
	f := newFixture(t)
	pos := f.openPosition(t)
	f.expectBalance(pos, 100)
	f.expectSend(solana.Signature{4}, &blockchain.SignatureStatus{Confirmed: true})

	err := NewSeller(f.deps(t), f.cfg).Sell(context.Background(), pos.Mint)
	require.NoError(t, err)

	assert.Zero(t, f.store.Len())
	assert.Equal(t, []events.EventType{events.SellConfirmed}, f.events.types())
}

func TestSellFailureKeepsPosition(t *testing.T) {
	f := newFixture(t)
	pos := f.openPosition(t)
	f.expectBalance(pos, 100)
	f.expectSend(solana.Signature{5}, &blockchain.SignatureStatus{Err: "slippage"})

	s := NewSeller(f.deps(t), f.cfg)
	require.ErrorIs(t, s.Sell(context.Background(), pos.Mint), ErrTransactionFailed)
	require.ErrorIs(t, s.Sell(context.Background(), pos.Mint), ErrTransactionFailed)

	kept, ok := f.store.Get(pos.Mint)
	require.True(t, ok)
	assert.Equal(t, 2, kept.FailedSells)
}

func TestPickTokenAccount(t *testing.T) {
	recorded := solana.NewWallet().PublicKey()
	empty := blockchain.TokenAccount{Address: solana.NewWallet().PublicKey()}
	funded := blockchain.TokenAccount{Address: solana.NewWallet().PublicKey(), Amount: 10}
	own := blockchain.TokenAccount{Address: recorded}

	tests := []struct {
		name     string
		accounts []blockchain.TokenAccount
		want     blockchain.TokenAccount
	}{
		{"recorded account wins", []blockchain.TokenAccount{funded, own}, own},
		{"funded before empty", []blockchain.TokenAccount{empty, funded}, funded},
		{"all empty", []blockchain.TokenAccount{empty}, empty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pickTokenAccount(tt.accounts, recorded))
		})
	}
}

func TestSellUsesFundedAccountWhenRecordedIsGone(t *testing.T) {
	f := newFixture(t)
	pos := f.openPosition(t)
	funded := solana.NewWallet().PublicKey()
	f.client.On("GetTokenAccountsByOwner", mock.Anything, f.wallet.PublicKey, &pos.Mint).
		Return([]blockchain.TokenAccount{
			{Address: solana.NewWallet().PublicKey(), Mint: pos.Mint},
			{Address: funded, Mint: pos.Mint, Amount: 250},
		}, nil)
	f.expectSend(solana.Signature{6}, &blockchain.SignatureStatus{Confirmed: true})

	err := NewSeller(f.deps(t), f.cfg).Sell(context.Background(), pos.Mint)
	require.NoError(t, err)

	assert.Zero(t, f.store.Len())
	require.Equal(t, []events.EventType{events.SellConfirmed}, f.events.types())
	assert.Equal(t, uint64(250), f.events.events[0].(events.TradeEvent).Amount)
}
