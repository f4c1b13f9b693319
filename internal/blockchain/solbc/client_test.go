package solbc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/rovshanmuradov/raydium-sniper/internal/blockchain"
	"github.com/rovshanmuradov/raydium-sniper/internal/dex/raydium"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// rpcServer answers every JSON-RPC call with result, echoing the request id.
func rpcServer(t *testing.T, result func(method string) string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":%s}`, req.ID, result(req.Method))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestGetAccountDataNotFound(t *testing.T) {
	srv, _ := rpcServer(t, func(string) string {
		return `{"context":{"slot":1},"value":null}`
	})
	client := NewClient(ClientConfig{Endpoint: srv.URL}, nil, zaptest.NewLogger(t))

	_, err := client.GetAccountData(context.Background(), solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, blockchain.ErrAccountNotFound)
}

func TestGetAccountData(t *testing.T) {
	payload := []byte{1, 2, 3, 4}
	srv, _ := rpcServer(t, func(string) string {
		return fmt.Sprintf(`{"context":{"slot":1},"value":{"data":["%s","base64"],"executable":false,"lamports":1,"owner":"11111111111111111111111111111111","rentEpoch":0}}`,
			base64.StdEncoding.EncodeToString(payload))
	})
	client := NewClient(ClientConfig{Endpoint: srv.URL}, nil, zaptest.NewLogger(t))

	data, err := client.GetAccountData(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestGetBlockHeightWrapsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()
	client := NewClient(ClientConfig{Endpoint: srv.URL}, nil, zaptest.NewLogger(t))

	_, err := client.GetBlockHeight(context.Background())
	require.Error(t, err)

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, "getBlockHeight", rpcErr.Method)
}

func TestRateLimiterBlocksUntilContextDone(t *testing.T) {
	srv, calls := rpcServer(t, func(string) string { return "42" })
	client := NewClient(ClientConfig{Endpoint: srv.URL, RateLimit: 1, Burst: 1}, nil, zaptest.NewLogger(t))

	height, err := client.GetBlockHeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), height)

	// The single token is spent; the next call cannot get one within 50ms.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.GetBlockHeight(ctx)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, IsRetryableError(nil))
	assert.False(t, IsRetryableError(context.Canceled))
	assert.True(t, IsRetryableError(context.DeadlineExceeded))
	assert.True(t, IsRetryableError(errors.New("dial tcp: connection refused")))
	assert.True(t, IsRetryableError(&RPCError{Method: "x", Err: errors.New("HTTP 429 Too Many Requests")}))
	assert.False(t, IsRetryableError(errors.New("invalid params")))
}

func TestCallRetriesTransientErrors(t *testing.T) {
	client := NewClient(ClientConfig{Endpoint: "http://127.0.0.1:0"}, nil, zaptest.NewLogger(t))

	attempts := 0
	err := client.call(context.Background(), "getSlot", func() error {
		attempts++
		if attempts == 1 {
			return errors.New("read: connection reset by peer")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	attempts = 0
	err = client.call(context.Background(), "getSlot", func() error {
		attempts++
		return errors.New("invalid params")
	})
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, 1, attempts)
}

func signedTransaction(t *testing.T) *solana.Transaction {
	t.Helper()
	key := solana.NewWallet().PrivateKey
	owner := key.PublicKey()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{raydium.CloseAccountInstruction(solana.NewWallet().PublicKey(), owner)},
		solana.Hash{1},
		solana.TransactionPayer(owner))
	require.NoError(t, err)
	_, err = tx.Sign(func(k solana.PublicKey) *solana.PrivateKey {
		if k.Equals(owner) {
			return &key
		}
		return nil
	})
	require.NoError(t, err)
	return tx
}

func TestSendTransactionIsNotResubmitted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "gateway timeout", http.StatusGatewayTimeout)
	}))
	defer srv.Close()
	client := NewClient(ClientConfig{Endpoint: srv.URL}, nil, zaptest.NewLogger(t))

	_, err := client.SendTransaction(context.Background(), signedTransaction(t))
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetTokenAccountsByOwnerDecodesAccounts(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	address := solana.NewWallet().PublicKey()
	data, err := bin.MarshalBin(&token.Account{
		Mint:   mint,
		Owner:  solana.NewWallet().PublicKey(),
		Amount: 777,
		State:  token.Initialized,
	})
	require.NoError(t, err)

	srv, _ := rpcServer(t, func(string) string {
		return fmt.Sprintf(`{"context":{"slot":1},"value":[{"pubkey":%q,"account":{"data":[%q,"base64"],"executable":false,"lamports":2039280,"owner":%q,"rentEpoch":0}}]}`,
			address.String(), base64.StdEncoding.EncodeToString(data), solana.TokenProgramID.String())
	})
	client := NewClient(ClientConfig{Endpoint: srv.URL}, nil, zaptest.NewLogger(t))

	accounts, err := client.GetTokenAccountsByOwner(context.Background(), solana.NewWallet().PublicKey(), &mint)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, address, accounts[0].Address)
	assert.Equal(t, mint, accounts[0].Mint)
	assert.Equal(t, uint64(777), accounts[0].Amount)
}
