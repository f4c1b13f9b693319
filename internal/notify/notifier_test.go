package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/raydium-sniper/internal/events"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestFromEventBuyConfirmed(t *testing.T) {
	sig := solana.Signature{1, 2, 3}
	mint := solana.NewWallet().PublicKey()

	msg, ok := FromEvent(events.TradeEvent{
		BaseEvent: events.NewBase(events.BuyConfirmed),
		Mint:      mint,
		Signature: sig,
		Price:     decimal.RequireFromString("0.5"),
	})
	require.True(t, ok)
	assert.Equal(t, "https://solscan.io/tx/"+sig.String(), msg.Link)
	assert.Contains(t, msg.Text, "0.5")
	assert.Equal(t, mint.String(), msg.Mint)
}

func TestFromEventFailureHasReasonAndNoLink(t *testing.T) {
	msg, ok := FromEvent(events.TradeEvent{
		BaseEvent: events.NewBase(events.BuyFailed),
		Err:       errors.New("transaction expired"),
	})
	require.True(t, ok)
	assert.Empty(t, msg.Link)
	assert.Contains(t, msg.Text, "transaction expired")
}

func TestTelegramNotifier(t *testing.T) {
	var got map[string]string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42")
	n.baseURL = srv.URL

	err := n.Notify(context.Background(), Message{Text: "hello", Link: "https://solscan.io/tx/x"})
	require.NoError(t, err)
	assert.Equal(t, "/botTOKEN/sendMessage", path)
	assert.Equal(t, "42", got["chat_id"])
	assert.True(t, strings.HasPrefix(got["text"], "hello\n"))
}

func TestTelegramNotifierStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42")
	n.baseURL = srv.URL
	assert.Error(t, n.Notify(context.Background(), Message{Text: "x"}))
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaNotifierKeysByMint(t *testing.T) {
	w := &fakeWriter{}
	n := &KafkaNotifier{writer: w}

	require.NoError(t, n.Notify(context.Background(), Message{Kind: "trade.buy.confirmed", Mint: "MINT", Text: "t"}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "MINT", string(w.msgs[0].Key))

	var decoded Message
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "t", decoded.Text)
}

type failingNotifier struct{ err error }

func (f failingNotifier) Notify(context.Context, Message) error { return f.err }

func TestMultiJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	m := Multi{NewLogNotifier(zaptest.NewLogger(t)), failingNotifier{err: boom}}
	assert.ErrorIs(t, m.Notify(context.Background(), Message{Text: "x"}), boom)
}

type rowRecorder struct {
	rows [][]string
}

func (r *rowRecorder) WriteRecord(record []string) error {
	r.rows = append(r.rows, record)
	return nil
}

func TestJournalNotifierWritesRow(t *testing.T) {
	rec := &rowRecorder{}
	msg := Message{
		Kind:      string(events.SellConfirmed),
		Mint:      "mint",
		Signature: "sig",
		Link:      "https://solscan.io/tx/sig",
		Text:      "Sold 5 of mint",
		Time:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, NewJournalNotifier(rec).Notify(context.Background(), msg))
	require.Len(t, rec.rows, 1)
	assert.Equal(t, []string{"2024-05-01T12:00:00Z", "trade.sell.confirmed", "mint", "sig", "https://solscan.io/tx/sig", "Sold 5 of mint"}, rec.rows[0])
}
