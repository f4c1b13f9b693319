package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rovshanmuradov/raydium-sniper/internal/dex/raydium"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
rpc_endpoint: https://api.mainnet-beta.solana.com
websocket_url: wss://api.mainnet-beta.solana.com
private_key: secret
quote_mint: usdc
quote_amount: "1.5"
min_pool_size: "1000"
take_profit: 40
stop_loss: 15
auto_sell_delay: 2500
telegram:
  bot_token: token
  chat_id: "42"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "USDC", cfg.Quote.Symbol)
	assert.Zero(t, big.NewInt(1_500_000).Cmp(cfg.QuoteAmount))
	assert.Zero(t, big.NewInt(1_000_000_000).Cmp(cfg.MinPoolSize))
	assert.True(t, decimal.RequireFromString("0.4").Equal(cfg.TakeProfit))
	assert.True(t, decimal.RequireFromString("0.15").Equal(cfg.StopLoss))
	assert.Equal(t, 2500*time.Millisecond, cfg.AutoSellDelay)
	assert.Equal(t, DefaultMonitorInterval*time.Millisecond, cfg.MonitorInterval)
	assert.Equal(t, "reserves", cfg.ExitPriceMode)
	assert.Equal(t, raydium.DefaultComputeUnitPrice, cfg.ComputeUnitPrice)
	assert.Equal(t, "42", cfg.Telegram.ChatID)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("SNIPER_PRIVATE_KEY", "from-env")
	t.Setenv("SNIPER_KAFKA_BROKERS", "a:9092, b:9092")
	t.Setenv("SNIPER_KAFKA_TOPIC", "trades")

	cfg, err := LoadConfig(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.PrivateKey)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
}

func TestCleanList(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092", "c:9092"},
		cleanList([]string{"a:9092", " b:9092", "", " c:9092 ,"}))
	assert.Equal(t, []string{"a:9092", "b:9092"}, cleanList([]string{"a:9092, b:9092"}))
	assert.Empty(t, cleanList(nil))
}

func TestUnsupportedQuoteMint(t *testing.T) {
	t.Setenv("SNIPER_QUOTE_MINT", "BONK")

	_, err := LoadConfig(writeConfig(t, testConfig))
	require.ErrorIs(t, err, ErrUnsupportedQuoteMint)
	assert.ErrorIs(t, err, raydium.ErrUnsupportedQuote)
}

func TestValidate(t *testing.T) {
	valid := func() File {
		return File{
			RPCEndpoint:              "http://localhost:8899",
			WebSocketURL:             "ws://localhost:8900",
			Commitment:               "confirmed",
			PrivateKey:               "secret",
			QuoteMint:                "WSOL",
			QuoteAmount:              "0.1",
			MinPoolSize:              "0",
			SnipeListRefreshInterval: 1000,
			TakeProfit:               50,
			StopLoss:                 10,
			MonitorInterval:          1000,
			ExitPriceMode:            "reserves",
		}
	}

	tests := []struct {
		name   string
		modify func(*File)
		ok     bool
	}{
		{name: "valid", modify: func(*File) {}, ok: true},
		{name: "missing key", modify: func(f *File) { f.PrivateKey = "" }},
		{name: "bad rpc scheme", modify: func(f *File) { f.RPCEndpoint = "ws://localhost" }},
		{name: "bad ws scheme", modify: func(f *File) { f.WebSocketURL = "http://localhost" }},
		{name: "bad commitment", modify: func(f *File) { f.Commitment = "max" }},
		{name: "zero quote amount", modify: func(f *File) { f.QuoteAmount = "0" }},
		{name: "negative pool size", modify: func(f *File) { f.MinPoolSize = "-1" }},
		{name: "stop loss above 100", modify: func(f *File) { f.StopLoss = 101 }},
		{name: "unknown price mode", modify: func(f *File) { f.ExitPriceMode = "oracle" }},
		{name: "legacy price mode", modify: func(f *File) { f.ExitPriceMode = "swap_counters" }, ok: true},
		{name: "telegram half set", modify: func(f *File) { f.Telegram.BotToken = "x" }},
		{name: "kafka without topic", modify: func(f *File) { f.Kafka.Brokers = []string{"a:9092"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid()
			tt.modify(&f)
			_, err := build(f)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
