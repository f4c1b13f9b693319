// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/rovshanmuradov/raydium-sniper/internal/dex/raydium"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// ErrUnsupportedQuoteMint is returned for a quote_mint outside WSOL and USDC.
var ErrUnsupportedQuoteMint = fmt.Errorf("quote_mint: %w", raydium.ErrUnsupportedQuote)

// EnvPrefix prefixes environment overrides, e.g. SNIPER_PRIVATE_KEY.
const EnvPrefix = "SNIPER"

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// File mirrors the config file and environment. Durations are in
// milliseconds, amounts are decimal strings in quote token units and
// take_profit/stop_loss are percentages.
type File struct {
	RPCEndpoint  string `mapstructure:"rpc_endpoint"`
	WebSocketURL string `mapstructure:"websocket_url"`
	Commitment   string `mapstructure:"commitment"`
	PrivateKey   string `mapstructure:"private_key"`

	QuoteMint          string `mapstructure:"quote_mint"`
	QuoteAmount        string `mapstructure:"quote_amount"`
	MinPoolSize        string `mapstructure:"min_pool_size"`
	CheckMintRenounced bool   `mapstructure:"check_mint_renounced"`
	CheckLPBurned      bool   `mapstructure:"check_lp_burned"`

	UseSnipeList             bool   `mapstructure:"use_snipe_list"`
	SnipeListPath            string `mapstructure:"snipe_list_path"`
	SnipeListRefreshInterval int    `mapstructure:"snipe_list_refresh_interval"`

	AutoSell        bool    `mapstructure:"auto_sell"`
	AutoSellDelay   int     `mapstructure:"auto_sell_delay"`
	TakeProfit      float64 `mapstructure:"take_profit"`
	StopLoss        float64 `mapstructure:"stop_loss"`
	MonitorInterval int     `mapstructure:"monitor_interval"`
	ExitPriceMode   string  `mapstructure:"exit_price_mode"`
	MaxSellRetries  int     `mapstructure:"max_sell_retries"`
	SellRetryWait   int     `mapstructure:"sell_retry_wait"`

	RPCRateLimit     float64 `mapstructure:"rpc_rate_limit"`
	RPCBurst         int     `mapstructure:"rpc_burst"`
	ComputeUnitPrice uint64  `mapstructure:"compute_unit_price"`
	ComputeUnitLimit uint32  `mapstructure:"compute_unit_limit"`
	SkipPreflight    bool    `mapstructure:"skip_preflight"`

	DebugLogging bool   `mapstructure:"debug_logging"`
	LogFile      string `mapstructure:"log_file"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
	TrackLPBurns bool   `mapstructure:"track_lp_burns"`
	TradeJournal string `mapstructure:"trade_journal"`

	Telegram TelegramConfig `mapstructure:"telegram"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
}

// Config is the validated configuration with parsed amounts and durations.
type Config struct {
	File

	Quote       raydium.QuoteToken
	QuoteAmount *big.Int // raw units
	MinPoolSize *big.Int // raw units

	TakeProfit decimal.Decimal // fraction
	StopLoss   decimal.Decimal // fraction

	AutoSellDelay            time.Duration
	MonitorInterval          time.Duration
	SellRetryWait            time.Duration
	SnipeListRefreshInterval time.Duration
}

const (
	DefaultCommitment               = "confirmed"
	DefaultQuoteMint                = "WSOL"
	DefaultQuoteAmount              = "0.01"
	DefaultMinPoolSize              = "0"
	DefaultSnipeListPath            = "snipe-list.yaml"
	DefaultSnipeListRefreshInterval = 20000
	DefaultTakeProfit               = 50
	DefaultStopLoss                 = 10
	DefaultMonitorInterval          = 2000
	DefaultExitPriceMode            = "reserves"
	DefaultMaxSellRetries           = 5
	DefaultSellRetryWait            = 1000
	DefaultRPCRateLimit             = 10
	DefaultRPCBurst                 = 10
	DefaultComputeUnitPrice         = raydium.DefaultComputeUnitPrice
	DefaultComputeUnitLimit         = raydium.DefaultComputeUnitLimit
	DefaultLogFile                  = "logs/sniper.log"
)

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"commitment":                  DefaultCommitment,
		"quote_mint":                  DefaultQuoteMint,
		"quote_amount":                DefaultQuoteAmount,
		"min_pool_size":               DefaultMinPoolSize,
		"check_mint_renounced":        true,
		"check_lp_burned":             false,
		"use_snipe_list":              false,
		"snipe_list_path":             DefaultSnipeListPath,
		"snipe_list_refresh_interval": DefaultSnipeListRefreshInterval,
		"auto_sell":                   true,
		"auto_sell_delay":             0,
		"take_profit":                 DefaultTakeProfit,
		"stop_loss":                   DefaultStopLoss,
		"monitor_interval":            DefaultMonitorInterval,
		"exit_price_mode":             DefaultExitPriceMode,
		"max_sell_retries":            DefaultMaxSellRetries,
		"sell_retry_wait":             DefaultSellRetryWait,
		"rpc_rate_limit":              DefaultRPCRateLimit,
		"rpc_burst":                   DefaultRPCBurst,
		"compute_unit_price":          DefaultComputeUnitPrice,
		"compute_unit_limit":          DefaultComputeUnitLimit,
		"skip_preflight":              false,
		"debug_logging":               false,
		"log_file":                    DefaultLogFile,
		"metrics_addr":                "",
		"track_lp_burns":              false,
		"trade_journal":               "",
		"private_key":                 "",
		"rpc_endpoint":                "",
		"websocket_url":               "",
		"telegram.bot_token":          "",
		"telegram.chat_id":            "",
		"kafka.brokers":               []string{},
		"kafka.topic":                 "",
	}
}

// LoadConfig reads path (optional) and SNIPER_* environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var f File
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	// Из окружения список приходит разбитым по запятым, но без обрезки пробелов.
	f.Kafka.Brokers = cleanList(f.Kafka.Brokers)

	return build(f)
}

func build(f File) (*Config, error) {
	if err := validateFile(&f); err != nil {
		return nil, err
	}

	quote, err := raydium.LookupQuoteToken(f.QuoteMint)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedQuoteMint, f.QuoteMint)
	}

	quoteAmount, err := quote.ParseAmount(f.QuoteAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid quote_amount: %w", err)
	}
	if quoteAmount.Sign() == 0 {
		return nil, errors.New("quote_amount must be positive")
	}
	if !quoteAmount.IsUint64() {
		return nil, errors.New("quote_amount is too large")
	}
	minPoolSize, err := quote.ParseAmount(f.MinPoolSize)
	if err != nil {
		return nil, fmt.Errorf("invalid min_pool_size: %w", err)
	}

	hundred := decimal.NewFromInt(100)
	return &Config{
		File:                     f,
		Quote:                    quote,
		QuoteAmount:              quoteAmount,
		MinPoolSize:              minPoolSize,
		TakeProfit:               decimal.NewFromFloat(f.TakeProfit).Div(hundred),
		StopLoss:                 decimal.NewFromFloat(f.StopLoss).Div(hundred),
		AutoSellDelay:            millis(f.AutoSellDelay),
		MonitorInterval:          millis(f.MonitorInterval),
		SellRetryWait:            millis(f.SellRetryWait),
		SnipeListRefreshInterval: millis(f.SnipeListRefreshInterval),
	}, nil
}

func validateFile(f *File) error {
	if f.PrivateKey == "" {
		return errors.New("missing private_key in configuration")
	}
	if err := validateURL(f.RPCEndpoint, "http"); err != nil {
		return fmt.Errorf("invalid rpc_endpoint: %w", err)
	}
	if err := validateURL(f.WebSocketURL, "ws"); err != nil {
		return fmt.Errorf("invalid websocket_url: %w", err)
	}
	switch f.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("invalid commitment %q", f.Commitment)
	}
	if err := validateNumericParams(f); err != nil {
		return err
	}
	switch f.ExitPriceMode {
	case "reserves", "swap_counters":
	default:
		return fmt.Errorf("invalid exit_price_mode %q", f.ExitPriceMode)
	}
	if f.UseSnipeList && f.SnipeListPath == "" {
		return errors.New("use_snipe_list requires snipe_list_path")
	}
	if (f.Telegram.BotToken == "") != (f.Telegram.ChatID == "") {
		return errors.New("telegram.bot_token and telegram.chat_id must be set together")
	}
	if len(f.Kafka.Brokers) > 0 && f.Kafka.Topic == "" {
		return errors.New("kafka.topic is required when kafka.brokers is set")
	}
	return nil
}

func validateNumericParams(f *File) error {
	if f.MonitorInterval <= 0 {
		return errors.New("invalid monitor_interval")
	}
	if f.AutoSellDelay < 0 {
		return errors.New("invalid auto_sell_delay")
	}
	if f.SellRetryWait < 0 {
		return errors.New("invalid sell_retry_wait")
	}
	if f.SnipeListRefreshInterval <= 0 {
		return errors.New("invalid snipe_list_refresh_interval")
	}
	if f.TakeProfit <= 0 {
		return errors.New("take_profit must be positive")
	}
	if f.StopLoss < 0 || f.StopLoss > 100 {
		return errors.New("stop_loss must be between 0 and 100")
	}
	if f.MaxSellRetries < 0 {
		return errors.New("invalid max_sell_retries")
	}
	if f.RPCRateLimit < 0 || f.RPCBurst < 0 {
		return errors.New("invalid rpc rate limit")
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	if rawURL == "" {
		return errors.New("URL is empty")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	return nil
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// cleanList splits every element on commas and drops blanks.
func cleanList(items []string) []string {
	var out []string
	for _, item := range items {
		out = append(out, splitList(item)...)
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if clean := strings.TrimSpace(part); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}
