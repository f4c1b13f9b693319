// internal/bot/bot.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/raydium-sniper/internal/blockchain"
	"github.com/rovshanmuradov/raydium-sniper/internal/blockchain/solbc"
	"github.com/rovshanmuradov/raydium-sniper/internal/config"
	"github.com/rovshanmuradov/raydium-sniper/internal/dex/raydium"
	"github.com/rovshanmuradov/raydium-sniper/internal/events"
	"github.com/rovshanmuradov/raydium-sniper/internal/filter"
	"github.com/rovshanmuradov/raydium-sniper/internal/listener"
	"github.com/rovshanmuradov/raydium-sniper/internal/logger"
	"github.com/rovshanmuradov/raydium-sniper/internal/metrics"
	"github.com/rovshanmuradov/raydium-sniper/internal/monitor"
	"github.com/rovshanmuradov/raydium-sniper/internal/notify"
	"github.com/rovshanmuradov/raydium-sniper/internal/snipelist"
	"github.com/rovshanmuradov/raydium-sniper/internal/store"
	"github.com/rovshanmuradov/raydium-sniper/internal/trade"
	"github.com/rovshanmuradov/raydium-sniper/internal/wallet"
	"go.uber.org/zap"
)

// ErrQuoteAccountMissing is returned when the wallet holds no account for
// the configured quote token.
var ErrQuoteAccountMissing = errors.New("wallet has no token account for the quote mint")

const (
	eventBufferSize = 256
	journalFlush    = 5 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Bot wires the sniper pipeline: listener -> filter -> buyer, and the exit
// monitor -> seller loop.
type Bot struct {
	cfg     *config.Config
	logger  *zap.Logger
	client  blockchain.Client
	sub     blockchain.Subscriber
	wallet  *wallet.Wallet
	store   *store.Store
	bus     *events.Bus
	metrics *metrics.Collector

	snipeList *snipelist.List
	filter    *filter.Filter
	buyer     *trade.Buyer
	seller    *trade.Seller
	monitor   *monitor.ExitMonitor
	listener  *listener.PoolListener
	burns     *listener.BurnWatcher
	journal   *logger.SafeCSVWriter

	shutdown *ShutdownHandler
	started  time.Time
}

// New builds a Bot talking to the configured RPC and websocket endpoints.
func New(cfg *config.Config, log *zap.Logger) (*Bot, error) {
	m := metrics.NewCollector()
	commitment := rpc.CommitmentType(cfg.Commitment)

	client := solbc.NewClient(solbc.ClientConfig{
		Endpoint:      cfg.RPCEndpoint,
		Commitment:    commitment,
		RateLimit:     cfg.RPCRateLimit,
		Burst:         cfg.RPCBurst,
		SkipPreflight: cfg.SkipPreflight,
	}, m, log)
	sub := solbc.NewSubscriber(cfg.WebSocketURL, commitment, log)

	return newBot(cfg, client, sub, m, log)
}

func newBot(cfg *config.Config, client blockchain.Client, sub blockchain.Subscriber, m *metrics.Collector, log *zap.Logger) (*Bot, error) {
	w, err := wallet.NewWallet(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}

	b := &Bot{
		cfg:      cfg,
		logger:   log.Named("bot"),
		client:   client,
		sub:      sub,
		wallet:   w,
		store:    store.New(),
		bus:      events.NewBus(log, eventBufferSize),
		metrics:  m,
		shutdown: NewShutdownHandler(log, shutdownTimeout),
		started:  time.Now(),
	}
	b.shutdown.AddFunc("event_bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return b.bus.Shutdown(ctx)
	})

	filterCfg := filter.Config{
		MinPoolSize:        cfg.MinPoolSize,
		CheckMintRenounced: cfg.CheckMintRenounced,
		CheckLPBurned:      cfg.CheckLPBurned,
	}
	if cfg.UseSnipeList {
		b.snipeList = snipelist.New(cfg.SnipeListPath, log)
		if err := b.snipeList.Load(); err != nil {
			return nil, fmt.Errorf("failed to load snipe list: %w", err)
		}
		filterCfg.SnipeList = b.snipeList
	}
	b.filter = filter.New(client, b.store, filterCfg, m, log)

	if err := b.setupNotifiers(); err != nil {
		return nil, err
	}

	b.listener = listener.NewPoolListener(sub, b.store, listener.Config{
		QuoteMint: cfg.Quote.Mint,
		StartTime: b.started,
	}, m, log)
	if cfg.TrackLPBurns {
		b.burns = listener.NewBurnWatcher(sub, b.bus, m, log)
	}
	return b, nil
}

// setupNotifiers subscribes the configured sinks to the bus.
func (b *Bot) setupNotifiers() error {
	sinks := notify.Multi{notify.NewLogNotifier(b.logger)}

	if b.cfg.Telegram.BotToken != "" {
		tg := notify.NewTelegramNotifier(b.cfg.Telegram.BotToken, b.cfg.Telegram.ChatID)
		// В телеграм только сделки и сжигание ликвидности.
		b.bus.Subscribe(events.AllEvents, events.Only(notify.EventHandler(tg),
			events.BuyConfirmed, events.SellConfirmed, events.SellFailed, events.LiquidityBurned))
	}
	if len(b.cfg.Kafka.Brokers) > 0 {
		k := notify.NewKafkaNotifier(b.cfg.Kafka.Brokers, b.cfg.Kafka.Topic)
		sinks = append(sinks, k)
		b.shutdown.Add("kafka", k)
	}
	if b.cfg.TradeJournal != "" {
		journal, err := logger.NewSafeCSVWriter(b.cfg.TradeJournal, logger.JournalHeader, journalFlush, b.logger)
		if err != nil {
			return fmt.Errorf("failed to open trade journal: %w", err)
		}
		b.journal = journal
		sinks = append(sinks, notify.NewJournalNotifier(journal))
		b.shutdown.Add("trade_journal", journal)
	}

	b.bus.Subscribe(events.AllEvents, notify.EventHandler(sinks))
	return nil
}

// loadWallet scans the wallet's token accounts. The quote account is
// required; the others are remembered as the wallet's accounts for their
// mints.
func (b *Bot) loadWallet(ctx context.Context) (solana.PublicKey, error) {
	accounts, err := b.client.GetTokenAccountsByOwner(ctx, b.wallet.PublicKey, nil)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to load wallet token accounts: %w", err)
	}

	var quoteAccount solana.PublicKey
	for _, acc := range accounts {
		if acc.Mint.Equals(b.cfg.Quote.Mint) {
			quoteAccount = acc.Address
			continue
		}
		b.wallet.RememberTokenAccount(acc.Mint, acc.Address)
	}
	if quoteAccount.IsZero() {
		return solana.PublicKey{}, fmt.Errorf("%w: %s", ErrQuoteAccountMissing, b.cfg.Quote.Symbol)
	}

	b.logger.Info("Wallet loaded",
		zap.String("wallet", b.wallet.PublicKey.String()),
		zap.Int("token_accounts", len(accounts)),
		zap.String("quote_account", quoteAccount.String()))
	return quoteAccount, nil
}

// setupTrading builds the executors once the quote account is known.
func (b *Bot) setupTrading(quoteAccount solana.PublicKey) {
	deps := trade.Deps{
		Client:    b.client,
		Wallet:    b.wallet,
		Store:     b.store,
		Publisher: b.bus,
		Metrics:   b.metrics,
		Logger:    b.logger,
	}
	tradeCfg := trade.Config{
		Quote:             b.cfg.Quote,
		QuoteAmount:       b.cfg.QuoteAmount.Uint64(),
		QuoteTokenAccount: quoteAccount,
		ComputeUnitPrice:  b.cfg.ComputeUnitPrice,
		ComputeUnitLimit:  b.cfg.ComputeUnitLimit,
		SellRetryWait:     b.cfg.SellRetryWait,
	}
	b.buyer = trade.NewBuyer(deps, tradeCfg)
	b.seller = trade.NewSeller(deps, tradeCfg)

	b.monitor = monitor.NewExitMonitor(b.client, b.store, b.seller, monitor.ExitConfig{
		Interval:       b.cfg.MonitorInterval,
		TakeProfit:     b.cfg.TakeProfit,
		StopLoss:       b.cfg.StopLoss,
		PriceMode:      monitor.PriceMode(b.cfg.ExitPriceMode),
		AutoSellDelay:  b.cfg.AutoSellDelay,
		MaxSellRetries: b.cfg.MaxSellRetries,
	}, b.metrics, b.logger)
}

// handlePool runs admission and, on success, the buy. The filter logs its
// decision.
func (b *Bot) handlePool(ctx context.Context, poolID solana.PublicKey, state *raydium.LiquidityStateV4) {
	if !b.filter.Evaluate(ctx, poolID, state).Admit {
		return
	}
	// Ошибки покупки уже залогированы и опубликованы исполнителем.
	_, _ = b.buyer.Buy(ctx, poolID, state)
}
