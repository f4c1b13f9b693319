// internal/listener/listener.go
package listener

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/raydium-sniper/internal/blockchain"
	"github.com/rovshanmuradov/raydium-sniper/internal/dex/raydium"
	"github.com/rovshanmuradov/raydium-sniper/internal/metrics"
	"github.com/rovshanmuradov/raydium-sniper/internal/store"
	"go.uber.org/zap"
)

// Handler receives a new pool. It runs on its own goroutine.
type Handler func(ctx context.Context, poolID solana.PublicKey, state *raydium.LiquidityStateV4)

// Config configures the pool listener.
type Config struct {
	QuoteMint       solana.PublicKey
	MarketProgramID solana.PublicKey
	// StartTime filters out pools that opened before the process started.
	StartTime time.Time
}

// PoolListener streams newly opened AMM v4 pools.
type PoolListener struct {
	sub     blockchain.Subscriber
	store   *store.Store
	cfg     Config
	metrics *metrics.Collector
	logger  *zap.Logger

	newBackOff func() backoff.BackOff
	wg         sync.WaitGroup
}

func NewPoolListener(sub blockchain.Subscriber, st *store.Store, cfg Config, m *metrics.Collector, logger *zap.Logger) *PoolListener {
	if cfg.MarketProgramID.IsZero() {
		cfg.MarketProgramID = raydium.OpenBookProgramID
	}
	return &PoolListener{
		sub:        sub,
		store:      st,
		cfg:        cfg,
		metrics:    m,
		logger:     logger.Named("listener"),
		newBackOff: newReconnectBackOff,
	}
}

// Filters returns the server-side predicates of the pool subscription.
func Filters(quoteMint, marketProgramID solana.PublicKey) []rpc.RPCFilter {
	status := make([]byte, 8)
	binary.LittleEndian.PutUint64(status, raydium.StatusSwapOnly)

	return []rpc.RPCFilter{
		{DataSize: raydium.LiquidityStateV4Size},
		{Memcmp: &rpc.RPCFilterMemcmp{Offset: raydium.QuoteMintOffset, Bytes: solana.Base58(quoteMint[:])}},
		{Memcmp: &rpc.RPCFilterMemcmp{Offset: raydium.MarketProgramIDOffset, Bytes: solana.Base58(marketProgramID[:])}},
		{Memcmp: &rpc.RPCFilterMemcmp{Offset: raydium.StatusOffset, Bytes: solana.Base58(status)}},
	}
}

// Run subscribes and dispatches pools to handler until ctx is cancelled.
// Dropped subscriptions are re-established. Run returns once all dispatched
// handlers have finished.
func (l *PoolListener) Run(ctx context.Context, handler Handler) error {
	l.logger.Info("Listening for new pools",
		zap.String("quote_mint", l.cfg.QuoteMint.String()),
		zap.Time("start_time", l.cfg.StartTime))

	err := keepAlive(ctx, "pools", l.newBackOff(), l.metrics, l.logger, func(ctx context.Context) error {
		return l.session(ctx, handler)
	})
	l.wg.Wait()
	return err
}

// session owns one subscription. Handlers get runCtx so a reconnect does not
// cancel work already dispatched.
func (l *PoolListener) session(runCtx context.Context, handler Handler) error {
	ctx, cancel := context.WithCancel(runCtx)
	defer cancel()

	stream, err := l.sub.SubscribeProgram(ctx, raydium.AmmV4ProgramID, Filters(l.cfg.QuoteMint, l.cfg.MarketProgramID))
	if err != nil {
		return fmt.Errorf("subscribe to pools: %w", err)
	}
	defer stream.Close()

	for {
		n, err := stream.Recv(ctx)
		if err != nil {
			return fmt.Errorf("receive pool notification: %w", err)
		}
		l.dispatch(runCtx, n, handler)
	}
}

// dispatch decodes a notification and hands new pools to handler.
func (l *PoolListener) dispatch(ctx context.Context, n *blockchain.ProgramNotification, handler Handler) {
	state, err := raydium.DecodeLiquidityStateV4(n.Data)
	if err != nil {
		l.logger.Warn("Dropping undecodable pool notification",
			zap.String("pool", n.Account.String()),
			zap.Error(err))
		return
	}

	if !l.store.MarkSeenPool(n.Account) {
		return
	}
	if !l.openedAfterStart(state) {
		return
	}

	l.metrics.PoolSeen()
	l.logger.Debug("New pool",
		zap.String("pool", n.Account.String()),
		zap.String("base_mint", state.BaseMint.String()),
		zap.Uint64("open_time", state.PoolOpenTime))

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		handler(ctx, n.Account, state)
	}()
}

func (l *PoolListener) openedAfterStart(state *raydium.LiquidityStateV4) bool {
	start := l.cfg.StartTime.Unix()
	if start < 0 {
		return true
	}
	return state.PoolOpenTime > uint64(start)
}
