// internal/blockchain/solbc/subscriber.go
package solbc

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/rovshanmuradov/raydium-sniper/internal/blockchain"
	"go.uber.org/zap"
)

// Subscriber opens websocket subscriptions. Each stream owns its connection,
// so a dropped stream is recovered by subscribing again.
type Subscriber struct {
	url        string
	commitment rpc.CommitmentType
	logger     *zap.Logger
}

var _ blockchain.Subscriber = (*Subscriber)(nil)

// NewSubscriber создаёт подписчика для websocket endpoint.
func NewSubscriber(url string, commitment rpc.CommitmentType, logger *zap.Logger) *Subscriber {
	return &Subscriber{
		url:        url,
		commitment: commitmentOrDefault(commitment),
		logger:     logger.Named("solbc-ws"),
	}
}

// SubscribeProgram subscribes to account changes of program matching filters.
func (s *Subscriber) SubscribeProgram(ctx context.Context, program solana.PublicKey, filters []rpc.RPCFilter) (blockchain.ProgramStream, error) {
	client, err := ws.Connect(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect websocket: %w", err)
	}

	sub, err := client.ProgramSubscribeWithOpts(program, s.commitment, solana.EncodingBase64, filters)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to subscribe to program %s: %w", program, err)
	}

	s.logger.Debug("Program subscription opened", zap.String("program", program.String()))
	stream := &programStream{client: client, sub: sub}
	closeOnDone(ctx, stream.Close)
	return stream, nil
}

// SubscribeLogs subscribes to logs of transactions mentioning an account.
func (s *Subscriber) SubscribeLogs(ctx context.Context, mention solana.PublicKey) (blockchain.LogStream, error) {
	client, err := ws.Connect(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect websocket: %w", err)
	}

	sub, err := client.LogsSubscribeMentions(mention, s.commitment)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to subscribe to logs of %s: %w", mention, err)
	}

	s.logger.Debug("Logs subscription opened", zap.String("mention", mention.String()))
	stream := &logStream{client: client, sub: sub}
	closeOnDone(ctx, stream.Close)
	return stream, nil
}

// closeOnDone unblocks a pending Recv once the subscription context ends.
func closeOnDone(ctx context.Context, closeFn func()) {
	go func() {
		<-ctx.Done()
		closeFn()
	}()
}

type programStream struct {
	client    *ws.Client
	sub       *ws.ProgramSubscription
	closeOnce sync.Once
}

func (p *programStream) Recv(ctx context.Context) (*blockchain.ProgramNotification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := p.sub.Recv()
	if err != nil {
		return nil, err
	}
	if res == nil || res.Value.Account == nil || res.Value.Account.Data == nil {
		return &blockchain.ProgramNotification{Account: keyOf(res)}, nil
	}
	return &blockchain.ProgramNotification{
		Account: res.Value.Pubkey,
		Data:    res.Value.Account.Data.GetBinary(),
	}, nil
}

func keyOf(res *ws.ProgramResult) solana.PublicKey {
	if res == nil {
		return solana.PublicKey{}
	}
	return res.Value.Pubkey
}

func (p *programStream) Close() {
	p.closeOnce.Do(func() {
		p.sub.Unsubscribe()
		p.client.Close()
	})
}

type logStream struct {
	client    *ws.Client
	sub       *ws.LogSubscription
	closeOnce sync.Once
}

func (l *logStream) Recv(ctx context.Context) (*blockchain.LogNotification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := l.sub.Recv()
	if err != nil {
		return nil, err
	}
	return &blockchain.LogNotification{
		Signature: res.Value.Signature,
		Err:       res.Value.Err,
		Logs:      res.Value.Logs,
	}, nil
}

func (l *logStream) Close() {
	l.closeOnce.Do(func() {
		l.sub.Unsubscribe()
		l.client.Close()
	})
}
