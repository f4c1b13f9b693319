// internal/notify/notifier.go
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/raydium-sniper/internal/events"
	"go.uber.org/zap"
)

const explorerTxURL = "https://solscan.io/tx/"

// Message is a human-readable trade outcome.
type Message struct {
	Kind      string    `json:"kind"`
	Mint      string    `json:"mint,omitempty"`
	Text      string    `json:"text"`
	Link      string    `json:"link,omitempty"`
	Signature string    `json:"signature,omitempty"`
	Time      time.Time `json:"time"`
}

// Notifier surfaces a message to an operator.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// ExplorerLink returns the explorer URL for a transaction signature.
func ExplorerLink(sig solana.Signature) string {
	if sig == (solana.Signature{}) {
		return ""
	}
	return explorerTxURL + sig.String()
}

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes messages to the process log.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notify")}
}

func (l *LogNotifier) Notify(_ context.Context, msg Message) error {
	l.logger.Info(msg.Text,
		zap.String("kind", msg.Kind),
		zap.String("mint", msg.Mint),
		zap.String("link", msg.Link))
	return nil
}

// FromEvent renders a bus event. ok is false for events that are not
// surfaced to the operator.
func FromEvent(e events.Event) (Message, bool) {
	msg := Message{Kind: string(e.Type()), Time: e.Timestamp()}

	switch ev := e.(type) {
	case events.TradeEvent:
		msg.Mint = ev.Mint.String()
		if ev.Signature != (solana.Signature{}) {
			msg.Signature = ev.Signature.String()
			msg.Link = ExplorerLink(ev.Signature)
		}
		switch ev.Type() {
		case events.BuyConfirmed:
			msg.Text = fmt.Sprintf("Bought %s at %s per token", ev.Mint, ev.Price.String())
		case events.SellConfirmed:
			msg.Text = fmt.Sprintf("Sold %d of %s", ev.Amount, ev.Mint)
		case events.BuyFailed:
			msg.Text = fmt.Sprintf("Buy of %s failed: %v", ev.Mint, ev.Err)
		case events.SellFailed:
			msg.Text = fmt.Sprintf("Sell of %s failed: %v", ev.Mint, ev.Err)
		default:
			return Message{}, false
		}
	case events.PositionClosedEvent:
		msg.Mint = ev.Mint.String()
		msg.Text = fmt.Sprintf("Position %s closed: %s", ev.Mint, ev.Reason)
	case events.LiquidityBurnedEvent:
		msg.Signature = ev.Signature.String()
		msg.Link = ExplorerLink(ev.Signature)
		msg.Text = "Liquidity burned"
	default:
		return Message{}, false
	}
	return msg, true
}

// EventHandler adapts a Notifier to the event bus.
func EventHandler(n Notifier) events.Handler {
	return events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		msg, ok := FromEvent(e)
		if !ok {
			return nil
		}
		return n.Notify(ctx, msg)
	})
}
