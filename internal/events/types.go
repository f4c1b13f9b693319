// internal/events/types.go
package events

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// EventType represents the type of event.
type EventType string

const (
	// AllEvents subscribes a handler to every event type.
	AllEvents EventType = "*"

	// Trade events
	BuyConfirmed  EventType = "trade.buy.confirmed"
	BuyFailed     EventType = "trade.buy.failed"
	SellConfirmed EventType = "trade.sell.confirmed"
	SellFailed    EventType = "trade.sell.failed"

	// Position events
	PositionClosed EventType = "position.closed"

	// Pool events
	LiquidityBurned EventType = "pool.liquidity_burned"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// NewBase stamps a BaseEvent with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// TradeEvent reports the outcome of a buy or a sell. Signature is zero when
// nothing was submitted; Err is set on failure.
type TradeEvent struct {
	BaseEvent
	TradeID   string
	Mint      solana.PublicKey
	PoolID    solana.PublicKey
	Signature solana.Signature
	Amount    uint64
	Price     decimal.Decimal
	Err       error
}

// PositionClosedEvent is emitted when a position is removed without a swap
// because the wallet no longer holds the token.
type PositionClosedEvent struct {
	BaseEvent
	Mint   solana.PublicKey
	Reason string
}

// LiquidityBurnedEvent is emitted for a transaction that burned LP tokens.
type LiquidityBurnedEvent struct {
	BaseEvent
	Signature solana.Signature
}
