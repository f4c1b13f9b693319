// internal/dex/raydium/layout.go
package raydium

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// ErrInvalidLength is returned when an account buffer does not match its layout.
var ErrInvalidLength = errors.New("invalid account data length")

// LiquidityStateV4 is the decoded AMM v4 pool account.
type LiquidityStateV4 struct {
	Status                 uint64
	Nonce                  uint64
	MaxOrder               uint64
	Depth                  uint64
	BaseDecimal            uint64
	QuoteDecimal           uint64
	State                  uint64
	ResetFlag              uint64
	MinSize                uint64
	VolMaxCutRatio         uint64
	AmountWaveRatio        uint64
	BaseLotSize            uint64
	QuoteLotSize           uint64
	MinPriceMultiplier     uint64
	MaxPriceMultiplier     uint64
	SystemDecimalValue     uint64
	MinSeparateNumerator   uint64
	MinSeparateDenominator uint64
	TradeFeeNumerator      uint64
	TradeFeeDenominator    uint64
	PnlNumerator           uint64
	PnlDenominator         uint64
	SwapFeeNumerator       uint64
	SwapFeeDenominator     uint64
	BaseNeedTakePnl        uint64
	QuoteNeedTakePnl       uint64
	QuoteTotalPnl          uint64
	BaseTotalPnl           uint64
	PoolOpenTime           uint64
	PunishPcAmount         uint64
	PunishCoinAmount       uint64
	OrderbookToInitTime    uint64

	SwapBaseInAmount   bin.Uint128
	SwapQuoteOutAmount bin.Uint128
	SwapBase2QuoteFee  uint64
	SwapQuoteInAmount  bin.Uint128
	SwapBaseOutAmount  bin.Uint128
	SwapQuote2BaseFee  uint64

	BaseVault       solana.PublicKey
	QuoteVault      solana.PublicKey
	BaseMint        solana.PublicKey
	QuoteMint       solana.PublicKey
	LpMint          solana.PublicKey
	OpenOrders      solana.PublicKey
	MarketID        solana.PublicKey
	MarketProgramID solana.PublicKey
	TargetOrders    solana.PublicKey
	WithdrawQueue   solana.PublicKey
	LpVault         solana.PublicKey
	Owner           solana.PublicKey
	LpReserve       uint64
	Padding         [3]uint64
}

// QuoteReserve returns the quote-side amount used for pool size checks.
func (s *LiquidityStateV4) QuoteReserve() *big.Int {
	return u128BigInt(s.SwapQuoteInAmount)
}

func u128BigInt(v bin.Uint128) *big.Int {
	n := new(big.Int).SetUint64(v.Hi)
	n.Lsh(n, 64)
	return n.Or(n, new(big.Int).SetUint64(v.Lo))
}

// u64Fields lists the leading u64 block in layout order.
func (s *LiquidityStateV4) u64Fields() []*uint64 {
	return []*uint64{
		&s.Status, &s.Nonce, &s.MaxOrder, &s.Depth, &s.BaseDecimal, &s.QuoteDecimal,
		&s.State, &s.ResetFlag, &s.MinSize, &s.VolMaxCutRatio, &s.AmountWaveRatio,
		&s.BaseLotSize, &s.QuoteLotSize, &s.MinPriceMultiplier, &s.MaxPriceMultiplier,
		&s.SystemDecimalValue, &s.MinSeparateNumerator, &s.MinSeparateDenominator,
		&s.TradeFeeNumerator, &s.TradeFeeDenominator, &s.PnlNumerator, &s.PnlDenominator,
		&s.SwapFeeNumerator, &s.SwapFeeDenominator, &s.BaseNeedTakePnl, &s.QuoteNeedTakePnl,
		&s.QuoteTotalPnl, &s.BaseTotalPnl, &s.PoolOpenTime, &s.PunishPcAmount,
		&s.PunishCoinAmount, &s.OrderbookToInitTime,
	}
}

func (s *LiquidityStateV4) keyFields() []*solana.PublicKey {
	return []*solana.PublicKey{
		&s.BaseVault, &s.QuoteVault, &s.BaseMint, &s.QuoteMint, &s.LpMint, &s.OpenOrders,
		&s.MarketID, &s.MarketProgramID, &s.TargetOrders, &s.WithdrawQueue, &s.LpVault, &s.Owner,
	}
}

// DecodeLiquidityStateV4 decodes a pool account. The buffer must be exactly
// LiquidityStateV4Size bytes long.
func DecodeLiquidityStateV4(data []byte) (*LiquidityStateV4, error) {
	if len(data) != LiquidityStateV4Size {
		return nil, fmt.Errorf("%w: liquidity state v4 got %d, want %d", ErrInvalidLength, len(data), LiquidityStateV4Size)
	}

	s := &LiquidityStateV4{}
	r := &reader{data: data}
	for _, f := range s.u64Fields() {
		*f = r.u64()
	}
	s.SwapBaseInAmount = r.u128()
	s.SwapQuoteOutAmount = r.u128()
	s.SwapBase2QuoteFee = r.u64()
	s.SwapQuoteInAmount = r.u128()
	s.SwapBaseOutAmount = r.u128()
	s.SwapQuote2BaseFee = r.u64()
	for _, f := range s.keyFields() {
		*f = r.pubkey()
	}
	s.LpReserve = r.u64()
	for i := range s.Padding {
		s.Padding[i] = r.u64()
	}
	return s, nil
}

// Encode serializes the state back into its on-chain layout.
func (s *LiquidityStateV4) Encode() []byte {
	w := &writer{data: make([]byte, LiquidityStateV4Size)}
	for _, f := range s.u64Fields() {
		w.u64(*f)
	}
	w.u128(s.SwapBaseInAmount)
	w.u128(s.SwapQuoteOutAmount)
	w.u64(s.SwapBase2QuoteFee)
	w.u128(s.SwapQuoteInAmount)
	w.u128(s.SwapBaseOutAmount)
	w.u64(s.SwapQuote2BaseFee)
	for _, f := range s.keyFields() {
		w.pubkey(*f)
	}
	w.u64(s.LpReserve)
	for _, p := range s.Padding {
		w.u64(p)
	}
	return w.data
}

// reader walks a fixed-size buffer; callers check the length up front.
type reader struct {
	data []byte
	off  int
}

func (r *reader) u64() uint64 {
	v := binary.LittleEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v
}

func (r *reader) u128() bin.Uint128 {
	lo := r.u64()
	hi := r.u64()
	return bin.Uint128{Lo: lo, Hi: hi}
}

func (r *reader) pubkey() solana.PublicKey {
	key := solana.PublicKeyFromBytes(r.data[r.off : r.off+32])
	r.off += 32
	return key
}

type writer struct {
	data []byte
	off  int
}

func (w *writer) u64(v uint64) {
	binary.LittleEndian.PutUint64(w.data[w.off:], v)
	w.off += 8
}

func (w *writer) u128(v bin.Uint128) {
	w.u64(v.Lo)
	w.u64(v.Hi)
}

func (w *writer) pubkey(key solana.PublicKey) {
	copy(w.data[w.off:w.off+32], key[:])
	w.off += 32
}
