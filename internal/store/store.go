// internal/store/store.go
package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/raydium-sniper/internal/dex/raydium"
	"github.com/shopspring/decimal"
)

// ErrPositionExists is returned by Put when the mint already has a position.
var ErrPositionExists = errors.New("position already exists for mint")

// Position is a held token bought from a new pool.
type Position struct {
	Mint         solana.PublicKey
	TokenAccount solana.PublicKey
	PoolID       solana.PublicKey
	PoolKeys     *raydium.PoolKeys

	// BuyPrice is raw quote units per raw base unit.
	BuyPrice       decimal.Decimal
	QuoteSpent     uint64
	TokensReceived uint64
	BuySignature   solana.Signature
	BoughtAt       time.Time

	FailedSells int
}

// MarketEntry is the cached market data of a mint.
type MarketEntry struct {
	Info         *raydium.MinimalMarketInfo
	TokenAccount solana.PublicKey
}

// Store owns all mutable trading state. Reads return copies; callers that
// mutate a mint's position hold LockMint for that mint.
type Store struct {
	mu           sync.RWMutex
	positions    map[solana.PublicKey]Position
	seenPools    map[solana.PublicKey]struct{}
	knownMints   map[solana.PublicKey]struct{}
	markets      map[solana.PublicKey]MarketEntry
	pendingSells map[solana.PublicKey]struct{}

	locksMu sync.Mutex
	locks   map[solana.PublicKey]*sync.Mutex
}

// New creates an empty store.
func New() *Store {
	return &Store{
		positions:    make(map[solana.PublicKey]Position),
		seenPools:    make(map[solana.PublicKey]struct{}),
		knownMints:   make(map[solana.PublicKey]struct{}),
		markets:      make(map[solana.PublicKey]MarketEntry),
		pendingSells: make(map[solana.PublicKey]struct{}),
		locks:        make(map[solana.PublicKey]*sync.Mutex),
	}
}

// LockMint acquires the per-mint mutex and returns its release func.
func (s *Store) LockMint(mint solana.PublicKey) (unlock func()) {
	s.locksMu.Lock()
	l, ok := s.locks[mint]
	if !ok {
		l = &sync.Mutex{}
		s.locks[mint] = l
	}
	s.locksMu.Unlock()

	l.Lock()
	return l.Unlock
}

// Get returns a copy of the position for mint.
func (s *Store) Get(mint solana.PublicKey) (Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[mint]
	return p, ok
}

// Put stores a new position. It never overwrites an existing one.
func (s *Store) Put(p Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[p.Mint]; ok {
		return ErrPositionExists
	}
	s.positions[p.Mint] = p
	return nil
}

// Remove deletes the position for mint and any pending sell mark.
func (s *Store) Remove(mint solana.PublicKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.positions[mint]
	delete(s.positions, mint)
	delete(s.pendingSells, mint)
	return ok
}

// Positions returns a snapshot of all open positions, oldest first.
func (s *Store) Positions() []Position {
	s.mu.RLock()
	out := make([]Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].BoughtAt.Before(out[j].BoughtAt) })
	return out
}

// Len returns the number of open positions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.positions)
}

// MarkSeenPool records a pool id and reports whether it was new.
func (s *Store) MarkSeenPool(id solana.PublicKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seenPools[id]; ok {
		return false
	}
	s.seenPools[id] = struct{}{}
	return true
}

func (s *Store) HasSeenPool(id solana.PublicKey) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seenPools[id]
	return ok
}

// AddKnownMint adds mint and reports whether it was not known before.
// Exactly one concurrent caller wins for a given mint.
func (s *Store) AddKnownMint(mint solana.PublicKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.knownMints[mint]; ok {
		return false
	}
	s.knownMints[mint] = struct{}{}
	return true
}

func (s *Store) IsKnownMint(mint solana.PublicKey) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.knownMints[mint]
	return ok
}

// MarketInfo returns the cached market data of mint.
func (s *Store) MarketInfo(mint solana.PublicKey) (MarketEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.markets[mint]
	return e, ok
}

// PutMarketInfo caches market data and the token account for mint.
func (s *Store) PutMarketInfo(mint solana.PublicKey, info *raydium.MinimalMarketInfo, tokenAccount solana.PublicKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets[mint] = MarketEntry{Info: info, TokenAccount: tokenAccount}
}

// MarkPendingSell flags a sell in flight. It returns false if one already is.
func (s *Store) MarkPendingSell(mint solana.PublicKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pendingSells[mint]; ok {
		return false
	}
	s.pendingSells[mint] = struct{}{}
	return true
}

func (s *Store) ClearPendingSell(mint solana.PublicKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pendingSells, mint)
}

func (s *Store) IsPendingSell(mint solana.PublicKey) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pendingSells[mint]
	return ok
}

// RecordSellFailure increments the failed sell count and returns it. It
// returns 0 when the mint has no position.
func (s *Store) RecordSellFailure(mint solana.PublicKey) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[mint]
	if !ok {
		return 0
	}
	p.FailedSells++
	s.positions[mint] = p
	return p.FailedSells
}
