// internal/snipelist/snipelist.go
package snipelist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// File is the on-disk format of the snipe list.
type File struct {
	Mints []string `yaml:"mints"`
}

// List is the set of base mints allowed for trading, reloaded from a YAML file.
type List struct {
	path   string
	logger *zap.Logger

	mu    sync.RWMutex
	mints map[solana.PublicKey]struct{}
}

// New creates a list backed by path. Call Load before use.
func New(path string, logger *zap.Logger) *List {
	return &List{
		path:   filepath.Clean(path),
		logger: logger.Named("snipe-list"),
		mints:  make(map[solana.PublicKey]struct{}),
	}
}

// Load reads the file and replaces the current set. Invalid entries are
// skipped with a warning.
func (l *List) Load() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("failed to read snipe list: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse snipe list: %w", err)
	}

	mints := make(map[solana.PublicKey]struct{}, len(f.Mints))
	for _, s := range f.Mints {
		pk, err := solana.PublicKeyFromBase58(s)
		if err != nil {
			l.logger.Warn("Skipping invalid mint in snipe list", zap.String("mint", s), zap.Error(err))
			continue
		}
		mints[pk] = struct{}{}
	}

	l.mu.Lock()
	l.mints = mints
	l.mu.Unlock()

	l.logger.Debug("Snipe list loaded", zap.Int("mints", len(mints)))
	return nil
}

// Contains reports whether mint is on the list.
func (l *List) Contains(mint solana.PublicKey) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.mints[mint]
	return ok
}

func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.mints)
}

// Run reloads the list every interval until ctx is cancelled. A failed
// reload keeps the previous set.
func (l *List) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := l.Load(); err != nil {
				l.logger.Warn("Snipe list reload failed", zap.Error(err))
			}
		}
	}
}
