// ====================================
// File: cmd/bot/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/raydium-sniper/internal/bot"
	"github.com/rovshanmuradov/raydium-sniper/internal/config"
	"github.com/rovshanmuradov/raydium-sniper/internal/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the config file (empty: environment only)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Debug = cfg.DebugLogging
	logCfg.LogFile = cfg.LogFile
	log := logger.New(logCfg)
	defer logger.Sync(log)

	if err := run(cfg, log); err != nil {
		log.Error("Sniper stopped with error", zap.Error(err))
		_ = logger.Sync(log)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := bot.New(cfg, log)
	if err != nil {
		return err
	}
	return b.Run(ctx)
}
