// ====================================
// File: cmd/server/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/dataforge-labs/dataforge/internal/config"
	"github.com/dataforge-labs/dataforge/internal/server"
	"github.com/dataforge-labs/dataforge/internal/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "path to configuration file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.InitLogger(cfg.DebugLogging, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("Starting dataforge server")

	runner, err := server.NewRunner(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize server", zap.Error(err))
	}

	if err := runner.Run(ctx); err != nil {
		logger.Fatal("Server execution error", zap.Error(err))
	}
}
