// internal/server/runner.go
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dataforge-labs/dataforge/internal/api"
	"github.com/dataforge-labs/dataforge/internal/blobstore/tusky"
	"github.com/dataforge-labs/dataforge/internal/config"
	"github.com/dataforge-labs/dataforge/internal/curve"
	"github.com/dataforge-labs/dataforge/internal/ledger/sui"
	"github.com/dataforge-labs/dataforge/internal/ml"
	"github.com/dataforge-labs/dataforge/internal/storage/file"
)

const shutdownTimeout = 15 * time.Second

// Runner owns the wired-up service: ledger client, curve engine, blob
// store, record store, trainer and the HTTP server on top of them.
type Runner struct {
	logger     *zap.Logger
	cfg        *config.Config
	blobs      *tusky.Client
	httpServer *http.Server
	shutdownCh chan os.Signal
}

// NewRunner builds every component from the configuration.
func NewRunner(cfg *config.Config, logger *zap.Logger) (*Runner, error) {
	signer, err := sui.NewSignerFromBase64(cfg.SuiPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing key: %w", err)
	}
	logger.Info("Ledger signer loaded", zap.String("address", signer.Address()))

	ledgerClient := sui.NewClient(cfg.SuiRPCURL, signer, logger)
	engine := curve.NewEngine(ledgerClient, curve.Config{
		PackageID:          cfg.CurvePackageID,
		TreasuryProviderID: cfg.TreasuryProviderID,
		GasBudget:          cfg.GasBudget,
		ReadRetries:        cfg.ReadRetries,
		ReadRetryDelay:     cfg.ReadRetryDelay(),
	}, logger)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	records, err := file.New(cfg.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}

	blobs, err := tusky.New(tusky.Config{
		BaseURL:   cfg.TuskyBaseURL,
		APIKey:    cfg.TuskyAPIKey,
		VaultID:   cfg.TuskyVaultID,
		VaultName: "dataforge-datasets",
		Encrypted: cfg.TuskyUseEncryption,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	trainer := ml.NewTrainer(filepath.Join(cfg.DataDir, "models"), logger)

	handler := api.NewHandler(engine, records, blobs, trainer, api.HandlerConfig{
		DataDir:        cfg.DataDir,
		ChainID:        cfg.ChainID,
		MaxUploadBytes: cfg.MaxUploadBytes(),
	}, logger)

	return &Runner{
		logger:     logger,
		cfg:        cfg,
		blobs:      blobs,
		httpServer: api.NewServer(":"+cfg.HTTPPort, cfg.CORSOrigin, handler),
		shutdownCh: make(chan os.Signal, 1),
	}, nil
}

// Run serves HTTP until the context is cancelled or a termination signal
// arrives, then shuts down gracefully.
func (r *Runner) Run(ctx context.Context) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(r.shutdownCh)

	vaultCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	vaultID, err := r.blobs.EnsureVault(vaultCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to prepare storage vault: %w", err)
	}
	r.logger.Info("Storage vault ready", zap.String("vault_id", vaultID))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.logger.Info("HTTP server listening", zap.String("addr", r.httpServer.Addr))
		if err := r.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		select {
		case sig := <-r.shutdownCh:
			r.logger.Info("Signal received", zap.String("signal", sig.String()))
		case <-gctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return r.httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	r.logger.Info("Server stopped")
	return nil
}
