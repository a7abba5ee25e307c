// internal/api/handler.go
package api

import (
	"math/big"

	"go.uber.org/zap"

	"github.com/dataforge-labs/dataforge/internal/blobstore"
	"github.com/dataforge-labs/dataforge/internal/curve"
	"github.com/dataforge-labs/dataforge/internal/ml"
	"github.com/dataforge-labs/dataforge/internal/storage"
)

// Handler carries the dependencies shared by all HTTP endpoints.
type Handler struct {
	engine  *curve.Engine
	records storage.Records
	blobs   blobstore.BlobStore
	trainer *ml.Trainer
	logger  *zap.Logger

	dataDir        string
	chainID        int
	maxUploadBytes int64
}

// HandlerConfig bundles the non-dependency knobs for a Handler.
type HandlerConfig struct {
	DataDir        string
	ChainID        int
	MaxUploadBytes int64
}

func NewHandler(
	engine *curve.Engine,
	records storage.Records,
	blobs blobstore.BlobStore,
	trainer *ml.Trainer,
	cfg HandlerConfig,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		engine:         engine,
		records:        records,
		blobs:          blobs,
		trainer:        trainer,
		logger:         logger,
		dataDir:        cfg.DataDir,
		chainID:        cfg.ChainID,
		maxUploadBytes: cfg.MaxUploadBytes,
	}
}

// parseAmount parses a decimal string into a non-negative big integer.
// Amounts travel the API as strings so u64-scale values never lose
// precision in a float.
func parseAmount(s string) (*big.Int, bool) {
	if s == "" {
		return nil, false
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return nil, false
	}
	return n, true
}
