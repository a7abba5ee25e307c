// internal/curve/engine.go
package curve

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/dataforge-labs/dataforge/internal/ledger"
)

const (
	moveModule = "bonding_curve"

	fieldTotalSupply = "total_supply_for_pricing"
	fieldCurveID     = "curve_id"
)

// Defaults for the not-found retry policy on curve state reads.
const (
	DefaultReadRetries    = 3
	DefaultReadRetryDelay = time.Second
	DefaultGasBudget      = 50_000_000
)

// SleepFunc suspends until the duration elapses or the context is done.
// Injected so tests can use a fake clock.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Config carries the ledger identifiers and retry policy for one engine.
type Config struct {
	PackageID          string
	TreasuryProviderID string
	GasBudget          uint64
	ReadRetries        int
	ReadRetryDelay     time.Duration
}

// Engine reads curve state from the ledger and orchestrates buy/sell
// transactions. It holds no mutable state of its own; the ledger is the
// single serialization point for concurrent trades against one curve.
type Engine struct {
	ledger ledger.Ledger
	cfg    Config
	sleep  SleepFunc
	logger *zap.Logger
}

// NewEngine creates an engine over an injected ledger client.
func NewEngine(l ledger.Ledger, cfg Config, logger *zap.Logger) *Engine {
	if cfg.ReadRetries <= 0 {
		cfg.ReadRetries = DefaultReadRetries
	}
	if cfg.ReadRetryDelay <= 0 {
		cfg.ReadRetryDelay = DefaultReadRetryDelay
	}
	if cfg.GasBudget == 0 {
		cfg.GasBudget = DefaultGasBudget
	}
	return &Engine{
		ledger: l,
		cfg:    cfg,
		sleep:  sleepContext,
		logger: logger.Named("curve"),
	}
}

// Reference returns the on-chain coordinates of a curve object under
// this engine's package and treasury.
func (e *Engine) Reference(curveObjectID string) CurveReference {
	return CurveReference{
		PackageID:          e.cfg.PackageID,
		TreasuryProviderID: e.cfg.TreasuryProviderID,
		CurveObjectID:      curveObjectID,
	}
}

// WithSleep replaces the retry delay sleeper. Used by tests.
func (e *Engine) WithSleep(sleep SleepFunc) *Engine {
	e.sleep = sleep
	return e
}

// ReadCurveState fetches the live curve object and extracts its pricing
// state. Only the not-found class is retried: freshly created objects may
// lag behind on read replicas. Any other ledger error fails immediately.
func (e *Engine) ReadCurveState(ctx context.Context, curveObjectID string) (*CurveState, error) {
	var lastErr error
	for attempt := 1; attempt <= e.cfg.ReadRetries; attempt++ {
		obj, err := e.ledger.ReadObject(ctx, curveObjectID)
		if err == nil {
			state, perr := curveStateFromObject(obj)
			if perr != nil {
				return nil, &ReadFailureError{ObjectID: curveObjectID, Attempts: attempt, Err: perr}
			}
			return state, nil
		}
		if !ledger.IsNotFound(err) {
			return nil, &ReadFailureError{ObjectID: curveObjectID, Attempts: attempt, Err: err}
		}
		lastErr = err
		if attempt < e.cfg.ReadRetries {
			e.logger.Debug("Curve object not visible yet, retrying",
				zap.String("curve_object_id", curveObjectID),
				zap.Int("attempt", attempt),
				zap.Duration("delay", e.cfg.ReadRetryDelay))
			if serr := e.sleep(ctx, e.cfg.ReadRetryDelay); serr != nil {
				return nil, serr
			}
		}
	}
	return nil, &ReadFailureError{ObjectID: curveObjectID, Attempts: e.cfg.ReadRetries, Err: lastErr}
}

func curveStateFromObject(obj *ledger.Object) (*CurveState, error) {
	supply, err := fieldBigInt(obj.Fields, fieldTotalSupply)
	if err != nil {
		return nil, err
	}
	curveID, err := fieldBigInt(obj.Fields, fieldCurveID)
	if err != nil {
		return nil, err
	}
	return &CurveState{CurveID: curveID, TotalSupplyForPricing: supply}, nil
}

// fieldBigInt converts a decoded object field to an exact integer. Fields
// arrive as decimal strings or json.Number; float64 is rejected outright so
// values can never pass through floating point.
func fieldBigInt(fields map[string]any, name string) (*big.Int, error) {
	raw, ok := fields[name]
	if !ok {
		return nil, fmt.Errorf("missing field %q", name)
	}
	var text string
	switch v := raw.(type) {
	case string:
		text = v
	case json.Number:
		text = v.String()
	default:
		return nil, fmt.Errorf("field %q has unexpected type %T", name, raw)
	}
	n, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return nil, fmt.Errorf("field %q is not a decimal integer: %q", name, text)
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("field %q is negative: %s", name, text)
	}
	return n, nil
}
