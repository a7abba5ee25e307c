package curve

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dataforge-labs/dataforge/internal/ledger"
)

// stubLedger scripts ledger responses for engine tests.
type stubLedger struct {
	readResponses []func() (*ledger.Object, error)
	readCalls     int

	submitFn    func(call ledger.MoveCall) (*ledger.TransactionResult, error)
	submitCalls []ledger.MoveCall
}

func (s *stubLedger) ReadObject(_ context.Context, objectID string) (*ledger.Object, error) {
	idx := s.readCalls
	s.readCalls++
	if idx >= len(s.readResponses) {
		idx = len(s.readResponses) - 1
	}
	return s.readResponses[idx]()
}

func (s *stubLedger) SubmitMoveCall(_ context.Context, call ledger.MoveCall) (*ledger.TransactionResult, error) {
	s.submitCalls = append(s.submitCalls, call)
	if s.submitFn == nil {
		return nil, errors.New("unexpected submit")
	}
	return s.submitFn(call)
}

func curveObject(curveID, supply string) func() (*ledger.Object, error) {
	return func() (*ledger.Object, error) {
		return &ledger.Object{
			ObjectID: "0xcafe",
			Type:     "0xabc::bonding_curve::BondingCurve",
			Fields: map[string]any{
				"curve_id":                 curveID,
				"total_supply_for_pricing": supply,
			},
		}, nil
	}
}

func notFound() func() (*ledger.Object, error) {
	return func() (*ledger.Object, error) {
		return nil, &ledger.NotFoundError{ObjectID: "0xcafe"}
	}
}

func newTestEngine(l ledger.Ledger, slept *[]time.Duration) *Engine {
	e := NewEngine(l, Config{
		PackageID:          "0xabc",
		TreasuryProviderID: "0xbeef",
		ReadRetryDelay:     time.Second,
	}, zap.NewNop())
	return e.WithSleep(func(_ context.Context, d time.Duration) error {
		if slept != nil {
			*slept = append(*slept, d)
		}
		return nil
	})
}

func TestReadCurveState(t *testing.T) {
	stub := &stubLedger{readResponses: []func() (*ledger.Object, error){
		curveObject("42", "1000"),
	}}
	e := newTestEngine(stub, nil)

	state, err := e.ReadCurveState(context.Background(), "0xcafe")
	require.NoError(t, err)
	assert.Equal(t, "42", state.CurveID.String())
	assert.Equal(t, "1000", state.TotalSupplyForPricing.String())
	assert.Equal(t, 1, stub.readCalls)
}

func TestReadCurveState_NumberFields(t *testing.T) {
	// Fullnode responses may carry u64 fields as bare JSON numbers; those
	// are decoded as json.Number, never float64.
	stub := &stubLedger{readResponses: []func() (*ledger.Object, error){
		func() (*ledger.Object, error) {
			return &ledger.Object{
				ObjectID: "0xcafe",
				Fields: map[string]any{
					"curve_id":                 json.Number("7"),
					"total_supply_for_pricing": json.Number("18446744073709551615"),
				},
			}, nil
		},
	}}
	e := newTestEngine(stub, nil)

	state, err := e.ReadCurveState(context.Background(), "0xcafe")
	require.NoError(t, err)
	assert.Equal(t, "18446744073709551615", state.TotalSupplyForPricing.String())
}

func TestReadCurveState_RetriesNotFound(t *testing.T) {
	var slept []time.Duration
	stub := &stubLedger{readResponses: []func() (*ledger.Object, error){
		notFound(),
		notFound(),
		curveObject("1", "0"),
	}}
	e := newTestEngine(stub, &slept)

	state, err := e.ReadCurveState(context.Background(), "0xcafe")
	require.NoError(t, err)
	assert.Equal(t, "0", state.TotalSupplyForPricing.String())
	assert.Equal(t, 3, stub.readCalls)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, slept)
}

func TestReadCurveState_ExhaustsRetryBound(t *testing.T) {
	var slept []time.Duration
	stub := &stubLedger{readResponses: []func() (*ledger.Object, error){notFound()}}
	e := newTestEngine(stub, &slept)

	_, err := e.ReadCurveState(context.Background(), "0xcafe")
	require.Error(t, err)
	assert.True(t, IsReadFailure(err))
	assert.Equal(t, DefaultReadRetries, stub.readCalls)
	assert.Len(t, slept, DefaultReadRetries-1)
}

func TestReadCurveState_NoRetryOnOtherErrors(t *testing.T) {
	var slept []time.Duration
	stub := &stubLedger{readResponses: []func() (*ledger.Object, error){
		func() (*ledger.Object, error) { return nil, errors.New("rpc error 500: boom") },
	}}
	e := newTestEngine(stub, &slept)

	_, err := e.ReadCurveState(context.Background(), "0xcafe")
	require.Error(t, err)
	assert.True(t, IsReadFailure(err))
	assert.Equal(t, 1, stub.readCalls, "non-retryable errors must fail immediately")
	assert.Empty(t, slept)
}

func TestReadCurveState_RejectsFloatField(t *testing.T) {
	stub := &stubLedger{readResponses: []func() (*ledger.Object, error){
		func() (*ledger.Object, error) {
			return &ledger.Object{
				ObjectID: "0xcafe",
				Fields: map[string]any{
					"curve_id":                 "1",
					"total_supply_for_pricing": float64(1000),
				},
			}, nil
		},
	}}
	e := newTestEngine(stub, nil)

	_, err := e.ReadCurveState(context.Background(), "0xcafe")
	require.Error(t, err)
	assert.True(t, IsReadFailure(err))
}

func TestReadCurveState_CancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stub := &stubLedger{readResponses: []func() (*ledger.Object, error){notFound()}}
	e := NewEngine(stub, Config{PackageID: "0xabc", TreasuryProviderID: "0xbeef"}, zap.NewNop()).
		WithSleep(func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		})

	_, err := e.ReadCurveState(ctx, "0xcafe")
	require.ErrorIs(t, err, context.Canceled)
}
