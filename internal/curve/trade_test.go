package curve

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataforge-labs/dataforge/internal/ledger"
)

func purchasedEvent(curveID, payment, minted string) ledger.Event {
	return ledger.Event{
		Type: "0xabc::bonding_curve::TokenPurchased",
		ParsedJSON: map[string]any{
			"curve_id":       curveID,
			"payment_amount": payment,
			"tokens_minted":  minted,
		},
	}
}

func TestBuy(t *testing.T) {
	stub := &stubLedger{
		readResponses: []func() (*ledger.Object, error){curveObject("42", "0")},
		submitFn: func(call ledger.MoveCall) (*ledger.TransactionResult, error) {
			return &ledger.TransactionResult{
				Digest: "DiGeSt1",
				Status: ledger.StatusSuccess,
				Events: []ledger.Event{purchasedEvent("42", "7", "70000")},
			}, nil
		},
	}
	e := newTestEngine(stub, nil)

	res, err := e.Buy(context.Background(), "0xcafe", big.NewInt(7))
	require.NoError(t, err)
	assert.Equal(t, "DiGeSt1", res.Digest)
	assert.Empty(t, res.Warning)
	require.NotNil(t, res.Purchased)
	assert.Equal(t, "70000", res.Purchased.TokensMinted.String())

	require.Len(t, stub.submitCalls, 1)
	call := stub.submitCalls[0]
	assert.Equal(t, "bonding_curve", call.Module)
	assert.Equal(t, "buy", call.Function)
	assert.Equal(t, []any{"0xbeef", "0xcafe", "7"}, call.Arguments)
}

func TestBuy_EventAbsenceIsSoft(t *testing.T) {
	stub := &stubLedger{
		readResponses: []func() (*ledger.Object, error){curveObject("42", "0")},
		submitFn: func(ledger.MoveCall) (*ledger.TransactionResult, error) {
			return &ledger.TransactionResult{Digest: "DiGeSt2", Status: ledger.StatusSuccess}, nil
		},
	}
	e := newTestEngine(stub, nil)

	res, err := e.Buy(context.Background(), "0xcafe", big.NewInt(7))
	require.NoError(t, err, "missing event must not turn a confirmed buy into an error")
	assert.Nil(t, res.Purchased)
	assert.NotEmpty(t, res.Warning)
}

func TestBuy_IgnoresForeignCurveEvents(t *testing.T) {
	stub := &stubLedger{
		readResponses: []func() (*ledger.Object, error){curveObject("42", "0")},
		submitFn: func(ledger.MoveCall) (*ledger.TransactionResult, error) {
			return &ledger.TransactionResult{
				Digest: "DiGeSt3",
				Status: ledger.StatusSuccess,
				Events: []ledger.Event{purchasedEvent("99", "7", "70000")},
			}, nil
		},
	}
	e := newTestEngine(stub, nil)

	res, err := e.Buy(context.Background(), "0xcafe", big.NewInt(7))
	require.NoError(t, err)
	assert.Nil(t, res.Purchased, "event for another curve id must not match")
	assert.NotEmpty(t, res.Warning)
}

func TestBuy_TransactionFailure(t *testing.T) {
	stub := &stubLedger{
		readResponses: []func() (*ledger.Object, error){curveObject("42", "0")},
		submitFn: func(ledger.MoveCall) (*ledger.TransactionResult, error) {
			return &ledger.TransactionResult{
				Digest: "DiGeSt4",
				Status: ledger.StatusFailure,
				Error:  "MoveAbort(bonding_curve, 2)",
			}, nil
		},
	}
	e := newTestEngine(stub, nil)

	_, err := e.Buy(context.Background(), "0xcafe", big.NewInt(7))
	require.Error(t, err)
	assert.True(t, IsTransactionFailure(err))

	var target *TransactionFailureError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "MoveAbort(bonding_curve, 2)", target.Detail)
}

func TestBuy_Preconditions(t *testing.T) {
	stub := &stubLedger{}
	e := newTestEngine(stub, nil)

	_, err := e.Buy(context.Background(), "", big.NewInt(7))
	assert.Error(t, err)

	_, err = e.Buy(context.Background(), "0xcafe", big.NewInt(0))
	assert.Error(t, err)

	_, err = e.Buy(context.Background(), "0xcafe", nil)
	assert.Error(t, err)

	assert.Zero(t, stub.readCalls, "precondition failures must not touch the ledger")
	assert.Empty(t, stub.submitCalls)
}

func TestSell(t *testing.T) {
	stub := &stubLedger{
		readResponses: []func() (*ledger.Object, error){curveObject("42", "500000")},
		submitFn: func(call ledger.MoveCall) (*ledger.TransactionResult, error) {
			return &ledger.TransactionResult{
				Digest: "DiGeSt5",
				Status: ledger.StatusSuccess,
				Events: []ledger.Event{{
					Type: "0xabc::bonding_curve::TokenSold",
					ParsedJSON: map[string]any{
						"curve_id":         "42",
						"tokens_sold":      "1000",
						"payment_returned": "4990",
					},
				}},
			}, nil
		},
	}
	e := newTestEngine(stub, nil)

	res, err := e.Sell(context.Background(), "0xcafe", "0xc01")
	require.NoError(t, err)
	assert.Empty(t, res.Warning)
	require.NotNil(t, res.Sold)
	assert.Equal(t, "4990", res.Sold.PaymentReturned.String())

	require.Len(t, stub.submitCalls, 1)
	assert.Equal(t, "sell", stub.submitCalls[0].Function)
	assert.Equal(t, []any{"0xbeef", "0xcafe", "0xc01"}, stub.submitCalls[0].Arguments)
}

func TestSell_Preconditions(t *testing.T) {
	stub := &stubLedger{}
	e := newTestEngine(stub, nil)

	_, err := e.Sell(context.Background(), "", "0xc01")
	assert.Error(t, err)
	_, err = e.Sell(context.Background(), "0xcafe", "")
	assert.Error(t, err)
	assert.Empty(t, stub.submitCalls)
}

func TestCreateCurve(t *testing.T) {
	stub := &stubLedger{
		submitFn: func(call ledger.MoveCall) (*ledger.TransactionResult, error) {
			return &ledger.TransactionResult{
				Digest: "DiGeSt6",
				Status: ledger.StatusSuccess,
				Events: []ledger.Event{{
					Type:       "0xabc::bonding_curve::NewCurveCreated",
					ParsedJSON: map[string]any{"new_curve_object_id": "0xfeed"},
				}},
			}, nil
		},
	}
	e := newTestEngine(stub, nil)

	id, err := e.CreateCurve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0xfeed", id)
	require.Len(t, stub.submitCalls, 1)
	assert.Equal(t, "create_new_curve", stub.submitCalls[0].Function)
}

func TestCreateCurve_MissingEventIsHardError(t *testing.T) {
	stub := &stubLedger{
		submitFn: func(ledger.MoveCall) (*ledger.TransactionResult, error) {
			return &ledger.TransactionResult{Digest: "DiGeSt7", Status: ledger.StatusSuccess}, nil
		},
	}
	e := newTestEngine(stub, nil)

	_, err := e.CreateCurve(context.Background())
	assert.Error(t, err)
}
