// internal/curve/trade.go
package curve

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"

	"github.com/dataforge-labs/dataforge/internal/ledger"
)

const (
	functionBuy         = "buy"
	functionSell        = "sell"
	functionCreateCurve = "create_new_curve"

	eventTokenPurchased  = "::TokenPurchased"
	eventTokenSold       = "::TokenSold"
	eventNewCurveCreated = "::NewCurveCreated"
)

// Buy submits a buy transaction for the given payment amount and parses the
// confirming TokenPurchased event. The contract computes the authoritative
// token amount; the result's Purchased field carries what it reported. A
// succeeded transaction without a matching event is still a success, with a
// warning instead of a parsed event.
func (e *Engine) Buy(ctx context.Context, curveObjectID string, paymentAmount *big.Int) (*BuyResult, error) {
	if curveObjectID == "" {
		return nil, fmt.Errorf("curve object id is required")
	}
	if paymentAmount == nil || paymentAmount.Sign() <= 0 {
		return nil, fmt.Errorf("payment amount must be positive")
	}

	state, err := e.ReadCurveState(ctx, curveObjectID)
	if err != nil {
		return nil, err
	}

	res, err := e.submit(ctx, functionBuy, []any{
		e.cfg.TreasuryProviderID,
		curveObjectID,
		paymentAmount.String(),
	})
	if err != nil {
		return nil, err
	}

	out := &BuyResult{Digest: res.Digest}
	ev := findCurveEvent(res.Events, eventTokenPurchased, state.CurveID)
	if ev == nil {
		out.Warning = "transaction succeeded but no TokenPurchased event was found"
		e.logger.Warn("Buy confirmed without purchase event",
			zap.String("curve_object_id", curveObjectID),
			zap.String("digest", res.Digest))
		return out, nil
	}

	purchased, perr := parsePurchaseEvent(ev)
	if perr != nil {
		// Ledger confirmation is authoritative over event contents.
		out.Warning = fmt.Sprintf("purchase event could not be parsed: %v", perr)
		e.logger.Warn("Unparseable purchase event",
			zap.String("digest", res.Digest), zap.Error(perr))
		return out, nil
	}

	out.Purchased = purchased
	e.logger.Info("Buy confirmed",
		zap.String("curve_object_id", curveObjectID),
		zap.String("digest", res.Digest),
		zap.String("payment_amount", paymentAmount.String()),
		zap.String("tokens_minted", purchased.TokensMinted.String()))
	return out, nil
}

// Sell submits a sell transaction handing the token holding object back to
// the curve and parses the confirming TokenSold event. Same
// success/degradation/failure shape as Buy.
func (e *Engine) Sell(ctx context.Context, curveObjectID, tokenHoldingID string) (*SellResult, error) {
	if curveObjectID == "" {
		return nil, fmt.Errorf("curve object id is required")
	}
	if tokenHoldingID == "" {
		return nil, fmt.Errorf("token holding object id is required")
	}

	state, err := e.ReadCurveState(ctx, curveObjectID)
	if err != nil {
		return nil, err
	}

	res, err := e.submit(ctx, functionSell, []any{
		e.cfg.TreasuryProviderID,
		curveObjectID,
		tokenHoldingID,
	})
	if err != nil {
		return nil, err
	}

	out := &SellResult{Digest: res.Digest}
	ev := findCurveEvent(res.Events, eventTokenSold, state.CurveID)
	if ev == nil {
		out.Warning = "transaction succeeded but no TokenSold event was found"
		e.logger.Warn("Sell confirmed without sale event",
			zap.String("curve_object_id", curveObjectID),
			zap.String("digest", res.Digest))
		return out, nil
	}

	sold, perr := parseSaleEvent(ev)
	if perr != nil {
		out.Warning = fmt.Sprintf("sale event could not be parsed: %v", perr)
		e.logger.Warn("Unparseable sale event",
			zap.String("digest", res.Digest), zap.Error(perr))
		return out, nil
	}

	out.Sold = sold
	e.logger.Info("Sell confirmed",
		zap.String("curve_object_id", curveObjectID),
		zap.String("digest", res.Digest),
		zap.String("payment_returned", sold.PaymentReturned.String()))
	return out, nil
}

// CreateCurve creates a fresh bonding curve on the ledger and returns its
// object id, taken from the NewCurveCreated event. Unlike Buy/Sell, a
// missing event here is a hard error: without the object id the curve is
// unusable.
func (e *Engine) CreateCurve(ctx context.Context) (string, error) {
	res, err := e.submit(ctx, functionCreateCurve, []any{e.cfg.TreasuryProviderID})
	if err != nil {
		return "", err
	}

	for _, ev := range res.Events {
		if !strings.HasSuffix(ev.Type, eventNewCurveCreated) {
			continue
		}
		id, ok := ev.ParsedJSON["new_curve_object_id"].(string)
		if !ok || id == "" {
			continue
		}
		e.logger.Info("Created bonding curve",
			zap.String("curve_object_id", id),
			zap.String("digest", res.Digest))
		return id, nil
	}
	return "", fmt.Errorf("create_new_curve transaction %s confirmed but no NewCurveCreated event was found", res.Digest)
}

func (e *Engine) submit(ctx context.Context, function string, args []any) (*ledger.TransactionResult, error) {
	res, err := e.ledger.SubmitMoveCall(ctx, ledger.MoveCall{
		PackageID: e.cfg.PackageID,
		Module:    moveModule,
		Function:  function,
		Arguments: args,
		GasBudget: e.cfg.GasBudget,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit %s transaction: %w", function, err)
	}
	if res.Status != ledger.StatusSuccess {
		return nil, &TransactionFailureError{
			Digest:   res.Digest,
			Function: function,
			Detail:   res.Error,
		}
	}
	return res, nil
}

// findCurveEvent returns the first event with the wanted type suffix whose
// curve_id payload matches the queried curve.
func findCurveEvent(events []ledger.Event, typeSuffix string, curveID *big.Int) *ledger.Event {
	for i := range events {
		ev := &events[i]
		if !strings.HasSuffix(ev.Type, typeSuffix) {
			continue
		}
		id, err := fieldBigInt(ev.ParsedJSON, fieldCurveID)
		if err != nil {
			continue
		}
		if id.Cmp(curveID) == 0 {
			return ev
		}
	}
	return nil
}

func parsePurchaseEvent(ev *ledger.Event) (*PurchaseEvent, error) {
	curveID, err := fieldBigInt(ev.ParsedJSON, fieldCurveID)
	if err != nil {
		return nil, err
	}
	payment, err := fieldBigInt(ev.ParsedJSON, "payment_amount")
	if err != nil {
		return nil, err
	}
	minted, err := fieldBigInt(ev.ParsedJSON, "tokens_minted")
	if err != nil {
		return nil, err
	}
	return &PurchaseEvent{CurveID: curveID, PaymentAmount: payment, TokensMinted: minted}, nil
}

func parseSaleEvent(ev *ledger.Event) (*SaleEvent, error) {
	curveID, err := fieldBigInt(ev.ParsedJSON, fieldCurveID)
	if err != nil {
		return nil, err
	}
	sold, err := fieldBigInt(ev.ParsedJSON, "tokens_sold")
	if err != nil {
		return nil, err
	}
	returned, err := fieldBigInt(ev.ParsedJSON, "payment_returned")
	if err != nil {
		return nil, err
	}
	return &SaleEvent{CurveID: curveID, TokensSold: sold, PaymentReturned: returned}, nil
}
