// internal/api/curve.go
package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/dataforge-labs/dataforge/internal/curve"
)

// CurveInfo returns the on-chain identity and pricing supply of a curve.
func (h *Handler) CurveInfo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	state, err := h.engine.ReadCurveState(r.Context(), id)
	if err != nil {
		h.curveError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"curveId":               state.CurveID.String(),
		"totalSupplyForPricing": state.TotalSupplyForPricing.String(),
	})
}

// CurrentPrice returns the scaled per-token price at the current supply.
func (h *Handler) CurrentPrice(w http.ResponseWriter, r *http.Request) {
	state, err := h.engine.ReadCurveState(r.Context(), r.PathValue("id"))
	if err != nil {
		h.curveError(w, err)
		return
	}
	price := curve.CurrentPriceScaled(state.TotalSupplyForPricing)
	h.writeJSON(w, http.StatusOK, map[string]string{
		"currentPriceScaled": price.String(),
	})
}

// PurchaseAmount quotes how many tokens a given payment would mint,
// priced at the supply before the trade.
func (h *Handler) PurchaseAmount(w http.ResponseWriter, r *http.Request) {
	payment, ok := parseAmount(r.URL.Query().Get("mockPaymentAmount"))
	if !ok {
		h.writeError(w, http.StatusBadRequest, "mockPaymentAmount must be a non-negative integer")
		return
	}
	state, err := h.engine.ReadCurveState(r.Context(), r.PathValue("id"))
	if err != nil {
		h.curveError(w, err)
		return
	}
	tokens := curve.CalculatePurchaseAmount(state.TotalSupplyForPricing, payment)
	h.writeJSON(w, http.StatusOK, map[string]string{
		"tokenAmount": tokens.String(),
	})
}

// PaymentRequired quotes the payment needed to mint a given token amount.
func (h *Handler) PaymentRequired(w http.ResponseWriter, r *http.Request) {
	tokens, ok := parseAmount(r.URL.Query().Get("tokenAmount"))
	if !ok {
		h.writeError(w, http.StatusBadRequest, "tokenAmount must be a non-negative integer")
		return
	}
	state, err := h.engine.ReadCurveState(r.Context(), r.PathValue("id"))
	if err != nil {
		h.curveError(w, err)
		return
	}
	payment := curve.CalculatePaymentRequired(state.TotalSupplyForPricing, tokens)
	h.writeJSON(w, http.StatusOK, map[string]string{
		"paymentRequired": payment.String(),
	})
}

// SaleReturn quotes the payment returned for selling a given token
// amount, priced at the supply after the sale.
func (h *Handler) SaleReturn(w http.ResponseWriter, r *http.Request) {
	tokens, ok := parseAmount(r.URL.Query().Get("tokenAmountToSell"))
	if !ok {
		h.writeError(w, http.StatusBadRequest, "tokenAmountToSell must be a non-negative integer")
		return
	}
	state, err := h.engine.ReadCurveState(r.Context(), r.PathValue("id"))
	if err != nil {
		h.curveError(w, err)
		return
	}
	ret, err := curve.CalculateSaleReturn(state.TotalSupplyForPricing, tokens)
	if err != nil {
		h.curveError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"saleReturn": ret.String(),
	})
}

type buyRequest struct {
	BondingCurveObjectID string `json:"bondingCurveObjectId"`
	MockPaymentAmount    string `json:"mockPaymentAmount"`
}

// Buy executes an on-chain purchase against a curve.
func (h *Handler) Buy(w http.ResponseWriter, r *http.Request) {
	var req buyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BondingCurveObjectID == "" {
		h.writeError(w, http.StatusBadRequest, "bondingCurveObjectId is required")
		return
	}
	payment, ok := parseAmount(req.MockPaymentAmount)
	if !ok || payment.Sign() == 0 {
		h.writeError(w, http.StatusBadRequest, "mockPaymentAmount must be a positive integer")
		return
	}

	result, err := h.engine.Buy(r.Context(), req.BondingCurveObjectID, payment)
	if err != nil {
		h.curveError(w, err)
		return
	}

	resp := map[string]any{
		"success":       true,
		"transactionId": result.Digest,
	}
	if result.Purchased != nil {
		resp["purchasedTokens"] = map[string]string{
			"curveId":       result.Purchased.CurveID.String(),
			"paymentAmount": result.Purchased.PaymentAmount.String(),
			"tokensMinted":  result.Purchased.TokensMinted.String(),
		}
	}
	if result.Warning != "" {
		resp["warning"] = result.Warning
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type sellRequest struct {
	BondingCurveObjectID string `json:"bondingCurveObjectId"`
	TokenCoinObjectID    string `json:"tokenCoinObjectId"`
}

// Sell executes an on-chain sale of a previously minted token holding.
func (h *Handler) Sell(w http.ResponseWriter, r *http.Request) {
	var req sellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BondingCurveObjectID == "" {
		h.writeError(w, http.StatusBadRequest, "bondingCurveObjectId is required")
		return
	}
	if req.TokenCoinObjectID == "" {
		h.writeError(w, http.StatusBadRequest, "tokenCoinObjectId is required")
		return
	}

	result, err := h.engine.Sell(r.Context(), req.BondingCurveObjectID, req.TokenCoinObjectID)
	if err != nil {
		h.curveError(w, err)
		return
	}

	resp := map[string]any{
		"success":       true,
		"transactionId": result.Digest,
	}
	if result.Sold != nil {
		resp["soldTokens"] = map[string]string{
			"curveId":         result.Sold.CurveID.String(),
			"tokensSold":      result.Sold.TokensSold.String(),
			"paymentReturned": result.Sold.PaymentReturned.String(),
		}
	}
	if result.Warning != "" {
		resp["warning"] = result.Warning
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// curveError translates engine failures into HTTP status codes. Supply
// exhaustion is the caller's fault; read and transaction failures are
// upstream problems.
func (h *Handler) curveError(w http.ResponseWriter, err error) {
	switch {
	case curve.IsInsufficientSupply(err):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case curve.IsReadFailure(err), curve.IsTransactionFailure(err):
		h.logger.Error("Ledger operation failed", zap.Error(err))
		h.writeError(w, http.StatusBadGateway, err.Error())
	default:
		h.logger.Error("Curve operation failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}
