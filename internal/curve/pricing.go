// internal/curve/pricing.go
package curve

import "math/big"

// Pricing constants mirrored from the bonding_curve move module. Changing
// any of these without redeploying the contract breaks quote accuracy.
const (
	// Precision is the fixed-point scaling factor for prices.
	Precision = 1_000_000
	// InitialPriceScaled is the scaled price at zero supply.
	InitialPriceScaled = 100
	// PriceIncreaseScaled is the scaled price increase per unit of supply.
	PriceIncreaseScaled = 10
)

var (
	precision    = big.NewInt(Precision)
	initialPrice = big.NewInt(InitialPriceScaled)
	priceSlope   = big.NewInt(PriceIncreaseScaled)
)

// CurrentPriceScaled returns the instantaneous scaled price at the given
// supply: InitialPriceScaled + supply * PriceIncreaseScaled. Strictly
// increasing in supply.
func CurrentPriceScaled(supply *big.Int) *big.Int {
	price := new(big.Int).Mul(supply, priceSlope)
	return price.Add(price, initialPrice)
}

// CalculatePurchaseAmount converts a payment into the token amount it buys
// at the current supply: floor(payment * Precision / price).
func CalculatePurchaseAmount(supply, paymentAmount *big.Int) *big.Int {
	price := CurrentPriceScaled(supply)
	// Unreachable with the constants above, but a zero price must not panic.
	if price.Sign() == 0 {
		return new(big.Int)
	}
	amount := new(big.Int).Mul(paymentAmount, precision)
	return amount.Quo(amount, price)
}

// CalculatePaymentRequired quotes the payment for buying tokenAmount tokens:
// floor(tokenAmount * price / Precision) at the pre-trade supply. This is an
// estimate only; the contract computes the authoritative amount at execution
// time.
func CalculatePaymentRequired(supply, tokenAmount *big.Int) *big.Int {
	payment := new(big.Int).Mul(tokenAmount, CurrentPriceScaled(supply))
	return payment.Quo(payment, precision)
}

// CalculateSaleReturn quotes the payment returned for selling
// tokenAmountToSell tokens. The price is evaluated at the post-sale supply,
// not the current one; sells quote at post-trade price while buys quote at
// pre-trade price, matching the contract. Fails with
// *InsufficientSupplyError when the sale exceeds the current supply.
func CalculateSaleReturn(supply, tokenAmountToSell *big.Int) (*big.Int, error) {
	if tokenAmountToSell.Cmp(supply) > 0 {
		return nil, &InsufficientSupplyError{
			Supply:    new(big.Int).Set(supply),
			Requested: new(big.Int).Set(tokenAmountToSell),
		}
	}
	supplyAfterSale := new(big.Int).Sub(supply, tokenAmountToSell)
	ret := new(big.Int).Mul(tokenAmountToSell, CurrentPriceScaled(supplyAfterSale))
	return ret.Quo(ret, precision), nil
}
