// internal/curve/types.go
package curve

import "math/big"

// CurveState is the on-chain state of one bonding curve, fetched fresh from
// the ledger on every pricing query. Never cached locally.
type CurveState struct {
	CurveID               *big.Int
	TotalSupplyForPricing *big.Int
}

// CurveReference identifies where a curve lives externally. It is created
// once when a dataset is registered, persisted alongside the dataset record,
// and read-only thereafter.
type CurveReference struct {
	PackageID          string `json:"package_id"`
	TreasuryProviderID string `json:"treasury_provider_id"`
	CurveObjectID      string `json:"curve_object_id"`
}

// PurchaseEvent is the parsed TokenPurchased event payload.
type PurchaseEvent struct {
	CurveID       *big.Int
	PaymentAmount *big.Int
	TokensMinted  *big.Int
}

// SaleEvent is the parsed TokenSold event payload.
type SaleEvent struct {
	CurveID         *big.Int
	TokensSold      *big.Int
	PaymentReturned *big.Int
}

// BuyResult is the confirmed outcome of a buy. Purchased is nil when the
// transaction succeeded but no matching event was found; Warning carries the
// degradation note in that case.
type BuyResult struct {
	Digest    string
	Purchased *PurchaseEvent
	Warning   string
}

// SellResult mirrors BuyResult for sells.
type SellResult struct {
	Digest  string
	Sold    *SaleEvent
	Warning string
}
