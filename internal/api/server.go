// internal/api/server.go
package api

import (
	"net/http"
	"time"

	"github.com/rs/cors"
)

// NewServer wires the handlers into a mux and wraps it with CORS and
// the usual timeouts. The caller owns the server's lifecycle.
func NewServer(addr, corsOrigin string, h *Handler) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /datasets", h.UploadDataset)
	mux.HandleFunc("GET /datasets", h.ListDatasets)
	mux.HandleFunc("POST /get_file", h.TrainAndReward)

	mux.HandleFunc("GET /bonding-curve/{id}/info", h.CurveInfo)
	mux.HandleFunc("GET /bonding-curve/{id}/current-price-scaled", h.CurrentPrice)
	mux.HandleFunc("GET /bonding-curve/{id}/calculate-purchase-amount", h.PurchaseAmount)
	mux.HandleFunc("GET /bonding-curve/{id}/calculate-payment-required", h.PaymentRequired)
	mux.HandleFunc("GET /bonding-curve/{id}/calculate-sale-return", h.SaleReturn)
	mux.HandleFunc("POST /bonding-curve/buy", h.Buy)
	mux.HandleFunc("POST /bonding-curve/sell", h.Sell)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{corsOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})

	return &http.Server{
		Addr:    addr,
		Handler: c.Handler(mux),
		// Uploads and on-chain execution can legitimately take a while.
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
