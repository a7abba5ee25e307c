// internal/curve/errors.go
package curve

import (
	"errors"
	"fmt"
	"math/big"
)

// InsufficientSupplyError mirrors the contract-level abort raised when a
// sale exceeds the current supply. It is a pure validation error detected
// before any ledger interaction.
type InsufficientSupplyError struct {
	Supply    *big.Int
	Requested *big.Int
}

func (e *InsufficientSupplyError) Error() string {
	return fmt.Sprintf("insufficient supply: cannot sell %s tokens with supply %s",
		e.Requested.String(), e.Supply.String())
}

// IsInsufficientSupply reports whether err is the sale-exceeds-supply class.
func IsInsufficientSupply(err error) bool {
	var target *InsufficientSupplyError
	return errors.As(err, &target)
}

// ReadFailureError reports that fetching curve state from the ledger failed,
// either immediately on a non-retryable error or after exhausting retries on
// the not-found class.
type ReadFailureError struct {
	ObjectID string
	Attempts int
	Err      error
}

func (e *ReadFailureError) Error() string {
	return fmt.Sprintf("failed to read curve state for %s after %d attempt(s): %v",
		e.ObjectID, e.Attempts, e.Err)
}

func (e *ReadFailureError) Unwrap() error {
	return e.Err
}

// IsReadFailure reports whether err is a curve-state read failure.
func IsReadFailure(err error) bool {
	var target *ReadFailureError
	return errors.As(err, &target)
}

// TransactionFailureError reports that a submitted transaction executed with
// a non-success status. Detail carries the node's error verbatim.
type TransactionFailureError struct {
	Digest   string
	Function string
	Detail   string
}

func (e *TransactionFailureError) Error() string {
	return fmt.Sprintf("%s transaction %s failed: %s", e.Function, e.Digest, e.Detail)
}

// IsTransactionFailure reports whether err is an on-chain execution failure.
func IsTransactionFailure(err error) bool {
	var target *TransactionFailureError
	return errors.As(err, &target)
}
