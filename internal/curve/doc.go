// Package curve implements the client side of the linear bonding curve used
// to price dataset tokens.
//
// The authoritative curve state and all state transitions live on-chain in
// the bonding_curve move module; this package mirrors the contract's pricing
// formulas in exact integer arithmetic so callers can quote trades before
// submitting them. The pure functions here and the contract must agree
// bit-for-bit, which is why every calculation is done on big integers with
// truncating division and no floating point anywhere.
package curve
