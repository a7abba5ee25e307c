// internal/ledger/sui/signer.go
package sui

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// ed25519 scheme flag, prefixed to public keys and serialized signatures.
const ed25519Flag byte = 0x00

// Intent prefix for transaction data: scope TransactionData, version 0, app Sui.
var transactionIntent = []byte{0, 0, 0}

// Signer holds the ed25519 key used to sign transaction blocks and derives
// the on-chain address for the key.
type Signer struct {
	priv    ed25519.PrivateKey
	address string
}

// NewSignerFromBase64 builds a signer from a base64-encoded 32-byte ed25519
// seed. A 33-byte input with a leading scheme flag is accepted as well.
func NewSignerFromBase64(encoded string) (*Signer, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(raw) == ed25519.SeedSize+1 && raw[0] == ed25519Flag {
		raw = raw[1:]
	}
	if len(raw) != ed25519.SeedSize {
		return nil, fmt.Errorf("unexpected private key length: %d", len(raw))
	}

	priv := ed25519.NewKeyFromSeed(raw)
	pub := priv.Public().(ed25519.PublicKey)

	// Address = blake2b-256 over flag || pubkey.
	payload := append([]byte{ed25519Flag}, pub...)
	sum := blake2b.Sum256(payload)

	return &Signer{
		priv:    priv,
		address: "0x" + hex.EncodeToString(sum[:]),
	}, nil
}

// Address returns the hex-encoded address derived from the signing key.
func (s *Signer) Address() string {
	return s.address
}

// SignTransactionBytes signs raw transaction block bytes and returns the
// serialized signature (flag || signature || pubkey) in base64. The digest
// signed is blake2b-256 over the intent prefix plus the transaction bytes.
func (s *Signer) SignTransactionBytes(txBytes []byte) string {
	msg := make([]byte, 0, len(transactionIntent)+len(txBytes))
	msg = append(msg, transactionIntent...)
	msg = append(msg, txBytes...)
	digest := blake2b.Sum256(msg)

	sig := ed25519.Sign(s.priv, digest[:])
	pub := s.priv.Public().(ed25519.PublicKey)

	serialized := make([]byte, 0, 1+len(sig)+len(pub))
	serialized = append(serialized, ed25519Flag)
	serialized = append(serialized, sig...)
	serialized = append(serialized, pub...)
	return base64.StdEncoding.EncodeToString(serialized)
}
