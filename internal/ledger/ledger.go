// internal/ledger/ledger.go
package ledger

import "context"

// Ledger is the minimal surface of the chain client consumed by the pricing
// engine: read one on-chain object, submit one move call and wait for its
// effects. Implementations live in subpackages (see ledger/sui).
type Ledger interface {
	// ReadObject fetches a live object by id. Returns *NotFoundError when the
	// object does not exist or is not yet visible to the node.
	ReadObject(ctx context.Context, objectID string) (*Object, error)

	// SubmitMoveCall builds, signs and executes a move call transaction and
	// waits for its effects. A non-nil result with Status == StatusFailure
	// means the transaction executed but aborted on-chain.
	SubmitMoveCall(ctx context.Context, call MoveCall) (*TransactionResult, error)
}

// Object is a decoded on-chain object. Numeric fields are decoded as
// json.Number or string, never float64, so callers can convert them to exact
// integers without precision loss.
type Object struct {
	ObjectID string
	Type     string
	Fields   map[string]any
}

// MoveCall identifies one entry function invocation.
type MoveCall struct {
	PackageID     string
	Module        string
	Function      string
	TypeArguments []string
	// Arguments are positional; object ids as strings, pure values as
	// decimal strings.
	Arguments []any
	GasBudget uint64
}

// Transaction execution status as reported by the node.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Event is one event emitted by an executed transaction.
type Event struct {
	Type       string
	ParsedJSON map[string]any
}

// TransactionResult is the confirmed outcome of a submitted transaction.
type TransactionResult struct {
	Digest string
	Status string
	// Error carries the node's abort/failure detail when Status is failure.
	Error  string
	Events []Event
}
