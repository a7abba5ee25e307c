// internal/ledger/errors.go
package ledger

import (
	"errors"
	"fmt"
)

// NotFoundError reports that an object id did not resolve to a live object.
// Freshly created objects may not be visible to read replicas yet, so callers
// are expected to treat this class as retryable.
type NotFoundError struct {
	ObjectID string
	Detail   string
}

func (e *NotFoundError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("object %s not found: %s", e.ObjectID, e.Detail)
	}
	return fmt.Sprintf("object %s not found", e.ObjectID)
}

// IsNotFound reports whether err is the retryable not-found class.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
