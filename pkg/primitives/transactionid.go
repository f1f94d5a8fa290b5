package primitives

import (
	"fmt"
	"sync/atomic"
)

var transactionCounter int64

// NewTransactionID allocates a fresh, globally unique transaction identifier.
// IDs are monotonically increasing for the lifetime of the process.
func NewTransactionID() TransactionID {
	return TransactionID(atomic.AddInt64(&transactionCounter, 1))
}

// String returns a human-readable representation of the transaction id.
func (t TransactionID) String() string {
	return fmt.Sprintf("TID-%d", int64(t))
}
