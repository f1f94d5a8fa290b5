// Package transaction provides the handle a client holds for the lifetime
// of one transaction: a unique id plus the begin/commit/abort state machine.
// The heavy lifting (lock release, page flush or discard) lives in the
// buffer pool; the handle only guarantees each transaction terminates
// exactly once.
package transaction

import (
	dberror "storedb/pkg/error"
	"storedb/pkg/primitives"
	"sync"
)

// Completer is the slice of buffer-pool behavior a transaction needs to
// finish itself: flush-and-release on commit, discard-and-release on abort.
type Completer interface {
	CommitTransaction(tid primitives.TransactionID) error
	AbortTransaction(tid primitives.TransactionID)
}

// Transaction is a client's handle on one unit of work. It is created
// started and moves to exactly one of the two terminal states; Commit and
// Abort on an already-terminated transaction are errors.
type Transaction struct {
	mutex   sync.Mutex
	id      primitives.TransactionID
	started bool
}

// Begin allocates a fresh transaction id and returns a started transaction.
func Begin() *Transaction {
	return &Transaction{id: primitives.NewTransactionID(), started: true}
}

// ID returns the transaction's unique identifier.
func (t *Transaction) ID() primitives.TransactionID {
	return t.id
}

// Active reports whether the transaction has neither committed nor aborted.
func (t *Transaction) Active() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.started
}

// Commit flushes the transaction's dirtied pages through pool and releases
// its locks. The transaction is terminal afterwards even if the flush
// failed partway; a failed commit must be treated as an abort by the caller.
func (t *Transaction) Commit(pool Completer) error {
	if err := t.finish(); err != nil {
		return err
	}
	return pool.CommitTransaction(t.id)
}

// Abort discards the transaction's dirtied pages from pool and releases its
// locks.
func (t *Transaction) Abort(pool Completer) error {
	if err := t.finish(); err != nil {
		return err
	}
	pool.AbortTransaction(t.id)
	return nil
}

func (t *Transaction) finish() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if !t.started {
		return dberror.IllegalArgument("transaction " + t.id.String() + " already completed")
	}
	t.started = false
	return nil
}

func (t *Transaction) String() string {
	return t.id.String()
}
