package order

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput marks intake validation failures. All input constraints are
// checked before any external call is made.
var ErrInvalidInput = errors.New("order: invalid request")

// StockUpdateFailedError reports a failed stock mutation at the inventory
// gateway. The batched adjust call is atomic on the gateway side, so a
// failure means no deltas were applied.
type StockUpdateFailedError struct {
	Err error
}

func (e *StockUpdateFailedError) Error() string {
	return fmt.Sprintf("order: stock update failed: %v", e.Err)
}

func (e *StockUpdateFailedError) Unwrap() error { return e.Err }

// PersistenceFailedError reports a failed write against the order store.
type PersistenceFailedError struct {
	Op  string // "create" or "update"
	Err error
}

func (e *PersistenceFailedError) Error() string {
	return fmt.Sprintf("order: persistence failed (%s): %v", e.Op, e.Err)
}

func (e *PersistenceFailedError) Unwrap() error { return e.Err }

// CompensationFailedError reports that a compensating action failed after the
// workflow already had to roll back. It is higher severity than the cause
// that triggered the rollback: the system is now in a known-inconsistent
// state and needs operator attention.
type CompensationFailedError struct {
	Cause error // the failure that triggered compensation, may be nil for a payment decline
	Errs  []error
}

func (e *CompensationFailedError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	if e.Cause != nil {
		return fmt.Sprintf("order: compensation failed after %v: %s", e.Cause, strings.Join(msgs, "; "))
	}
	return fmt.Sprintf("order: compensation failed: %s", strings.Join(msgs, "; "))
}

func (e *CompensationFailedError) Unwrap() error { return e.Cause }
