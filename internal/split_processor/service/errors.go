package service

import (
	"fmt"

	"github.com/google/uuid"
)

// ReconciliationError marks the one state the system cannot repair on its
// own: the provider moved money but the local ledger update failed. It always
// carries the provider transfer id so an operator can reconcile by hand.
type ReconciliationError struct {
	EntryID    uuid.UUID
	TransferID string
	Err        error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconciliation required: provider transfer %s succeeded but ledger update for entry %s failed: %v", e.TransferID, e.EntryID, e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}
