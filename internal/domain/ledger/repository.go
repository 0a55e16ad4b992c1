package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository manages split entry persistence. ClaimPending is the only
// concurrency-safety mechanism in the subsystem: it conditionally moves
// PENDING rows to PROCESSING and returns exactly the rows this caller won.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	CreateBatch(ctx context.Context, entries []*Entry) error
	GetByContributionID(ctx context.Context, contributionID uuid.UUID) ([]*Entry, error)
	ExistsForContribution(ctx context.Context, contributionID uuid.UUID) (bool, error)
	ClaimPending(ctx context.Context, contributionID uuid.UUID) ([]*Entry, error)
	RevertToPending(ctx context.Context, entryID uuid.UUID) error
	MarkTransferred(ctx context.Context, entryID uuid.UUID, transferID string, transferredAt time.Time) error
	MarkFailed(ctx context.Context, entryID uuid.UUID) error
	MarkReversed(ctx context.Context, entryID uuid.UUID) error
	// ListContributionsWithStalePending returns ids of contributions holding
	// PENDING entries created before the cutoff, for the retry sweep.
	ListContributionsWithStalePending(ctx context.Context, olderThan time.Time, limit int) ([]uuid.UUID, error)
}

// ErrEntryNotFound indicates a missing split entry
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "split entry not found: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}
