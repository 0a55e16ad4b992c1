package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/membership-split-service/internal/domain/hierarchy"
	"github.com/membership-split-service/internal/domain/ledger"
	"github.com/membership-split-service/internal/domain/shared"
	"github.com/membership-split-service/internal/split_processor/split"
)

// EventProcessor dispatches a payment event to the matching handler.
type EventProcessor interface {
	Process(ctx context.Context, event *shared.PaymentEvent) error
}

// LedgerWriter turns a completed contribution into persisted split entries.
type LedgerWriter interface {
	ProcessSplit(ctx context.Context, contributionID uuid.UUID) error
}

// TransferExecutor moves money for a contribution's pending entries.
type TransferExecutor interface {
	ExecuteForContribution(ctx context.Context, contributionID uuid.UUID) error
}

// ReversalHandler undoes allocations in response to a refund event.
type ReversalHandler interface {
	HandleRefund(ctx context.Context, event *shared.PaymentEvent) error
}

// StateNodeResolver finds the state-level ancestor of a recipient node,
// returning nil when the chain reaches the root without one.
type StateNodeResolver interface {
	ResolveStateNode(ctx context.Context, startNodeID uuid.UUID) (*uuid.UUID, error)
}

// SplitCalculator computes exact-sum allocations for a contribution amount.
type SplitCalculator interface {
	Calculate(totalUnits int64, stateNodeID *uuid.UUID, cfg *hierarchy.SplitConfiguration, rules []hierarchy.SplitRule) []split.Allocation
}

// TxManager runs a function inside a database transaction.
type TxManager interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// EntryStore is the split entry repository plus transaction binding, so the
// batch insert can run inside the writer's transaction.
type EntryStore interface {
	ledger.Repository
	WithTx(tx pgx.Tx) ledger.Repository
}
