package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/membership-split-service/internal/domain/ledger"
	"github.com/membership-split-service/internal/domain/payout"
	"github.com/membership-split-service/internal/provider"
)

type TransferExecutorImpl struct {
	logger         *slog.Logger
	entries        ledger.Repository
	accounts       payout.Repository
	providerClient provider.Client
}

func NewTransferExecutor(
	logger *slog.Logger,
	entries ledger.Repository,
	accounts payout.Repository,
	providerClient provider.Client,
) TransferExecutor {
	return &TransferExecutorImpl{
		logger:         logger,
		entries:        entries,
		accounts:       accounts,
		providerClient: providerClient,
	}
}

// ExecuteForContribution claims the contribution's pending entries and moves
// money for each one. The claim is the only concurrency guard: concurrent
// invocations can win any given row at most once. Per-entry failures are
// isolated; the joined error reports every entry that did not transfer.
func (e *TransferExecutorImpl) ExecuteForContribution(ctx context.Context, contributionID uuid.UUID) error {
	logger := e.logger.With("contribution_id", contributionID.String())

	claimed, err := e.entries.ClaimPending(ctx, contributionID)
	if err != nil {
		return fmt.Errorf("failed to claim pending entries for contribution %s: %w", contributionID, err)
	}
	if len(claimed) == 0 {
		logger.Debug("No pending entries to transfer")
		return nil
	}
	logger.Info("Claimed pending entries for transfer", "entry_count", len(claimed))

	var errs []error
	for _, entry := range claimed {
		if err := e.executeEntry(ctx, logger, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *TransferExecutorImpl) executeEntry(ctx context.Context, logger *slog.Logger, entry *ledger.Entry) error {
	entryLogger := logger.With("entry_id", entry.ID.String(), "recipient_node_id", entry.RecipientNodeID.String())

	if entry.AmountUnits <= 0 {
		entryLogger.Warn("Refusing to transfer non-positive amount", "amount_units", entry.AmountUnits)
		return nil
	}

	account, err := e.accounts.GetActiveByNodeID(ctx, entry.RecipientNodeID)
	if err != nil {
		if revertErr := e.entries.RevertToPending(ctx, entry.ID); revertErr != nil {
			entryLogger.Error("Failed to revert entry to pending after account lookup error", "error", revertErr)
		}
		return fmt.Errorf("failed to look up destination account for entry %s: %w", entry.ID, err)
	}
	if account == nil {
		// Recipient has not onboarded yet. Back to pending so a later sweep
		// can claim the entry again.
		entryLogger.Info("No active destination account, reverting entry to pending")
		if revertErr := e.entries.RevertToPending(ctx, entry.ID); revertErr != nil {
			entryLogger.Error("Failed to revert entry to pending", "error", revertErr)
			return fmt.Errorf("failed to revert entry %s to pending: %w", entry.ID, revertErr)
		}
		return nil
	}

	// The idempotency key is derived from the entry id so provider-side
	// retries of the same entry can never double-transfer.
	idempotencyKey := transferIdempotencyKey(entry.ID)
	transfer, err := e.providerClient.CreateTransfer(ctx, idempotencyKey, &provider.TransferRequest{
		DestinationAccountID: account.ProviderAccountID,
		AmountUnits:          entry.AmountUnits,
		Currency:             entry.Currency,
		TransferGroup:        entry.TransferGroup,
	})
	if err != nil {
		entryLogger.Error("Provider transfer failed, marking entry failed", "error", err)
		if markErr := e.entries.MarkFailed(ctx, entry.ID); markErr != nil {
			entryLogger.Error("Failed to mark entry failed after provider error", "error", markErr)
		}
		return fmt.Errorf("provider transfer for entry %s failed: %w", entry.ID, err)
	}

	if err := e.entries.MarkTransferred(ctx, entry.ID, transfer.ID, time.Now().UTC()); err != nil {
		// Money has moved but the ledger does not reflect it. Never swallow
		// this; an operator reconciles by the transfer id.
		reconErr := &ReconciliationError{EntryID: entry.ID, TransferID: transfer.ID, Err: err}
		entryLogger.Error("RECONCILIATION REQUIRED: provider transfer succeeded but ledger update failed",
			"transfer_id", transfer.ID,
			"error", err,
		)
		return reconErr
	}

	entryLogger.Info("Entry transferred", "transfer_id", transfer.ID, "amount_units", entry.AmountUnits)
	return nil
}

func transferIdempotencyKey(entryID uuid.UUID) string {
	return "split-entry-" + entryID.String()
}
