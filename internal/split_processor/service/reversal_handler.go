package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/membership-split-service/internal/domain/contribution"
	"github.com/membership-split-service/internal/domain/ledger"
	"github.com/membership-split-service/internal/domain/shared"
	"github.com/membership-split-service/internal/provider"
	"github.com/membership-split-service/internal/split_processor/split"
	"github.com/shopspring/decimal"
)

// fullRefundTolerance treats refund fractions within 0.1% of 1 as full
// refunds, absorbing provider-side fee rounding on the refunded amount.
var fullRefundTolerance = decimal.NewFromFloat(0.001)

type ReversalHandlerImpl struct {
	logger         *slog.Logger
	contributions  contribution.Repository
	entries        ledger.Repository
	providerClient provider.Client
}

func NewReversalHandler(
	logger *slog.Logger,
	contributions contribution.Repository,
	entries ledger.Repository,
	providerClient provider.Client,
) ReversalHandler {
	return &ReversalHandlerImpl{
		logger:         logger,
		contributions:  contributions,
		entries:        entries,
		providerClient: providerClient,
	}
}

// HandleRefund reverses the original allocations of the refunded charge.
// Full refunds undo each entry exactly; partial refunds distribute the
// refunded portion across entries with the same largest-remainder arithmetic
// the calculator uses, so reversal amounts sum exactly to the intended total.
// Entries already reversed are skipped, which makes duplicate refund events
// delivered past the gateway's dedup harmless.
func (h *ReversalHandlerImpl) HandleRefund(ctx context.Context, event *shared.PaymentEvent) error {
	logger := h.logger
	if event.CorrelationID != "" {
		logger = logger.With("correlation_id", event.CorrelationID)
	}
	logger = logger.With("payment_reference", event.PaymentReference)

	if event.AmountUnits <= 0 || event.AmountRefunded <= 0 {
		logger.Warn("Refund event carries non-positive amounts, ignoring",
			"amount_units", event.AmountUnits,
			"amount_refunded", event.AmountRefunded,
		)
		return nil
	}

	contrib, err := h.contributions.GetByPaymentReference(ctx, event.PaymentReference)
	if err != nil {
		return fmt.Errorf("failed to look up contribution for payment reference %s: %w", event.PaymentReference, err)
	}
	if contrib == nil {
		logger.Warn("No contribution matches refunded payment reference, ignoring")
		return nil
	}
	logger = logger.With("contribution_id", contrib.ID.String())

	all, err := h.entries.GetByContributionID(ctx, contrib.ID)
	if err != nil {
		return fmt.Errorf("failed to load entries for contribution %s: %w", contrib.ID, err)
	}
	originals := h.reversibleOriginals(logger, all)
	if len(originals) == 0 {
		logger.Info("No reversible entries for refunded contribution, nothing to do")
		return nil
	}

	fraction := decimal.NewFromInt(event.AmountRefunded).Div(decimal.NewFromInt(event.AmountUnits))
	fullRefund := fraction.Sub(decimal.NewFromInt(1)).Abs().LessThanOrEqual(fullRefundTolerance)

	amounts := reversalAmounts(originals, fraction, fullRefund)

	for i, entry := range originals {
		h.reverseEntry(ctx, logger, entry, amounts[i], fullRefund)
	}

	if fullRefund {
		if err := h.contributions.UpdatePaymentStatus(ctx, contrib.ID, shared.PaymentStatusRefunded); err != nil {
			return fmt.Errorf("failed to mark contribution %s refunded: %w", contrib.ID, err)
		}
		logger.Info("Contribution marked refunded")
	}
	return nil
}

// reversibleOriginals keeps original allocations that can still be reversed.
// Reversed rows are skipped for idempotency; failed rows need manual
// remediation and a warning, not an automatic reversal.
func (h *ReversalHandlerImpl) reversibleOriginals(logger *slog.Logger, entries []*ledger.Entry) []*ledger.Entry {
	originals := make([]*ledger.Entry, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsOriginal() {
			continue
		}
		switch entry.Status {
		case shared.EntryStatusReversed:
			logger.Debug("Entry already reversed, skipping", "entry_id", entry.ID.String())
		case shared.EntryStatusFailed:
			logger.Warn("Skipping failed entry during refund, needs manual remediation", "entry_id", entry.ID.String())
		default:
			originals = append(originals, entry)
		}
	}
	return originals
}

// reversalAmounts computes the positive units to undo per original entry.
func reversalAmounts(originals []*ledger.Entry, fraction decimal.Decimal, fullRefund bool) []int64 {
	amounts := make([]int64, len(originals))
	if fullRefund {
		for i, entry := range originals {
			amounts[i] = entry.AmountUnits
		}
		return amounts
	}

	var totalOriginal int64
	weights := make([]decimal.Decimal, len(originals))
	for i, entry := range originals {
		totalOriginal += entry.AmountUnits
		weights[i] = decimal.NewFromInt(entry.AmountUnits)
	}
	targetTotal := decimal.NewFromInt(totalOriginal).Mul(fraction).Round(0).IntPart()
	return split.DistributeByWeights(targetTotal, weights)
}

// reverseEntry undoes one original entry. Failures are logged and contained:
// one recipient's broken reversal never blocks the others.
func (h *ReversalHandlerImpl) reverseEntry(ctx context.Context, logger *slog.Logger, entry *ledger.Entry, amountUnits int64, fullRefund bool) {
	entryLogger := logger.With("entry_id", entry.ID.String())

	if amountUnits <= 0 {
		entryLogger.Debug("Reversal amount rounded to zero, skipping entry")
		return
	}

	if entry.Status == shared.EntryStatusTransferred {
		if entry.TransferID == nil {
			entryLogger.Error("Transferred entry has no transfer id, cannot reverse")
			return
		}
		// Money already left the platform; the provider reversal must succeed
		// before anything is recorded locally.
		_, err := h.providerClient.ReverseTransfer(ctx, reversalIdempotencyKey(entry.ID), *entry.TransferID, amountUnits)
		if err != nil {
			entryLogger.Error("Provider reversal failed, marking entry failed",
				"transfer_id", *entry.TransferID,
				"error", err,
			)
			if markErr := h.entries.MarkFailed(ctx, entry.ID); markErr != nil {
				entryLogger.Error("Failed to mark entry failed after provider reversal error", "error", markErr)
			}
			return
		}
	}

	kind := shared.RefundKindPartial
	if fullRefund {
		kind = shared.RefundKindFull
	}
	now := time.Now().UTC()
	originalID := entry.ID
	reversal := &ledger.Entry{
		ID:              uuid.New(),
		ContributionID:  entry.ContributionID,
		SourceCategory:  entry.SourceCategory,
		RecipientNodeID: entry.RecipientNodeID,
		AmountUnits:     -amountUnits,
		Currency:        entry.Currency,
		Status:          shared.EntryStatusTransferred,
		TransferGroup:   entry.TransferGroup,
		RuleSnapshot:    ledger.MarshalSnapshot(ledger.RuleSnapshot{Reason: string(kind)}),
		ReversalOfID:    &originalID,
		CreatedAt:       now,
		TransferredAt:   &now,
	}
	if err := h.entries.Create(ctx, reversal); err != nil {
		// Provider side is already reversed here. Log with both ids so the
		// ledger can be reconciled by hand.
		entryLogger.Error("RECONCILIATION REQUIRED: provider reversal succeeded but reversal row insert failed",
			"reversal_id", reversal.ID.String(),
			"error", err,
		)
		return
	}

	if err := h.entries.MarkReversed(ctx, entry.ID); err != nil {
		entryLogger.Error("Failed to mark original entry reversed", "error", err)
		return
	}
	entryLogger.Info("Entry reversed", "reversal_amount_units", amountUnits, "refund_kind", string(kind))
}

func reversalIdempotencyKey(entryID uuid.UUID) string {
	return "reversal-entry-" + entryID.String()
}
