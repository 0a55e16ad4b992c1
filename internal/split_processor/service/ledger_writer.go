package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/membership-split-service/internal/domain/contribution"
	"github.com/membership-split-service/internal/domain/hierarchy"
	"github.com/membership-split-service/internal/domain/ledger"
	"github.com/membership-split-service/internal/domain/shared"
	"github.com/membership-split-service/internal/split_processor/split"
)

const (
	snapshotReasonNationalFee    = "national_flat_fee"
	snapshotReasonStateRemainder = "state_remainder"
	snapshotReasonRuleSplit      = "rule_split"
)

type LedgerWriterImpl struct {
	logger         *slog.Logger
	txManager      TxManager
	contributions  contribution.Repository
	configs        hierarchy.ConfigRepository
	entries        EntryStore
	resolver       StateNodeResolver
	calculator     SplitCalculator
	executor       TransferExecutor
	nationalNodeID uuid.UUID
}

func NewLedgerWriter(
	logger *slog.Logger,
	txManager TxManager,
	contributions contribution.Repository,
	configs hierarchy.ConfigRepository,
	entries EntryStore,
	resolver StateNodeResolver,
	calculator SplitCalculator,
	executor TransferExecutor,
	nationalNodeID uuid.UUID,
) LedgerWriter {
	return &LedgerWriterImpl{
		logger:         logger,
		txManager:      txManager,
		contributions:  contributions,
		configs:        configs,
		entries:        entries,
		resolver:       resolver,
		calculator:     calculator,
		executor:       executor,
		nationalNodeID: nationalNodeID,
	}
}

// ProcessSplit computes and persists split entries for a completed
// contribution, then kicks off transfer execution. Safe to call repeatedly:
// existing entries for the contribution make it a no-op.
func (s *LedgerWriterImpl) ProcessSplit(ctx context.Context, contributionID uuid.UUID) error {
	logger := s.logger.With("contribution_id", contributionID.String())

	contrib, err := s.contributions.GetByID(ctx, contributionID)
	if err != nil {
		return fmt.Errorf("failed to load contribution %s: %w", contributionID, err)
	}
	if !contrib.IsSplittable() {
		logger.Debug("Contribution is not splittable, skipping",
			"category", contrib.Category,
			"amount_units", contrib.AmountUnits,
		)
		return nil
	}

	exists, err := s.entries.ExistsForContribution(ctx, contributionID)
	if err != nil {
		return fmt.Errorf("failed to check existing entries for contribution %s: %w", contributionID, err)
	}
	if exists {
		logger.Info("Split entries already exist for contribution, skipping")
		return nil
	}

	stateNodeID, err := s.resolver.ResolveStateNode(ctx, contrib.RecipientNodeID)
	if err != nil {
		return fmt.Errorf("failed to resolve state node for contribution %s: %w", contributionID, err)
	}

	cfg, rules, err := s.loadConfiguration(ctx, stateNodeID)
	if err != nil {
		return fmt.Errorf("failed to load split configuration for contribution %s: %w", contributionID, err)
	}

	allocations := s.calculator.Calculate(contrib.AmountUnits, stateNodeID, cfg, rules)
	rows := s.buildEntries(contrib, allocations, cfg)
	if len(rows) == 0 {
		logger.Warn("Split produced no positive allocations, nothing to persist")
		return nil
	}

	err = s.txManager.ExecuteTx(ctx, func(tx pgx.Tx) error {
		return s.entries.WithTx(tx).CreateBatch(ctx, rows)
	})
	if err != nil {
		return fmt.Errorf("failed to persist split entries for contribution %s: %w", contributionID, err)
	}
	logger.Info("Persisted split entries", "entry_count", len(rows))

	// The ledger is the system of record; a transfer failure here is logged
	// and swallowed because pending entries are retried by the sweep.
	if execErr := s.executor.ExecuteForContribution(ctx, contributionID); execErr != nil {
		logger.Error("Transfer execution failed after ledger write, entries remain for retry",
			"error", execErr,
		)
	}
	return nil
}

func (s *LedgerWriterImpl) loadConfiguration(ctx context.Context, stateNodeID *uuid.UUID) (*hierarchy.SplitConfiguration, []hierarchy.SplitRule, error) {
	if stateNodeID == nil {
		return nil, nil, nil
	}

	cfg, err := s.configs.GetActiveByStateNodeID(ctx, *stateNodeID)
	if err != nil {
		return nil, nil, err
	}
	if cfg == nil || cfg.Model != shared.DisbursementNationalManaged {
		return cfg, nil, nil
	}

	rules, err := s.configs.GetActiveRules(ctx, cfg.ID)
	if err != nil {
		return nil, nil, err
	}
	return cfg, rules, nil
}

// buildEntries maps allocations to ledger rows. The national share never
// leaves the platform's holding account, so its row is born transferred;
// everything else starts pending. All rows share one transfer group.
func (s *LedgerWriterImpl) buildEntries(contrib *contribution.Contribution, allocations []split.Allocation, cfg *hierarchy.SplitConfiguration) []*ledger.Entry {
	transferGroup := uuid.New().String()
	now := time.Now().UTC()

	rows := make([]*ledger.Entry, 0, len(allocations))
	for _, alloc := range allocations {
		if alloc.AmountUnits <= 0 {
			continue
		}

		entry := &ledger.Entry{
			ID:              uuid.New(),
			ContributionID:  contrib.ID,
			SourceCategory:  contrib.Category,
			RecipientNodeID: alloc.RecipientNodeID,
			AmountUnits:     alloc.AmountUnits,
			Currency:        contrib.Currency,
			Status:          shared.EntryStatusPending,
			TransferGroup:   transferGroup,
			RuleSnapshot:    ledger.MarshalSnapshot(buildSnapshot(alloc, cfg, s.nationalNodeID)),
			CreatedAt:       now,
		}
		if alloc.RecipientNodeID == s.nationalNodeID {
			entry.Status = shared.EntryStatusTransferred
			transferredAt := now
			entry.TransferredAt = &transferredAt
		}
		rows = append(rows, entry)
	}
	return rows
}

func buildSnapshot(alloc split.Allocation, cfg *hierarchy.SplitConfiguration, nationalNodeID uuid.UUID) ledger.RuleSnapshot {
	if alloc.Rule != nil {
		snapshot := ledger.RuleSnapshot{
			RuleID:     alloc.Rule.ID.String(),
			Percentage: alloc.Rule.Percentage.String(),
			Reason:     snapshotReasonRuleSplit,
		}
		if cfg != nil {
			snapshot.Model = string(cfg.Model)
		}
		return snapshot
	}
	if alloc.RecipientNodeID == nationalNodeID {
		return ledger.RuleSnapshot{Reason: snapshotReasonNationalFee}
	}
	snapshot := ledger.RuleSnapshot{Reason: snapshotReasonStateRemainder}
	if cfg != nil {
		snapshot.Model = string(cfg.Model)
	}
	return snapshot
}
