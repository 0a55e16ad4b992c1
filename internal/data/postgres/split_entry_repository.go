// Package postgres provides PostgreSQL implementations of the domain
// repositories. It handles all database operations while maintaining
// transaction safety and proper error handling for the split subsystem.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/membership-split-service/internal/domain/ledger"
	"github.com/membership-split-service/internal/domain/shared"
	"github.com/membership-split-service/internal/platform/persistence"
)

const splitEntryColumns = `id, contribution_id, source_category, recipient_node_id, amount_units, currency, status, transfer_id, transfer_group, rule_snapshot, reversal_of_id, created_at, transferred_at`

// SplitEntryRepository implements the ledger.Repository interface for PostgreSQL
type SplitEntryRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewSplitEntryRepository creates a new PostgreSQL split entry repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewSplitEntryRepository(logger *slog.Logger, db *persistence.PostgresDB) *SplitEntryRepository {
	return &SplitEntryRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, so entry writes can join
// an atomic batch with other repository calls.
func (r *SplitEntryRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &SplitEntryRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a single split entry
func (r *SplitEntryRepository) Create(ctx context.Context, entry *ledger.Entry) error {
	query := `
		INSERT INTO split_entries (` + splitEntryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.querier.Exec(ctx, query,
		entry.ID,
		entry.ContributionID,
		entry.SourceCategory,
		entry.RecipientNodeID,
		entry.AmountUnits,
		entry.Currency,
		entry.Status,
		entry.TransferID,
		entry.TransferGroup,
		entry.RuleSnapshot,
		entry.ReversalOfID,
		entry.CreatedAt,
		entry.TransferredAt,
	)
	if err != nil {
		r.logger.Error("Failed to create split entry", "entry_id", entry.ID.String(), "error", err)
		return fmt.Errorf("failed to create split entry: %w", err)
	}

	return nil
}

// CreateBatch stores all entries; callers run it inside a transaction so the
// batch is all-or-nothing.
func (r *SplitEntryRepository) CreateBatch(ctx context.Context, entries []*ledger.Entry) error {
	for _, entry := range entries {
		if err := r.Create(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

// GetByContributionID retrieves all entries for a contribution in creation order
func (r *SplitEntryRepository) GetByContributionID(ctx context.Context, contributionID uuid.UUID) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + splitEntryColumns + `
		FROM split_entries
		WHERE contribution_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.querier.Query(ctx, query, contributionID)
	if err != nil {
		r.logger.Error("Failed to get split entries", "contribution_id", contributionID.String(), "error", err)
		return nil, fmt.Errorf("failed to get split entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ExistsForContribution reports whether any entries exist for the contribution
func (r *SplitEntryRepository) ExistsForContribution(ctx context.Context, contributionID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM split_entries WHERE contribution_id = $1)`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, contributionID).Scan(&exists); err != nil {
		r.logger.Error("Failed to check split entry existence", "contribution_id", contributionID.String(), "error", err)
		return false, fmt.Errorf("failed to check split entry existence: %w", err)
	}
	return exists, nil
}

// ClaimPending atomically moves the contribution's PENDING entries to
// PROCESSING and returns exactly the rows this caller won. The conditional
// update is the concurrency guard: racing claimants never get the same row.
func (r *SplitEntryRepository) ClaimPending(ctx context.Context, contributionID uuid.UUID) ([]*ledger.Entry, error) {
	query := `
		UPDATE split_entries
		SET status = $1
		WHERE contribution_id = $2 AND status = $3
		RETURNING ` + splitEntryColumns + `
	`

	rows, err := r.querier.Query(ctx, query, shared.EntryStatusProcessing, contributionID, shared.EntryStatusPending)
	if err != nil {
		r.logger.Error("Failed to claim pending split entries", "contribution_id", contributionID.String(), "error", err)
		return nil, fmt.Errorf("failed to claim pending split entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// RevertToPending returns a claimed entry to PENDING so a later sweep can
// claim it again.
func (r *SplitEntryRepository) RevertToPending(ctx context.Context, entryID uuid.UUID) error {
	query := `UPDATE split_entries SET status = $1 WHERE id = $2 AND status = $3`

	result, err := r.querier.Exec(ctx, query, shared.EntryStatusPending, entryID, shared.EntryStatusProcessing)
	if err != nil {
		r.logger.Error("Failed to revert split entry to pending", "entry_id", entryID.String(), "error", err)
		return fmt.Errorf("failed to revert split entry to pending: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ledger.ErrEntryNotFound{EntryID: entryID}
	}
	return nil
}

// MarkTransferred records a successful provider transfer on the entry
func (r *SplitEntryRepository) MarkTransferred(ctx context.Context, entryID uuid.UUID, transferID string, transferredAt time.Time) error {
	query := `UPDATE split_entries SET status = $1, transfer_id = $2, transferred_at = $3 WHERE id = $4`

	result, err := r.querier.Exec(ctx, query, shared.EntryStatusTransferred, transferID, transferredAt, entryID)
	if err != nil {
		r.logger.Error("Failed to mark split entry transferred", "entry_id", entryID.String(), "error", err)
		return fmt.Errorf("failed to mark split entry transferred: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ledger.ErrEntryNotFound{EntryID: entryID}
	}
	return nil
}

// MarkFailed moves the entry to the terminal FAILED state
func (r *SplitEntryRepository) MarkFailed(ctx context.Context, entryID uuid.UUID) error {
	return r.setStatus(ctx, entryID, shared.EntryStatusFailed)
}

// MarkReversed marks an original entry as reversed
func (r *SplitEntryRepository) MarkReversed(ctx context.Context, entryID uuid.UUID) error {
	return r.setStatus(ctx, entryID, shared.EntryStatusReversed)
}

func (r *SplitEntryRepository) setStatus(ctx context.Context, entryID uuid.UUID, status shared.EntryStatus) error {
	query := `UPDATE split_entries SET status = $1 WHERE id = $2`

	result, err := r.querier.Exec(ctx, query, status, entryID)
	if err != nil {
		r.logger.Error("Failed to update split entry status", "entry_id", entryID.String(), "status", string(status), "error", err)
		return fmt.Errorf("failed to update split entry status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ledger.ErrEntryNotFound{EntryID: entryID}
	}
	return nil
}

// ListContributionsWithStalePending returns contributions holding PENDING
// entries created before the cutoff, for the retry sweep.
func (r *SplitEntryRepository) ListContributionsWithStalePending(ctx context.Context, olderThan time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT contribution_id
		FROM split_entries
		WHERE status = $1 AND created_at < $2
		LIMIT $3
	`

	rows, err := r.querier.Query(ctx, query, shared.EntryStatusPending, olderThan, limit)
	if err != nil {
		r.logger.Error("Failed to list contributions with stale pending entries", "error", err)
		return nil, fmt.Errorf("failed to list contributions with stale pending entries: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan contribution id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contribution ids: %w", err)
	}
	return ids, nil
}

func scanEntries(rows pgx.Rows) ([]*ledger.Entry, error) {
	var entries []*ledger.Entry
	for rows.Next() {
		var entry ledger.Entry
		err := rows.Scan(
			&entry.ID,
			&entry.ContributionID,
			&entry.SourceCategory,
			&entry.RecipientNodeID,
			&entry.AmountUnits,
			&entry.Currency,
			&entry.Status,
			&entry.TransferID,
			&entry.TransferGroup,
			&entry.RuleSnapshot,
			&entry.ReversalOfID,
			&entry.CreatedAt,
			&entry.TransferredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan split entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate split entries: %w", err)
	}
	return entries, nil
}
