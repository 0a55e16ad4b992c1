package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/membership-split-service/internal/domain/ledger"
	"github.com/membership-split-service/internal/domain/shared"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func splitEntryRows(entries ...*ledger.Entry) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"id", "contribution_id", "source_category", "recipient_node_id", "amount_units",
		"currency", "status", "transfer_id", "transfer_group", "rule_snapshot",
		"reversal_of_id", "created_at", "transferred_at",
	})
	for _, e := range entries {
		rows.AddRow(
			e.ID, e.ContributionID, e.SourceCategory, e.RecipientNodeID, e.AmountUnits,
			e.Currency, e.Status, e.TransferID, e.TransferGroup, e.RuleSnapshot,
			e.ReversalOfID, e.CreatedAt, e.TransferredAt,
		)
	}
	return rows
}

func pendingEntry(contributionID uuid.UUID, amountUnits int64, status shared.EntryStatus) *ledger.Entry {
	return &ledger.Entry{
		ID:              uuid.New(),
		ContributionID:  contributionID,
		SourceCategory:  "membership",
		RecipientNodeID: uuid.New(),
		AmountUnits:     amountUnits,
		Currency:        "USD",
		Status:          status,
		TransferGroup:   uuid.New().String(),
		CreatedAt:       time.Now().UTC(),
	}
}

func TestSplitEntryRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SplitEntryRepository{querier: mock, logger: logger}
	entry := pendingEntry(uuid.New(), 3000, shared.EntryStatusPending)

	query := regexp.QuoteMeta(`INSERT INTO split_entries (` + splitEntryColumns + `)`)

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(entry.ID, entry.ContributionID, entry.SourceCategory, entry.RecipientNodeID,
				entry.AmountUnits, entry.Currency, entry.Status, entry.TransferID, entry.TransferGroup,
				entry.RuleSnapshot, entry.ReversalOfID, entry.CreatedAt, entry.TransferredAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, entry)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(entry.ID, entry.ContributionID, entry.SourceCategory, entry.RecipientNodeID,
				entry.AmountUnits, entry.Currency, entry.Status, entry.TransferID, entry.TransferGroup,
				entry.RuleSnapshot, entry.ReversalOfID, entry.CreatedAt, entry.TransferredAt).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, entry)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create split entry")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSplitEntryRepository_ClaimPending(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SplitEntryRepository{querier: mock, logger: logger}
	contributionID := uuid.New()

	query := regexp.QuoteMeta(`UPDATE split_entries
			SET status = $1
			WHERE contribution_id = $2 AND status = $3
			RETURNING ` + splitEntryColumns)

	t.Run("claims pending rows", func(t *testing.T) {
		claimed := pendingEntry(contributionID, 3000, shared.EntryStatusProcessing)
		mock.ExpectQuery(query).
			WithArgs(shared.EntryStatusProcessing, contributionID, shared.EntryStatusPending).
			WillReturnRows(splitEntryRows(claimed))

		entries, err := repo.ClaimPending(ctx, contributionID)
		assert.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, claimed.ID, entries[0].ID)
		assert.Equal(t, shared.EntryStatusProcessing, entries[0].Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing to claim", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(shared.EntryStatusProcessing, contributionID, shared.EntryStatusPending).
			WillReturnRows(splitEntryRows())

		entries, err := repo.ClaimPending(ctx, contributionID)
		assert.NoError(t, err)
		assert.Empty(t, entries)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("claim db error")
		mock.ExpectQuery(query).
			WithArgs(shared.EntryStatusProcessing, contributionID, shared.EntryStatusPending).
			WillReturnError(dbErr)

		entries, err := repo.ClaimPending(ctx, contributionID)
		assert.Error(t, err)
		assert.Nil(t, entries)
		assert.Contains(t, err.Error(), "failed to claim pending split entries")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSplitEntryRepository_RevertToPending(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SplitEntryRepository{querier: mock, logger: logger}
	entryID := uuid.New()

	query := regexp.QuoteMeta(`UPDATE split_entries SET status = $1 WHERE id = $2 AND status = $3`)

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(shared.EntryStatusPending, entryID, shared.EntryStatusProcessing).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.RevertToPending(ctx, entryID)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("entry no longer processing", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(shared.EntryStatusPending, entryID, shared.EntryStatusProcessing).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.RevertToPending(ctx, entryID)
		assert.Error(t, err)
		var notFoundErr ledger.ErrEntryNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, entryID, notFoundErr.EntryID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("revert db error")
		mock.ExpectExec(query).
			WithArgs(shared.EntryStatusPending, entryID, shared.EntryStatusProcessing).
			WillReturnError(dbErr)

		err := repo.RevertToPending(ctx, entryID)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to revert split entry to pending")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSplitEntryRepository_MarkTransferred(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SplitEntryRepository{querier: mock, logger: logger}
	entryID := uuid.New()
	transferID := "tr_123"
	transferredAt := time.Now().UTC()

	query := regexp.QuoteMeta(`UPDATE split_entries SET status = $1, transfer_id = $2, transferred_at = $3 WHERE id = $4`)

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(shared.EntryStatusTransferred, transferID, transferredAt, entryID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.MarkTransferred(ctx, entryID, transferID, transferredAt)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("entry not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(shared.EntryStatusTransferred, transferID, transferredAt, entryID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.MarkTransferred(ctx, entryID, transferID, transferredAt)
		var notFoundErr ledger.ErrEntryNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSplitEntryRepository_MarkFailed(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SplitEntryRepository{querier: mock, logger: logger}
	entryID := uuid.New()

	query := regexp.QuoteMeta(`UPDATE split_entries SET status = $1 WHERE id = $2`)

	mock.ExpectExec(query).
		WithArgs(shared.EntryStatusFailed, entryID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.MarkFailed(ctx, entryID)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSplitEntryRepository_ExistsForContribution(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SplitEntryRepository{querier: mock, logger: logger}
	contributionID := uuid.New()

	query := regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM split_entries WHERE contribution_id = $1)`)

	t.Run("exists", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(contributionID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		exists, err := repo.ExistsForContribution(ctx, contributionID)
		assert.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("exists db error")
		mock.ExpectQuery(query).WithArgs(contributionID).WillReturnError(dbErr)

		exists, err := repo.ExistsForContribution(ctx, contributionID)
		assert.Error(t, err)
		assert.False(t, exists)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSplitEntryRepository_ListContributionsWithStalePending(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SplitEntryRepository{querier: mock, logger: logger}
	cutoff := time.Now().UTC().Add(-time.Minute)

	query := regexp.QuoteMeta(`SELECT DISTINCT contribution_id
			FROM split_entries
			WHERE status = $1 AND created_at < $2
			LIMIT $3`)

	t.Run("returns ids", func(t *testing.T) {
		id1 := uuid.New()
		id2 := uuid.New()
		mock.ExpectQuery(query).
			WithArgs(shared.EntryStatusPending, cutoff, 10).
			WillReturnRows(pgxmock.NewRows([]string{"contribution_id"}).AddRow(id1).AddRow(id2))

		ids, err := repo.ListContributionsWithStalePending(ctx, cutoff, 10)
		assert.NoError(t, err)
		assert.Equal(t, []uuid.UUID{id1, id2}, ids)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("list db error")
		mock.ExpectQuery(query).
			WithArgs(shared.EntryStatusPending, cutoff, 10).
			WillReturnError(dbErr)

		ids, err := repo.ListContributionsWithStalePending(ctx, cutoff, 10)
		assert.Error(t, err)
		assert.Nil(t, ids)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSplitEntryRepository_WithTx(t *testing.T) {
	logger := newTestLogger()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	originalRepo := &SplitEntryRepository{querier: mockPool, logger: logger}

	mockPool.ExpectBegin()
	pgxTx, err := mockPool.Begin(context.Background())
	require.NoError(t, err)

	txRepo := originalRepo.WithTx(pgxTx)

	assert.NotNil(t, txRepo)
	assert.Equal(t, originalRepo.logger, txRepo.(*SplitEntryRepository).logger)
	assert.Equal(t, pgxTx, txRepo.(*SplitEntryRepository).querier, "Querier in new repo should be the transaction")

	assert.NoError(t, mockPool.ExpectationsWereMet())
}
