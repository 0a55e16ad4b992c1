package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/membership-split-service/internal/domain/contribution"
	"github.com/membership-split-service/internal/domain/shared"
	"github.com/membership-split-service/internal/platform/persistence"
)

const contributionColumns = `id, payment_reference, payer_id, recipient_node_id, amount_units, currency, category, payment_status, created_at, updated_at`

// ContributionRepository implements the contribution.Repository interface for PostgreSQL
type ContributionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewContributionRepository(logger *slog.Logger, db *persistence.PostgresDB) contribution.Repository {
	return &ContributionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// GetByID retrieves a contribution by its ID
func (r *ContributionRepository) GetByID(ctx context.Context, id uuid.UUID) (*contribution.Contribution, error) {
	query := `
		SELECT ` + contributionColumns + `
		FROM contributions
		WHERE id = $1
	`

	contrib, err := r.scanOne(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contribution.ErrContributionNotFound{ContributionID: id}
		}
		r.logger.Error("Failed to get contribution", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get contribution: %w", err)
	}
	return contrib, nil
}

// GetByPaymentReference retrieves a contribution by its provider charge
// reference, returning nil when no contribution matches.
func (r *ContributionRepository) GetByPaymentReference(ctx context.Context, reference string) (*contribution.Contribution, error) {
	query := `
		SELECT ` + contributionColumns + `
		FROM contributions
		WHERE payment_reference = $1
	`

	contrib, err := r.scanOne(r.querier.QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No contribution for this reference
		}
		r.logger.Error("Failed to get contribution by payment reference", "payment_reference", reference, "error", err)
		return nil, fmt.Errorf("failed to get contribution by payment reference: %w", err)
	}
	return contrib, nil
}

// UpdatePaymentStatus updates only the payment status, the single field this
// subsystem owns on the contribution.
func (r *ContributionRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status shared.PaymentStatus) error {
	query := `
		UPDATE contributions
		SET payment_status = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update contribution payment status", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update contribution payment status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return contribution.ErrContributionNotFound{ContributionID: id}
	}
	return nil
}

func (r *ContributionRepository) scanOne(row pgx.Row) (*contribution.Contribution, error) {
	var contrib contribution.Contribution
	err := row.Scan(
		&contrib.ID,
		&contrib.PaymentReference,
		&contrib.PayerID,
		&contrib.RecipientNodeID,
		&contrib.AmountUnits,
		&contrib.Currency,
		&contrib.Category,
		&contrib.PaymentStatus,
		&contrib.CreatedAt,
		&contrib.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &contrib, nil
}
