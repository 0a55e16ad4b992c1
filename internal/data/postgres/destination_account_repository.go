package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/membership-split-service/internal/domain/payout"
	"github.com/membership-split-service/internal/platform/persistence"
)

// DestinationAccountRepository implements the payout.Repository interface for PostgreSQL
type DestinationAccountRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewDestinationAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) payout.Repository {
	return &DestinationAccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// GetActiveByNodeID retrieves the node's active destination account,
// returning nil when the recipient has not onboarded one.
func (r *DestinationAccountRepository) GetActiveByNodeID(ctx context.Context, nodeID uuid.UUID) (*payout.DestinationAccount, error) {
	query := `
		SELECT id, recipient_node_id, provider_account_id, active, created_at
		FROM destination_accounts
		WHERE recipient_node_id = $1 AND active = true
		ORDER BY created_at DESC
		LIMIT 1
	`

	var account payout.DestinationAccount
	err := r.querier.QueryRow(ctx, query, nodeID).Scan(
		&account.ID,
		&account.RecipientNodeID,
		&account.ProviderAccountID,
		&account.Active,
		&account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No active destination account for this node
		}
		r.logger.Error("Failed to get destination account", "recipient_node_id", nodeID.String(), "error", err)
		return nil, fmt.Errorf("failed to get destination account: %w", err)
	}

	return &account, nil
}
