package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/membership-split-service/internal/domain/hierarchy"
	"github.com/membership-split-service/internal/platform/persistence"
)

// SplitConfigRepository implements the hierarchy.ConfigRepository interface for PostgreSQL
type SplitConfigRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewSplitConfigRepository(logger *slog.Logger, db *persistence.PostgresDB) hierarchy.ConfigRepository {
	return &SplitConfigRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// GetActiveByStateNodeID retrieves the state node's active split
// configuration, returning nil when none exists.
func (r *SplitConfigRepository) GetActiveByStateNodeID(ctx context.Context, stateNodeID uuid.UUID) (*hierarchy.SplitConfiguration, error) {
	query := `
		SELECT id, state_node_id, model, active
		FROM split_configurations
		WHERE state_node_id = $1 AND active = true
	`

	var cfg hierarchy.SplitConfiguration
	err := r.querier.QueryRow(ctx, query, stateNodeID).Scan(
		&cfg.ID,
		&cfg.StateNodeID,
		&cfg.Model,
		&cfg.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No active configuration for this state node
		}
		r.logger.Error("Failed to get split configuration", "state_node_id", stateNodeID.String(), "error", err)
		return nil, fmt.Errorf("failed to get split configuration: %w", err)
	}

	return &cfg, nil
}

// GetActiveRules retrieves the configuration's active rules ordered by sort order
func (r *SplitConfigRepository) GetActiveRules(ctx context.Context, configurationID uuid.UUID) ([]hierarchy.SplitRule, error) {
	query := `
		SELECT id, configuration_id, recipient_node_id, percentage, active, sort_order
		FROM split_rules
		WHERE configuration_id = $1 AND active = true
		ORDER BY sort_order
	`

	rows, err := r.querier.Query(ctx, query, configurationID)
	if err != nil {
		r.logger.Error("Failed to get split rules", "configuration_id", configurationID.String(), "error", err)
		return nil, fmt.Errorf("failed to get split rules: %w", err)
	}
	defer rows.Close()

	var rules []hierarchy.SplitRule
	for rows.Next() {
		var rule hierarchy.SplitRule
		err := rows.Scan(
			&rule.ID,
			&rule.ConfigurationID,
			&rule.RecipientNodeID,
			&rule.Percentage,
			&rule.Active,
			&rule.SortOrder,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan split rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate split rules: %w", err)
	}
	return rules, nil
}
