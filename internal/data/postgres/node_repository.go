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

// NodeRepository implements the hierarchy.NodeRepository interface for PostgreSQL
type NodeRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewNodeRepository(logger *slog.Logger, db *persistence.PostgresDB) hierarchy.NodeRepository {
	return &NodeRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// GetByID retrieves a recipient node by its ID
func (r *NodeRepository) GetByID(ctx context.Context, id uuid.UUID) (*hierarchy.RecipientNode, error) {
	query := `
		SELECT id, name, level, parent_id
		FROM recipient_nodes
		WHERE id = $1
	`

	var node hierarchy.RecipientNode
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&node.ID,
		&node.Name,
		&node.Level,
		&node.ParentID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, hierarchy.ErrNodeNotFound{NodeID: id}
		}
		r.logger.Error("Failed to get recipient node", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get recipient node: %w", err)
	}

	return &node, nil
}
