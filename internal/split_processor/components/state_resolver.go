package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/membership-split-service/internal/domain/hierarchy"
	"github.com/membership-split-service/internal/domain/shared"
)

// StateResolver finds the state-level ancestor of a recipient node by
// walking the parent chain.
type StateResolver struct {
	logger   *slog.Logger
	nodeRepo hierarchy.NodeRepository
}

func NewStateResolver(logger *slog.Logger, nodeRepo hierarchy.NodeRepository) *StateResolver {
	return &StateResolver{
		logger:   logger,
		nodeRepo: nodeRepo,
	}
}

// ResolveStateNode returns the id of the state-level node at or above
// startNodeID, or nil when the chain reaches the root without passing one.
// A revisited node means the hierarchy data is corrupt; the walk logs it and
// treats the result as "no state node" rather than looping.
func (r *StateResolver) ResolveStateNode(ctx context.Context, startNodeID uuid.UUID) (*uuid.UUID, error) {
	visited := make(map[uuid.UUID]bool)
	currentID := startNodeID

	for {
		if visited[currentID] {
			r.logger.Error("Cycle detected in recipient hierarchy, treating as no state node",
				"start_node_id", startNodeID,
				"revisited_node_id", currentID,
			)
			return nil, nil
		}
		visited[currentID] = true

		node, err := r.nodeRepo.GetByID(ctx, currentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load recipient node %s: %w", currentID, err)
		}

		if node.Level == shared.NodeLevelState {
			id := node.ID
			return &id, nil
		}
		if node.ParentID == nil {
			return nil, nil
		}
		currentID = *node.ParentID
	}
}
