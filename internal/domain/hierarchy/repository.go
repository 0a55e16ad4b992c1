package hierarchy

import (
	"context"

	"github.com/google/uuid"
)

// NodeRepository provides read access to the recipient tree
type NodeRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*RecipientNode, error)
}

// ConfigRepository provides read access to split configurations and rules
type ConfigRepository interface {
	// GetActiveByStateNodeID returns (nil, nil) when the state node has no
	// active configuration.
	GetActiveByStateNodeID(ctx context.Context, stateNodeID uuid.UUID) (*SplitConfiguration, error)
	// GetActiveRules returns active rules ordered by sort order.
	GetActiveRules(ctx context.Context, configurationID uuid.UUID) ([]SplitRule, error)
}

// ErrNodeNotFound indicates a missing recipient node
type ErrNodeNotFound struct {
	NodeID uuid.UUID
}

func (e ErrNodeNotFound) Error() string {
	return "recipient node not found: " + e.NodeID.String()
}

// Is implements the errors.Is interface for ErrNodeNotFound
func (e ErrNodeNotFound) Is(target error) bool {
	t, ok := target.(ErrNodeNotFound)
	if !ok {
		return false
	}
	if t.NodeID == uuid.Nil {
		return true
	}
	return e.NodeID == t.NodeID
}
