package hierarchy

import (
	"github.com/google/uuid"
	"github.com/membership-split-service/internal/domain/shared"
)

// RecipientNode is a node in the strict recipient tree: the national body at
// the root, at most one state-level ancestor per node, arbitrary sub-recipients
// below state level.
type RecipientNode struct {
	ID       uuid.UUID        `json:"id"`
	Name     string           `json:"name"`
	Level    shared.NodeLevel `json:"level"`
	ParentID *uuid.UUID       `json:"parent_id,omitempty"`
}

// IsRoot reports whether the node has no parent
func (n *RecipientNode) IsRoot() bool {
	return n.ParentID == nil
}
