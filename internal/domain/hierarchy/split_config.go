package hierarchy

import (
	"github.com/google/uuid"
	"github.com/membership-split-service/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SplitConfiguration is the optional per-state-node disbursement setting.
// At most one active configuration exists per state node.
type SplitConfiguration struct {
	ID          uuid.UUID                `json:"id"`
	StateNodeID uuid.UUID                `json:"state_node_id"`
	Model       shared.DisbursementModel `json:"model"`
	Active      bool                     `json:"active"`
}

// SplitRule assigns a percentage of the remainder to a recipient node.
// Active rules for one configuration conventionally sum to 100, but the
// calculator honors any sub-total and distributes all units regardless.
type SplitRule struct {
	ID              uuid.UUID       `json:"id"`
	ConfigurationID uuid.UUID       `json:"configuration_id"`
	RecipientNodeID uuid.UUID       `json:"recipient_node_id"`
	Percentage      decimal.Decimal `json:"percentage"` // 0-100
	Active          bool            `json:"active"`
	SortOrder       int             `json:"sort_order"`
}
