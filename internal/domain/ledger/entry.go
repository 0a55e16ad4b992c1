package ledger

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/membership-split-service/internal/domain/shared"
)

// Entry is the unit of money movement: one recipient's allocation (positive
// amount) or reversal (negative amount) tied to a contribution. Entries are
// never deleted; the Transfer Executor mutates status/transfer fields and the
// Reversal Handler mutates the status of original rows.
type Entry struct {
	ID              uuid.UUID          `json:"id"`
	ContributionID  uuid.UUID          `json:"contribution_id"`
	SourceCategory  string             `json:"source_category"`
	RecipientNodeID uuid.UUID          `json:"recipient_node_id"`
	AmountUnits     int64              `json:"amount_units"` // Minor units, signed
	Currency        string             `json:"currency"`
	Status          shared.EntryStatus `json:"status"`
	TransferID      *string            `json:"transfer_id,omitempty"`
	TransferGroup   string             `json:"transfer_group"`
	RuleSnapshot    json.RawMessage    `json:"rule_snapshot,omitempty"`
	ReversalOfID    *uuid.UUID         `json:"reversal_of_id,omitempty"` // Set on reversal rows only
	CreatedAt       time.Time          `json:"created_at"`
	TransferredAt   *time.Time         `json:"transferred_at,omitempty"`
}

// IsOriginal reports whether the entry is an original allocation rather than
// a reversal row.
func (e *Entry) IsOriginal() bool {
	return e.AmountUnits > 0 && e.ReversalOfID == nil
}

// RuleSnapshot captures the split decision that produced an entry, for audit.
type RuleSnapshot struct {
	Model      string `json:"model,omitempty"`
	RuleID     string `json:"rule_id,omitempty"`
	Percentage string `json:"percentage,omitempty"`
	Reason     string `json:"reason"`
}

// MarshalSnapshot serializes a snapshot, returning nil on marshal failure so
// a bad snapshot never blocks a ledger write.
func MarshalSnapshot(s RuleSnapshot) json.RawMessage {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	return raw
}
