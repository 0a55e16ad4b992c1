package contribution

import (
	"time"

	"github.com/google/uuid"
	"github.com/membership-split-service/internal/domain/shared"
)

// CategoryMembership is the only contribution category that triggers splitting
const CategoryMembership = "membership"

// Contribution represents a completed payment owned by the upstream payment
// subsystem. The split subsystem reads it and only ever mutates payment_status.
type Contribution struct {
	ID               uuid.UUID            `json:"id"`
	PaymentReference string               `json:"payment_reference"` // Provider-side charge reference
	PayerID          uuid.UUID            `json:"payer_id"`
	RecipientNodeID  uuid.UUID            `json:"recipient_node_id"` // Originating hierarchy node
	AmountUnits      int64                `json:"amount_units"`      // Minor units (cents)
	Currency         string               `json:"currency"`
	Category         string               `json:"category"`
	PaymentStatus    shared.PaymentStatus `json:"payment_status"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// IsSplittable reports whether this contribution should produce ledger entries
func (c *Contribution) IsSplittable() bool {
	return c.Category == CategoryMembership && c.AmountUnits > 0
}
