package payout

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DestinationAccount is a recipient node's external payment-provider account.
// Read-only from this subsystem's perspective.
type DestinationAccount struct {
	ID                uuid.UUID `json:"id"`
	RecipientNodeID   uuid.UUID `json:"recipient_node_id"`
	ProviderAccountID string    `json:"provider_account_id"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
}

// Repository provides read access to destination accounts
type Repository interface {
	// GetActiveByNodeID returns (nil, nil) when the node has no active
	// destination account; the entry is then reverted to pending for a
	// later retry once the recipient onboards.
	GetActiveByNodeID(ctx context.Context, nodeID uuid.UUID) (*DestinationAccount, error)
}
