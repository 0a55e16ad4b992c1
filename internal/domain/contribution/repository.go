package contribution

import (
	"context"

	"github.com/google/uuid"
	"github.com/membership-split-service/internal/domain/shared"
)

// Repository manages contribution reads and payment-status updates
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Contribution, error)
	// GetByPaymentReference returns (nil, nil) when no contribution matches,
	// so refund events for unknown charges can be treated as no-ops.
	GetByPaymentReference(ctx context.Context, reference string) (*Contribution, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status shared.PaymentStatus) error
}

// ErrContributionNotFound indicates a missing contribution
type ErrContributionNotFound struct {
	ContributionID uuid.UUID
}

func (e ErrContributionNotFound) Error() string {
	return "contribution not found: " + e.ContributionID.String()
}

// Is implements the errors.Is interface for ErrContributionNotFound
func (e ErrContributionNotFound) Is(target error) bool {
	t, ok := target.(ErrContributionNotFound)
	if !ok {
		return false
	}
	if t.ContributionID == uuid.Nil {
		return true
	}
	return e.ContributionID == t.ContributionID
}
