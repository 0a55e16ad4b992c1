package service

import (
	"context"

	"github.com/membership-split-service/internal/domain/shared"
)

// EventService accepts a verified provider event: de-duplicates it against
// the processed-event store and publishes it for the split processor.
// duplicate is true when the event id was already accepted.
type EventService interface {
	Process(ctx context.Context, event *shared.PaymentEvent) (duplicate bool, err error)
}
