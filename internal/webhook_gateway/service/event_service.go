package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/membership-split-service/internal/domain/events"
	"github.com/membership-split-service/internal/domain/shared"
	"github.com/membership-split-service/internal/platform/messaging/producers"
)

type EventServiceImpl struct {
	logger          *slog.Logger
	processedEvents events.Repository
	publisher       producers.MessagePublisher
}

func NewEventService(
	logger *slog.Logger,
	processedEvents events.Repository,
	publisher producers.MessagePublisher,
) EventService {
	return &EventServiceImpl{
		logger:          logger,
		processedEvents: processedEvents,
		publisher:       publisher,
	}
}

// Process de-duplicates by event id and publishes the event. The id is
// recorded only after a successful publish; if recording fails the event may
// be re-published on redelivery, which downstream idempotency absorbs.
func (s *EventServiceImpl) Process(ctx context.Context, event *shared.PaymentEvent) (bool, error) {
	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
	}

	processed, err := s.processedEvents.WasProcessed(ctx, event.EventID)
	if err != nil {
		return false, fmt.Errorf("failed to check processed events for %s: %w", event.EventID, err)
	}
	if processed {
		logger.Info("Duplicate provider event, acknowledging without publish", "event_id", event.EventID)
		return true, nil
	}

	if err := s.publisher.Publish(ctx, event.EventID, event); err != nil {
		return false, fmt.Errorf("failed to publish payment event %s: %w", event.EventID, err)
	}

	if err := s.processedEvents.MarkProcessed(ctx, &events.ProcessedEvent{
		EventID:    event.EventID,
		EventType:  event.Type,
		ReceivedAt: time.Now().UTC(),
	}); err != nil {
		logger.Warn("Failed to record processed event id, duplicate detection degraded for this event",
			"event_id", event.EventID,
			"error", err,
		)
	}

	logger.Info("Accepted provider event", "event_id", event.EventID, "type", event.Type)
	return false, nil
}
