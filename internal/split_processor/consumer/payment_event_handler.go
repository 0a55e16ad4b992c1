package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/membership-split-service/internal/domain/shared"
	"github.com/membership-split-service/internal/platform/messaging/producers"
	"github.com/membership-split-service/internal/split_processor/service"
)

// PaymentEventHandler handles incoming payment event messages from Kafka
type PaymentEventHandler struct {
	eventProcessor service.EventProcessor
	producer       producers.DeadLetterPublisher
	logger         *slog.Logger
}

func NewPaymentEventHandler(
	logger *slog.Logger,
	eventProcessor service.EventProcessor,
	producer producers.DeadLetterPublisher,
) *PaymentEventHandler {
	return &PaymentEventHandler{
		eventProcessor: eventProcessor,
		producer:       producer,
		logger:         logger,
	}
}

// HandleMessage processes Kafka messages. Unparseable messages and unknown
// event types go to the DLQ; processing errors are returned so the offset is
// not committed and the message is redelivered.
func (h *PaymentEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event shared.PaymentEvent
	if err := json.Unmarshal(value, &event); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal payment event from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)
		return h.sendToDLQ(ctx, key, value, fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error()), err)
	}

	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Received payment event for processing",
		"event_id", event.EventID,
		"type", event.Type,
	)

	if err := h.eventProcessor.Process(ctx, &event); err != nil {
		// Malformed events never become processable through redelivery.
		if errors.Is(err, shared.ErrInvalidEventType) {
			logger.Error("Payment event is invalid, routing to DLQ",
				"event_id", event.EventID,
				"type", event.Type,
				"error", err,
			)
			return h.sendToDLQ(ctx, key, value, err.Error(), err)
		}

		logger.Error("Failed to process payment event",
			"event_id", event.EventID,
			"type", event.Type,
			"error", err,
		)
		return fmt.Errorf("processing payment event %s failed: %w", event.EventID, err)
	}

	logger.Info("Successfully processed payment event", "event_id", event.EventID)
	return nil // Success, commit offset
}

// sendToDLQ parks the raw message on the dead letter topic. When the DLQ is
// unavailable the original error is returned so Kafka redelivers.
func (h *PaymentEventHandler) sendToDLQ(ctx context.Context, key []byte, value []byte, reason string, originalErr error) error {
	if h.producer == nil {
		return fmt.Errorf("message cannot be processed and DLQ is disabled: %w", originalErr)
	}

	if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", dlqErr,
			"original_error", originalErr,
			"message_key", string(key),
		)
		return fmt.Errorf("message could not be processed or dead-lettered: %w", originalErr)
	}

	h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", reason)
	return nil // Message handled, commit offset
}
