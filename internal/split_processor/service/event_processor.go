package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/membership-split-service/internal/domain/shared"
)

// EventProcessorImpl routes payment events to the ledger writer or the
// reversal handler based on event type.
type EventProcessorImpl struct {
	logger          *slog.Logger
	ledgerWriter    LedgerWriter
	reversalHandler ReversalHandler
}

func NewEventProcessor(
	logger *slog.Logger,
	ledgerWriter LedgerWriter,
	reversalHandler ReversalHandler,
) EventProcessor {
	return &EventProcessorImpl{
		logger:          logger,
		ledgerWriter:    ledgerWriter,
		reversalHandler: reversalHandler,
	}
}

func (p *EventProcessorImpl) Process(ctx context.Context, event *shared.PaymentEvent) error {
	logger := p.logger
	if event.CorrelationID != "" {
		logger = p.logger.With("correlation_id", event.CorrelationID)
	}

	switch event.Type {
	case shared.EventTypePaymentCompleted:
		if event.ContributionID == uuid.Nil {
			logger.Error("Payment completed event carries no contribution id", "event_id", event.EventID)
			return fmt.Errorf("%w: payment.completed without contribution id", shared.ErrInvalidEventType)
		}
		return p.ledgerWriter.ProcessSplit(ctx, event.ContributionID)
	case shared.EventTypeChargeRefunded:
		if event.PaymentReference == "" {
			logger.Error("Charge refunded event carries no payment reference", "event_id", event.EventID)
			return fmt.Errorf("%w: charge.refunded without payment reference", shared.ErrInvalidEventType)
		}
		return p.reversalHandler.HandleRefund(ctx, event)
	default:
		logger.Error("Unknown payment event type", "event_id", event.EventID, "type", event.Type)
		return fmt.Errorf("%w: %s", shared.ErrInvalidEventType, event.Type)
	}
}
