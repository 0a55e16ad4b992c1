package shared

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidEventType = errors.New("invalid payment event type")
)

// Event types carried on the payment events topic
const (
	EventTypePaymentCompleted = "payment.completed"
	EventTypeChargeRefunded   = "charge.refunded"
)

// PaymentEvent defines a Kafka message for split processing.
// A payment.completed event carries the contribution id; a charge.refunded
// event carries the original payment reference plus charged/refunded amounts.
type PaymentEvent struct {
	EventID          string    `json:"event_id"`
	Type             string    `json:"type"`
	ContributionID   uuid.UUID `json:"contribution_id,omitempty"`
	PaymentReference string    `json:"payment_reference,omitempty"`
	AmountUnits      int64     `json:"amount_units,omitempty"` // Minor units (cents)
	AmountRefunded   int64     `json:"amount_refunded,omitempty"`
	Currency         string    `json:"currency,omitempty"`
	CorrelationID    string    `json:"correlation_id,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}
