package events

import (
	"context"
	"time"
)

// ProcessedEvent records a provider webhook event id that has already been
// accepted, so repeated deliveries of the same event are acknowledged
// without re-publishing.
type ProcessedEvent struct {
	EventID    string    `json:"event_id" bson:"event_id"`
	EventType  string    `json:"event_type" bson:"event_type"`
	ReceivedAt time.Time `json:"received_at" bson:"received_at"`
}

// Repository is the persisted set of processed provider event ids
type Repository interface {
	WasProcessed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, event *ProcessedEvent) error
}
