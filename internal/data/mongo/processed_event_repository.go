// Package mongo provides MongoDB implementations of the domain repositories.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/membership-split-service/internal/domain/events"
)

const (
	// ProcessedEventCollectionName is the name of the processed events collection
	ProcessedEventCollectionName = "processed_events"
)

// ProcessedEventRepository implements the events.Repository interface for
// MongoDB. It backs the webhook gateway's duplicate-delivery detection.
type ProcessedEventRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewProcessedEventRepository creates a new MongoDB processed event
// repository and ensures the unique event id index exists.
func NewProcessedEventRepository(ctx context.Context, logger *slog.Logger, db *mongo.Database) (events.Repository, error) {
	repo := &ProcessedEventRepository{
		db:     db,
		logger: logger,
	}

	collection := db.Collection(ProcessedEventCollectionName)
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "event_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return nil, fmt.Errorf("failed to create processed events index: %w", err)
	}

	return repo, nil
}

// WasProcessed reports whether the event id has already been accepted
func (r *ProcessedEventRepository) WasProcessed(ctx context.Context, eventID string) (bool, error) {
	collection := r.db.Collection(ProcessedEventCollectionName)

	filter := bson.M{"event_id": eventID}
	err := collection.FindOne(ctx, filter).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		r.logger.Error("Failed to check processed event", "event_id", eventID, "error", err)
		return false, fmt.Errorf("failed to check processed event: %w", err)
	}
	return true, nil
}

// MarkProcessed records the event id. A concurrent insert of the same id
// trips the unique index; that duplicate is treated as already marked.
func (r *ProcessedEventRepository) MarkProcessed(ctx context.Context, event *events.ProcessedEvent) error {
	collection := r.db.Collection(ProcessedEventCollectionName)

	_, err := collection.InsertOne(ctx, event)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Debug("Processed event already recorded", "event_id", event.EventID)
			return nil
		}
		r.logger.Error("Failed to mark event processed", "event_id", event.EventID, "error", err)
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}
