package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// KafkaWriter wraps the kafka.Writer surface the producers use, so tests can
// substitute a mock writer.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessagePublisher publishes payment events onto the primary topic. The
// webhook gateway's event service depends on this, not on a concrete writer.
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher routes messages the processor cannot handle to the DLQ
// topic, tagged with the failure reason.
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}
