package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/membership-split-service/internal/domain/shared"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolEventProcessor runs event processing on a bounded worker pool
// while keeping the caller's synchronous error semantics, so the Kafka
// consumer still commits offsets based on the real processing outcome.
type WorkerPoolEventProcessor struct {
	baseProcessor EventProcessor
	pool          *ants.Pool
	logger        *slog.Logger
	mu            sync.Mutex
	results       map[string]chan error
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolEventProcessor(
	baseProcessor EventProcessor,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolEventProcessor, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolEventProcessor{
		baseProcessor: baseProcessor,
		pool:          pool,
		logger:        logger,
		results:       make(map[string]chan error),
	}, nil
}

// Process submits the event to the worker pool and waits for its result.
func (s *WorkerPoolEventProcessor) Process(ctx context.Context, event *shared.PaymentEvent) error {
	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Submitting payment event to worker pool",
		"event_id", event.EventID,
		"type", event.Type,
	)

	resultChan := make(chan error, 1)

	s.mu.Lock()
	s.results[event.EventID] = resultChan
	s.mu.Unlock()

	// Copy the event to avoid data races with the caller
	eventCopy := *event

	err := s.pool.Submit(func() {
		err := s.baseProcessor.Process(ctx, &eventCopy)

		resultChan <- err

		s.mu.Lock()
		delete(s.results, eventCopy.EventID)
		close(resultChan)
		s.mu.Unlock()
	})

	if err != nil {
		s.mu.Lock()
		delete(s.results, event.EventID)
		close(resultChan)
		s.mu.Unlock()

		logger.Error("Failed to submit payment event to worker pool",
			"event_id", event.EventID,
			"error", err,
		)
		return err
	}

	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolEventProcessor) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolEventProcessor) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolEventProcessor) Capacity() int {
	return s.pool.Cap()
}
