package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/membership-split-service/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEventProcessor mocks the EventProcessor interface
type MockEventProcessor struct {
	mock.Mock
}

func (m *MockEventProcessor) Process(ctx context.Context, event *shared.PaymentEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func TestWorkerPoolEventProcessor_Process(t *testing.T) {
	logger := slog.Default()

	tests := []struct {
		name          string
		processorErr  error
		expectedError error
	}{
		{
			name:          "successful processing",
			processorErr:  nil,
			expectedError: nil,
		},
		{
			name:          "processing error",
			processorErr:  errors.New("processing error"),
			expectedError: errors.New("processing error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockBaseProcessor := &MockEventProcessor{}
			workerPoolProcessor, err := NewWorkerPoolEventProcessor(
				mockBaseProcessor,
				WorkerPoolConfig{Size: 2},
				logger,
			)
			require.NoError(t, err)
			defer workerPoolProcessor.Shutdown()

			event := &shared.PaymentEvent{
				EventID:        uuid.New().String(),
				Type:           shared.EventTypePaymentCompleted,
				ContributionID: uuid.New(),
				CorrelationID:  "corr1",
			}
			// The pool processes a copy of the event, so match on the id.
			mockBaseProcessor.On("Process", mock.Anything, mock.MatchedBy(func(e *shared.PaymentEvent) bool {
				return e.EventID == event.EventID
			})).Return(tt.processorErr).Once()

			err = workerPoolProcessor.Process(context.Background(), event)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}
			mockBaseProcessor.AssertExpectations(t)
		})
	}
}

func TestWorkerPoolEventProcessor_Concurrency(t *testing.T) {
	mockBaseProcessor := &MockEventProcessor{}
	logger := slog.Default()

	workerPoolProcessor, err := NewWorkerPoolEventProcessor(
		mockBaseProcessor,
		WorkerPoolConfig{Size: 5},
		logger,
	)
	require.NoError(t, err)
	defer workerPoolProcessor.Shutdown()

	var mu sync.Mutex
	counter := 0

	mockBaseProcessor.On("Process", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		// Simulate some work
		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		counter++
		mu.Unlock()
	}).Return(nil)

	numEvents := 10
	var wg sync.WaitGroup
	wg.Add(numEvents)

	for i := 0; i < numEvents; i++ {
		go func() {
			defer wg.Done()

			event := &shared.PaymentEvent{
				EventID:        uuid.New().String(),
				Type:           shared.EventTypePaymentCompleted,
				ContributionID: uuid.New(),
			}
			err := workerPoolProcessor.Process(context.Background(), event)
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.Equal(t, numEvents, counter)
	assert.True(t, workerPoolProcessor.Running() > 0)
	assert.Equal(t, 5, workerPoolProcessor.Capacity())
}
