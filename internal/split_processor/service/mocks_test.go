package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/membership-split-service/internal/domain/contribution"
	"github.com/membership-split-service/internal/domain/hierarchy"
	"github.com/membership-split-service/internal/domain/ledger"
	"github.com/membership-split-service/internal/domain/payout"
	"github.com/membership-split-service/internal/domain/shared"
	"github.com/membership-split-service/internal/provider"
	"github.com/membership-split-service/internal/split_processor/split"
	"github.com/stretchr/testify/mock"
)

// Mock implementations of the service dependencies

type MockContributionRepository struct {
	mock.Mock
}

func (m *MockContributionRepository) GetByID(ctx context.Context, id uuid.UUID) (*contribution.Contribution, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contribution.Contribution), args.Error(1)
}

func (m *MockContributionRepository) GetByPaymentReference(ctx context.Context, reference string) (*contribution.Contribution, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contribution.Contribution), args.Error(1)
}

func (m *MockContributionRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status shared.PaymentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type MockConfigRepository struct {
	mock.Mock
}

func (m *MockConfigRepository) GetActiveByStateNodeID(ctx context.Context, stateNodeID uuid.UUID) (*hierarchy.SplitConfiguration, error) {
	args := m.Called(ctx, stateNodeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*hierarchy.SplitConfiguration), args.Error(1)
}

func (m *MockConfigRepository) GetActiveRules(ctx context.Context, configurationID uuid.UUID) ([]hierarchy.SplitRule, error) {
	args := m.Called(ctx, configurationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]hierarchy.SplitRule), args.Error(1)
}

// MockEntryStore mocks the ledger repository. WithTx returns the mock itself
// so transactional code paths hit the same expectations.
type MockEntryStore struct {
	mock.Mock
}

func (m *MockEntryStore) WithTx(tx pgx.Tx) ledger.Repository {
	return m
}

func (m *MockEntryStore) Create(ctx context.Context, entry *ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockEntryStore) CreateBatch(ctx context.Context, entries []*ledger.Entry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockEntryStore) GetByContributionID(ctx context.Context, contributionID uuid.UUID) ([]*ledger.Entry, error) {
	args := m.Called(ctx, contributionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockEntryStore) ExistsForContribution(ctx context.Context, contributionID uuid.UUID) (bool, error) {
	args := m.Called(ctx, contributionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockEntryStore) ClaimPending(ctx context.Context, contributionID uuid.UUID) ([]*ledger.Entry, error) {
	args := m.Called(ctx, contributionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockEntryStore) RevertToPending(ctx context.Context, entryID uuid.UUID) error {
	args := m.Called(ctx, entryID)
	return args.Error(0)
}

func (m *MockEntryStore) MarkTransferred(ctx context.Context, entryID uuid.UUID, transferID string, transferredAt time.Time) error {
	args := m.Called(ctx, entryID, transferID, transferredAt)
	return args.Error(0)
}

func (m *MockEntryStore) MarkFailed(ctx context.Context, entryID uuid.UUID) error {
	args := m.Called(ctx, entryID)
	return args.Error(0)
}

func (m *MockEntryStore) MarkReversed(ctx context.Context, entryID uuid.UUID) error {
	args := m.Called(ctx, entryID)
	return args.Error(0)
}

func (m *MockEntryStore) ListContributionsWithStalePending(ctx context.Context, olderThan time.Time, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type MockDestinationAccountRepository struct {
	mock.Mock
}

func (m *MockDestinationAccountRepository) GetActiveByNodeID(ctx context.Context, nodeID uuid.UUID) (*payout.DestinationAccount, error) {
	args := m.Called(ctx, nodeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payout.DestinationAccount), args.Error(1)
}

type MockProviderClient struct {
	mock.Mock
}

func (m *MockProviderClient) CreateTransfer(ctx context.Context, idempotencyKey string, req *provider.TransferRequest) (*provider.Transfer, error) {
	args := m.Called(ctx, idempotencyKey, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Transfer), args.Error(1)
}

func (m *MockProviderClient) ReverseTransfer(ctx context.Context, idempotencyKey string, transferID string, amountUnits int64) (*provider.Reversal, error) {
	args := m.Called(ctx, idempotencyKey, transferID, amountUnits)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Reversal), args.Error(1)
}

type MockStateNodeResolver struct {
	mock.Mock
}

func (m *MockStateNodeResolver) ResolveStateNode(ctx context.Context, startNodeID uuid.UUID) (*uuid.UUID, error) {
	args := m.Called(ctx, startNodeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*uuid.UUID), args.Error(1)
}

type MockSplitCalculator struct {
	mock.Mock
}

func (m *MockSplitCalculator) Calculate(totalUnits int64, stateNodeID *uuid.UUID, cfg *hierarchy.SplitConfiguration, rules []hierarchy.SplitRule) []split.Allocation {
	args := m.Called(totalUnits, stateNodeID, cfg, rules)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]split.Allocation)
}

type MockTransferExecutor struct {
	mock.Mock
}

func (m *MockTransferExecutor) ExecuteForContribution(ctx context.Context, contributionID uuid.UUID) error {
	args := m.Called(ctx, contributionID)
	return args.Error(0)
}

type MockLedgerWriter struct {
	mock.Mock
}

func (m *MockLedgerWriter) ProcessSplit(ctx context.Context, contributionID uuid.UUID) error {
	args := m.Called(ctx, contributionID)
	return args.Error(0)
}

type MockReversalHandler struct {
	mock.Mock
}

func (m *MockReversalHandler) HandleRefund(ctx context.Context, event *shared.PaymentEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockTxManager runs the transactional function with a nil tx; pair it with
// MockEntryStore, whose WithTx ignores the tx.
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	args := m.Called(ctx)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(nil)
}
