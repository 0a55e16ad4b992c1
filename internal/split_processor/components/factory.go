package components

import (
	"fmt"
	"log/slog"

	"github.com/membership-split-service/internal/config"
	"github.com/membership-split-service/internal/domain/contribution"
	"github.com/membership-split-service/internal/domain/hierarchy"
	"github.com/membership-split-service/internal/domain/payout"
	"github.com/membership-split-service/internal/platform/persistence"
	"github.com/membership-split-service/internal/provider"
	"github.com/membership-split-service/internal/split_processor/service"
	"github.com/membership-split-service/internal/split_processor/split"
)

// CreateEventProcessor wires the calculator, resolver, and the three
// services into an event processor, wrapped in a worker pool when possible.
func CreateEventProcessor(
	pgDB *persistence.PostgresDB,
	contributionRepo contribution.Repository,
	nodeRepo hierarchy.NodeRepository,
	configRepo hierarchy.ConfigRepository,
	entryRepo service.EntryStore,
	accountRepo payout.Repository,
	providerClient provider.Client,
	logger *slog.Logger,
	cfg *config.Config,
) (service.EventProcessor, service.TransferExecutor, error) {
	nationalNodeID, err := cfg.Splitter.NationalNodeUUID()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid national node id: %w", err)
	}

	resolver := NewStateResolver(logger, nodeRepo)
	calculator := split.NewCalculator(cfg.Splitter.FlatFeeUnits, nationalNodeID)

	executor := service.NewTransferExecutor(logger, entryRepo, accountRepo, providerClient)
	writer := service.NewLedgerWriter(
		logger,
		pgDB,
		contributionRepo,
		configRepo,
		entryRepo,
		resolver,
		calculator,
		executor,
		nationalNodeID,
	)
	reversalHandler := service.NewReversalHandler(logger, contributionRepo, entryRepo, providerClient)

	baseProcessor := service.NewEventProcessor(logger, writer, reversalHandler)

	workerPoolProcessor, err := service.NewWorkerPoolEventProcessor(
		baseProcessor,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool processor, falling back to base processor", "error", err)
		return baseProcessor, executor, nil
	}

	logger.Info("Created worker pool event processor", "pool_size", cfg.WorkerPool.Size)
	return workerPoolProcessor, executor, nil
}
