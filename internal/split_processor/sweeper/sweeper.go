// Package sweeper re-attempts transfers for split entries that stayed
// pending, typically because the recipient had no destination account when
// the entry was first claimed.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/membership-split-service/internal/config"
	"github.com/membership-split-service/internal/domain/ledger"
	"github.com/membership-split-service/internal/split_processor/service"
)

// Sweeper periodically re-claims stale pending entries per contribution and
// hands them back to the transfer executor. The executor's atomic claim makes
// a sweep racing a direct invocation safe.
type Sweeper struct {
	entries   ledger.Repository
	executor  service.TransferExecutor
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	staleAge  time.Duration
}

func NewSweeper(
	cfg *config.SweeperConfig,
	entries ledger.Repository,
	executor service.TransferExecutor,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		entries:   entries,
		executor:  executor,
		logger:    logger,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		staleAge:  cfg.StaleAge,
	}
}

// Start begins sweeping until context is canceled
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting pending-entry sweeper",
		"interval", s.interval.String(),
		"batch_size", s.batchSize,
		"stale_age", s.staleAge.String(),
	)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Pending-entry sweeper stopping due to context cancellation.")
			return
		case <-ticker.C:
			s.logger.Debug("Sweeper tick: re-attempting stale pending entries")
			if err := s.sweep(ctx); err != nil {
				s.logger.Error("Error during pending-entry sweep", "error", err)
			}
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.staleAge)
	contributionIDs, err := s.entries.ListContributionsWithStalePending(ctx, cutoff, s.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list contributions with stale pending entries: %w", err)
	}

	if len(contributionIDs) == 0 {
		s.logger.Debug("No stale pending entries found.")
		return nil
	}

	s.logger.Info("Found contributions with stale pending entries", "count", len(contributionIDs))

	for _, contributionID := range contributionIDs {
		if err := s.executor.ExecuteForContribution(ctx, contributionID); err != nil {
			// Per-contribution isolation: one broken transfer batch must not
			// stall the rest of the sweep.
			s.logger.Error("Failed to re-attempt transfers for contribution",
				"contribution_id", contributionID.String(),
				"error", err,
			)
			continue
		}
		s.logger.Debug("Re-attempted transfers for contribution", "contribution_id", contributionID.String())
	}
	return nil
}
