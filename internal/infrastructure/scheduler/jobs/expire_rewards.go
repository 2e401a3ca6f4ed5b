// Package jobs contains the scheduled jobs of the rewards engine.
package jobs

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/learnquest/rewards-engine/internal/application/command"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPIRE REWARDS JOB
// ══════════════════════════════════════════════════════════════════════════════

// ExpireRewardsJobName is the scheduler name of the expiry sweep.
const ExpireRewardsJobName = "expire_rewards"

// Sweeper runs one expiry sweep.
type Sweeper interface {
	Handle(ctx context.Context, cmd command.ExpireRewardsCommand) (*command.ExpireRewardsResult, error)
}

// ExpireRewardsConfig contains configuration for the sweep job.
type ExpireRewardsConfig struct {
	// BatchSize is the number of records expired per transaction.
	BatchSize int

	// MaxBatches caps one run. Zero sweeps until nothing is due.
	MaxBatches int

	// Timeout is the maximum duration of one run.
	Timeout time.Duration
}

// DefaultExpireRewardsConfig returns sensible defaults.
func DefaultExpireRewardsConfig() ExpireRewardsConfig {
	return ExpireRewardsConfig{
		BatchSize:  command.DefaultSweepBatchSize,
		MaxBatches: 20,
		Timeout:    2 * time.Minute,
	}
}

// ExpireRewardsJob marks lapsed ACTIVE awards as EXPIRED.
type ExpireRewardsJob struct {
	sweeper Sweeper
	config  ExpireRewardsConfig
	logger  *slog.Logger

	lastResult atomic.Pointer[command.ExpireRewardsResult]
}

// NewExpireRewardsJob creates the sweep job.
func NewExpireRewardsJob(sweeper Sweeper, config ExpireRewardsConfig, logger *slog.Logger) *ExpireRewardsJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpireRewardsJob{
		sweeper: sweeper,
		config:  config,
		logger:  logger.With("job", ExpireRewardsJobName),
	}
}

// Name implements scheduler.Job.
func (j *ExpireRewardsJob) Name() string { return ExpireRewardsJobName }

// Description implements scheduler.Job.
func (j *ExpireRewardsJob) Description() string {
	return "Marks awards past their expiry date as EXPIRED"
}

// Run implements scheduler.Job.
func (j *ExpireRewardsJob) Run(ctx context.Context) error {
	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	result, err := j.sweeper.Handle(ctx, command.ExpireRewardsCommand{
		BatchSize:  j.config.BatchSize,
		MaxBatches: j.config.MaxBatches,
	})
	if result != nil {
		j.lastResult.Store(result)
		j.logger.Debug("sweep run", "expired", result.Expired, "batches", result.Batches)
	}
	return err
}

// LastResult returns the outcome of the latest run, or nil.
func (j *ExpireRewardsJob) LastResult() *command.ExpireRewardsResult {
	return j.lastResult.Load()
}
