package command

import (
	"context"
	"fmt"
	"time"

	"github.com/learnquest/rewards-engine/internal/application/uow"
	"github.com/learnquest/rewards-engine/internal/domain/reward"
	"github.com/learnquest/rewards-engine/internal/domain/shared"
	"github.com/learnquest/rewards-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPIRE REWARDS COMMAND
// Sweeps ACTIVE awards whose expiresAt has passed and stores them as EXPIRED.
// This keeps the stored status tidy; consumption re-checks expiry on its own
// and never depends on the sweep.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultSweepBatchSize bounds the records expired per transaction.
const DefaultSweepBatchSize = 500

// ExpireRewardsCommand configures one sweep.
type ExpireRewardsCommand struct {
	// BatchSize is the number of records per transaction.
	BatchSize int

	// MaxBatches stops the sweep after this many batches. Zero means until done.
	MaxBatches int
}

// ExpireRewardsResult summarizes a sweep.
type ExpireRewardsResult struct {
	Expired int
	Batches int
}

// ExpireRewardsHandler handles ExpireRewardsCommand.
type ExpireRewardsHandler struct {
	deps Deps
	log  *logger.Logger
}

// NewExpireRewardsHandler creates a new ExpireRewardsHandler.
func NewExpireRewardsHandler(deps Deps) *ExpireRewardsHandler {
	deps = deps.withDefaults()
	return &ExpireRewardsHandler{
		deps: deps,
		log:  deps.Logger.With(logger.Component("expire_rewards")),
	}
}

// Handle executes the sweep.
func (h *ExpireRewardsHandler) Handle(ctx context.Context, cmd ExpireRewardsCommand) (result *ExpireRewardsResult, err error) {
	start := time.Now()
	defer func() { h.deps.observe("expire_rewards", start, err) }()

	batchSize := cmd.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultSweepBatchSize
	}

	now := h.deps.Clock.Now()
	result = &ExpireRewardsResult{}

	for cmd.MaxBatches == 0 || result.Batches < cmd.MaxBatches {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		var expired []*reward.AwardRecord
		err := h.deps.transact(ctx, "expire_rewards", func(ctx context.Context, repos uow.Repositories) error {
			expired = expired[:0]
			due, err := repos.Awards.ListExpirable(ctx, now, batchSize)
			if err != nil {
				return err
			}
			for _, rec := range due {
				if !rec.Expire(now) {
					continue
				}
				if err := repos.Awards.Save(ctx, rec); err != nil {
					return err
				}
				expired = append(expired, rec)
			}
			return nil
		})
		if err != nil {
			h.log.Error("expiry sweep failed", logger.Int("expired_so_far", result.Expired), logger.Err(err))
			return result, fmt.Errorf("expire_rewards: %w", err)
		}

		result.Batches++
		result.Expired += len(expired)

		events := make([]shared.Event, 0, len(expired))
		for _, rec := range expired {
			events = append(events, shared.NewRewardExpiredEvent(rec.UserID, rec.RewardID, *rec.ExpiresAt, now))
		}
		h.deps.Metrics.RewardsExpired(len(expired))
		h.deps.publish(events)

		if len(expired) < batchSize {
			break
		}
	}

	if result.Expired > 0 {
		h.log.Info("expiry sweep finished",
			logger.Int("expired", result.Expired),
			logger.Int("batches", result.Batches),
		)
	}
	return result, nil
}
