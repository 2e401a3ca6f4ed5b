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
// CHECK REWARD STATUS COMMAND
// Re-evaluates expiry of one award and persists ACTIVE -> EXPIRED when due.
// Running it again without time passing changes nothing.
// ══════════════════════════════════════════════════════════════════════════════

// CheckRewardStatusCommand identifies the award to check.
type CheckRewardStatusCommand struct {
	UserID   string
	RewardID string
}

// CheckRewardStatusResult contains the record after the check.
type CheckRewardStatusResult struct {
	Record *reward.AwardRecord

	// Expired is true only when this call performed the transition.
	Expired bool
}

// CheckRewardStatusHandler handles CheckRewardStatusCommand.
type CheckRewardStatusHandler struct {
	deps Deps
	log  *logger.Logger
}

// NewCheckRewardStatusHandler creates a new CheckRewardStatusHandler.
func NewCheckRewardStatusHandler(deps Deps) *CheckRewardStatusHandler {
	deps = deps.withDefaults()
	return &CheckRewardStatusHandler{
		deps: deps,
		log:  deps.Logger.With(logger.Component("check_reward_status")),
	}
}

// Handle executes the command.
func (h *CheckRewardStatusHandler) Handle(ctx context.Context, cmd CheckRewardStatusCommand) (result *CheckRewardStatusResult, err error) {
	start := time.Now()
	defer func() { h.deps.observe("check_reward_status", start, err) }()

	now := h.deps.Clock.Now()

	err = h.deps.transact(ctx, "check_reward_status", func(ctx context.Context, repos uow.Repositories) error {
		rec, err := repos.Awards.GetForUpdate(ctx, cmd.UserID, cmd.RewardID)
		if err != nil {
			return err
		}
		res := &CheckRewardStatusResult{Record: rec}
		if rec.Expire(now) {
			if err := repos.Awards.Save(ctx, rec); err != nil {
				return err
			}
			res.Expired = true
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("check_reward_status: %w", err)
	}

	if result.Expired {
		h.deps.Metrics.RewardsExpired(1)
		h.deps.publish([]shared.Event{
			shared.NewRewardExpiredEvent(cmd.UserID, cmd.RewardID, *result.Record.ExpiresAt, now),
		})
		h.log.Info("reward expired",
			logger.UserID(cmd.UserID),
			logger.RewardID(cmd.RewardID),
		)
	}

	return result, nil
}
