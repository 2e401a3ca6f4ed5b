package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnquest/rewards-engine/internal/application/uow"
	"github.com/learnquest/rewards-engine/internal/domain/reward"
	"github.com/learnquest/rewards-engine/internal/domain/shared"
	"github.com/learnquest/rewards-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSUME REWARD COMMAND
// Redeems an ACTIVE award. Expiry is evaluated first: a record past its
// expiresAt is flipped to EXPIRED, that write is committed, and only then is
// the expired error reported.
// ══════════════════════════════════════════════════════════════════════════════

// ConsumeRewardCommand identifies the award to redeem.
type ConsumeRewardCommand struct {
	UserID   string
	RewardID string
}

// ConsumeRewardResult contains the record after consumption.
type ConsumeRewardResult struct {
	Record     *reward.AwardRecord
	Definition *reward.Definition

	// Consumed is false for reward types that take effect at award time; the
	// record is returned unchanged.
	Consumed bool

	Events []shared.Event
}

// ConsumeRewardHandler handles ConsumeRewardCommand.
type ConsumeRewardHandler struct {
	deps     Deps
	handlers *reward.HandlerRegistry
	log      *logger.Logger
}

// NewConsumeRewardHandler creates a new ConsumeRewardHandler. A nil registry
// uses reward.DefaultHandlers.
func NewConsumeRewardHandler(deps Deps, handlers *reward.HandlerRegistry) *ConsumeRewardHandler {
	deps = deps.withDefaults()
	if handlers == nil {
		handlers = reward.DefaultHandlers()
	}
	return &ConsumeRewardHandler{
		deps:     deps,
		handlers: handlers,
		log:      deps.Logger.With(logger.Component("consume_reward")),
	}
}

// Handle executes the command.
func (h *ConsumeRewardHandler) Handle(ctx context.Context, cmd ConsumeRewardCommand) (result *ConsumeRewardResult, err error) {
	start := time.Now()
	defer func() { h.deps.observe("consume_reward", start, err) }()

	now := h.deps.Clock.Now()
	var expired *reward.AwardRecord

	err = h.deps.transact(ctx, "consume_reward", func(ctx context.Context, repos uow.Repositories) error {
		result, expired = nil, nil

		rec, err := repos.Awards.GetForUpdate(ctx, cmd.UserID, cmd.RewardID)
		if err != nil {
			return err
		}

		// Persist the expiry and commit; the caller still gets an error.
		if rec.Expire(now) {
			if err := repos.Awards.Save(ctx, rec); err != nil {
				return err
			}
			expired = rec
			return nil
		}

		def, err := repos.Definitions.GetByID(ctx, rec.RewardID)
		if err != nil {
			return err
		}

		res := &ConsumeRewardResult{Record: rec, Definition: def}
		switch err := h.handlers.Redeem(rec, def, now); {
		case errors.Is(err, shared.ErrRewardNotRedeemable):
			result = res
			return nil
		case err != nil:
			return err
		}

		if err := repos.Awards.Save(ctx, rec); err != nil {
			return err
		}
		res.Consumed = true
		result = res
		return nil
	})
	if err != nil {
		h.logFailure(cmd, err)
		return nil, fmt.Errorf("consume_reward: %w", err)
	}

	if expired != nil {
		h.deps.Metrics.RewardsExpired(1)
		h.deps.publish([]shared.Event{
			shared.NewRewardExpiredEvent(cmd.UserID, cmd.RewardID, *expired.ExpiresAt, now),
		})
		h.log.Info("consume rejected, reward expired",
			logger.UserID(cmd.UserID),
			logger.RewardID(cmd.RewardID),
			logger.Time("expires_at", *expired.ExpiresAt),
		)
		return nil, fmt.Errorf("consume_reward: %w", shared.ErrRewardExpired)
	}

	rewardType := result.Definition.Type.String()
	if !result.Consumed {
		h.log.Warn("reward type is granted at award time, nothing to consume",
			logger.UserID(cmd.UserID),
			logger.RewardID(cmd.RewardID),
			logger.RewardType(rewardType),
		)
		return result, nil
	}

	result.Events = []shared.Event{
		shared.NewRewardConsumedEvent(cmd.UserID, cmd.RewardID, rewardType, *result.Record.ConsumedAt),
	}
	h.deps.Metrics.RewardConsumed(rewardType)
	h.deps.publish(result.Events)

	h.log.Info("reward consumed",
		logger.UserID(cmd.UserID),
		logger.RewardID(cmd.RewardID),
		logger.RewardType(rewardType),
	)
	return result, nil
}

func (h *ConsumeRewardHandler) logFailure(cmd ConsumeRewardCommand, err error) {
	fields := []logger.Field{logger.UserID(cmd.UserID), logger.RewardID(cmd.RewardID), logger.Err(err)}
	if shared.Classify(err) == shared.ClassPersistence {
		h.log.Error("consume failed", fields...)
		return
	}
	h.log.Debug("consume rejected", fields...)
}
