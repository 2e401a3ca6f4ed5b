package command

import (
	"context"
	"fmt"
	"time"

	"github.com/learnquest/rewards-engine/internal/application/uow"
	"github.com/learnquest/rewards-engine/internal/domain/progress"
	"github.com/learnquest/rewards-engine/internal/domain/reward"
	"github.com/learnquest/rewards-engine/internal/domain/shared"
	"github.com/learnquest/rewards-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// AWARD REWARD COMMAND
// Grants a catalog reward to a user. The award record and, for POINTS
// rewards, the ledger credit are written in one unit of work; a failure at
// any step leaves neither behind.
// ══════════════════════════════════════════════════════════════════════════════

// AwardRewardCommand contains the data to award a reward.
type AwardRewardCommand struct {
	UserID   string
	RewardID string
}

// AwardRewardResult contains the created record.
type AwardRewardResult struct {
	Record     *reward.AwardRecord
	Definition *reward.Definition

	// Ledger is set only when the reward credited points.
	Ledger *progress.LedgerEntry

	// Replaced is true when a settled record was overwritten.
	Replaced bool

	Events []shared.Event

	credit *ledgerCredit
}

// AwardRewardConfig contains configuration for the handler.
type AwardRewardConfig struct {
	Reaward reward.ReawardPolicy
}

// DefaultAwardRewardConfig returns default configuration.
func DefaultAwardRewardConfig() AwardRewardConfig {
	return AwardRewardConfig{Reaward: reward.ReawardReject}
}

// AwardRewardHandler handles AwardRewardCommand.
type AwardRewardHandler struct {
	deps   Deps
	config AwardRewardConfig
	log    *logger.Logger
}

// NewAwardRewardHandler creates a new AwardRewardHandler.
func NewAwardRewardHandler(deps Deps, config AwardRewardConfig) *AwardRewardHandler {
	deps = deps.withDefaults()
	return &AwardRewardHandler{
		deps:   deps,
		config: config,
		log:    deps.Logger.With(logger.Component("award_reward")),
	}
}

// Handle executes the command.
func (h *AwardRewardHandler) Handle(ctx context.Context, cmd AwardRewardCommand) (result *AwardRewardResult, err error) {
	start := time.Now()
	defer func() { h.deps.observe("award_reward", start, err) }()

	now := h.deps.Clock.Now()

	err = h.deps.transact(ctx, "award_reward", func(ctx context.Context, repos uow.Repositories) error {
		r, err := h.award(ctx, repos, cmd, now)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		h.logFailure(cmd, err)
		return nil, fmt.Errorf("award_reward: %w", err)
	}

	h.deps.Metrics.RewardAwarded(result.Definition.Type.String())
	if result.credit != nil {
		h.deps.recordCredit(SourceReward, result.credit)
	}
	h.deps.publish(result.Events)

	fields := []logger.Field{
		logger.UserID(cmd.UserID),
		logger.RewardID(cmd.RewardID),
		logger.RewardType(result.Definition.Type.String()),
	}
	if result.Ledger != nil {
		fields = append(fields, logger.Points(result.Ledger.Points), logger.UserLevel(result.Ledger.Level))
	}
	h.log.Info("reward awarded", fields...)

	return result, nil
}

func (h *AwardRewardHandler) award(ctx context.Context, repos uow.Repositories, cmd AwardRewardCommand, now time.Time) (*AwardRewardResult, error) {
	if err := requireUser(ctx, repos, cmd.UserID); err != nil {
		return nil, err
	}

	// Locks the definition row so concurrent awards of a limited reward
	// serialize on the quantity check.
	def, err := repos.Definitions.GetForUpdate(ctx, cmd.RewardID)
	if err != nil {
		return nil, err
	}
	if !def.IsActive {
		return nil, shared.ErrRewardInactive
	}

	existing, err := repos.Awards.GetForUpdate(ctx, cmd.UserID, cmd.RewardID)
	if err != nil && !shared.IsNotFound(err) {
		return nil, err
	}
	if err := h.config.Reaward.Allows(existing, now); err != nil {
		return nil, err
	}

	awarded := 0
	if def.IsLimited && def.LimitedQuantity != nil {
		if awarded, err = repos.Awards.CountByReward(ctx, def.ID); err != nil {
			return nil, err
		}
	}
	if err := def.CheckAvailability(now, awarded); err != nil {
		return nil, err
	}

	rec := reward.NewAwardRecord(cmd.UserID, def, now)
	result := &AwardRewardResult{
		Record:     rec,
		Definition: def,
		Replaced:   existing != nil,
	}

	var credited int64
	if def.Type == reward.TypePoints {
		c, err := h.deps.creditLedger(ctx, repos, cmd.UserID, def.PointsGranted(), now, nil)
		if err != nil {
			return nil, err
		}
		result.Ledger = c.Entry
		result.credit = c
		credited = c.Change.Amount
		result.Events = append(result.Events, ledgerEvents(cmd.UserID, SourceReward, c, now)...)
	}

	if err := repos.Awards.Save(ctx, rec); err != nil {
		return nil, err
	}

	result.Events = append([]shared.Event{
		shared.NewRewardAwardedEvent(cmd.UserID, def.ID, def.Type.String(), credited, rec.ExpiresAt, now),
	}, result.Events...)

	return result, nil
}

func (h *AwardRewardHandler) logFailure(cmd AwardRewardCommand, err error) {
	fields := []logger.Field{logger.UserID(cmd.UserID), logger.RewardID(cmd.RewardID), logger.Err(err)}
	switch shared.Classify(err) {
	case shared.ClassPersistence:
		h.log.Error("award failed", fields...)
	default:
		h.log.Debug("award rejected", fields...)
	}
}
