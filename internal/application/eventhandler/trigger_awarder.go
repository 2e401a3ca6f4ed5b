// Package eventhandler contains domain event handlers.
package eventhandler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/learnquest/rewards-engine/internal/application/command"
	"github.com/learnquest/rewards-engine/internal/domain/progress"
	"github.com/learnquest/rewards-engine/internal/domain/reward"
	"github.com/learnquest/rewards-engine/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// TRIGGER AWARDER
// Grants catalog rewards whose trigger matches a learning event:
//   lesson                  -> LESSON_COMPLETION
//   exercise, perfect-score -> EXERCISE_COMPLETION
//   level up                -> LEVEL_UP
// Rewards the user already holds, sold-out rewards and rewards outside their
// window are skipped.
// ═══════════════════════════════════════════════════════════════════════════

// Awarder grants one reward to one user.
type Awarder interface {
	Handle(ctx context.Context, cmd command.AwardRewardCommand) (*command.AwardRewardResult, error)
}

// TriggerAwarderConfig contains configuration for the handler.
type TriggerAwarderConfig struct {
	// Timeout bounds the work done for one event.
	Timeout time.Duration

	// SkipSecret leaves secret definitions to be granted explicitly.
	SkipSecret bool
}

// DefaultTriggerAwarderConfig returns the default configuration.
func DefaultTriggerAwarderConfig() TriggerAwarderConfig {
	return TriggerAwarderConfig{
		Timeout: 10 * time.Second,
	}
}

// TriggerAwarder awards rewards in response to ActivityRecorded and LevelUp.
type TriggerAwarder struct {
	catalog reward.Catalog
	awarder Awarder
	logger  *slog.Logger
	config  TriggerAwarderConfig
}

// NewTriggerAwarder creates a new TriggerAwarder.
func NewTriggerAwarder(catalog reward.Catalog, awarder Awarder, logger *slog.Logger, config TriggerAwarderConfig) *TriggerAwarder {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTriggerAwarderConfig().Timeout
	}
	return &TriggerAwarder{
		catalog: catalog,
		awarder: awarder,
		logger:  logger.With("handler", "trigger_awarder"),
		config:  config,
	}
}

// Register subscribes the handler to the events it reacts to.
func (h *TriggerAwarder) Register(bus shared.EventSubscriber) error {
	if err := bus.Subscribe(shared.EventActivityRecorded, h.Handle); err != nil {
		return err
	}
	return bus.Subscribe(shared.EventLevelUp, h.Handle)
}

// TriggerForActivity maps an activity type to the reward trigger it fires.
func TriggerForActivity(t progress.ActivityType) (reward.Trigger, bool) {
	switch t {
	case progress.ActivityLesson:
		return reward.TriggerLessonCompletion, true
	case progress.ActivityExercise, progress.ActivityPerfectScore:
		return reward.TriggerExerciseCompletion, true
	}
	return "", false
}

// Handle implements shared.EventHandler. Only the concrete events of this
// process are acted on; events relayed from other processes are awarded where
// they were recorded.
func (h *TriggerAwarder) Handle(event shared.Event) error {
	var (
		userID  string
		trigger reward.Trigger
	)

	switch e := event.(type) {
	case shared.ActivityRecordedEvent:
		t, ok := TriggerForActivity(progress.ActivityType(e.ActivityType))
		if !ok {
			return nil
		}
		userID, trigger = e.UserID, t
	case shared.LevelUpEvent:
		userID, trigger = e.UserID, reward.TriggerLevelUp
	default:
		h.logger.Debug("event not handled", "event_type", event.EventType())
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	_, err := h.AwardMatching(ctx, userID, trigger)
	return err
}

// AwardMatching awards every active definition with the given trigger and
// returns the IDs that were granted.
func (h *TriggerAwarder) AwardMatching(ctx context.Context, userID string, trigger reward.Trigger) ([]string, error) {
	active := true
	defs, err := h.catalog.List(ctx, reward.Filter{
		Trigger:    &trigger,
		IsActive:   &active,
		HideSecret: h.config.SkipSecret,
	})
	if err != nil {
		h.logger.Error("failed to list triggered rewards",
			"trigger", trigger,
			"error", err,
		)
		return nil, err
	}

	var (
		granted []string
		errs    []error
	)
	for _, def := range defs {
		_, err := h.awarder.Handle(ctx, command.AwardRewardCommand{UserID: userID, RewardID: def.ID})
		switch {
		case err == nil:
			granted = append(granted, def.ID)
		case skippable(err):
			h.logger.Debug("triggered reward skipped",
				"user_id", userID,
				"reward_id", def.ID,
				"reason", err.Error(),
			)
		default:
			h.logger.Error("triggered award failed",
				"user_id", userID,
				"reward_id", def.ID,
				"error", err,
			)
			errs = append(errs, err)
		}
	}

	if len(granted) > 0 {
		h.logger.Info("triggered rewards granted",
			"user_id", userID,
			"trigger", trigger,
			"count", len(granted),
		)
	}
	return granted, errors.Join(errs...)
}

func skippable(err error) bool {
	return errors.Is(err, shared.ErrRewardAlreadyAwarded) ||
		errors.Is(err, shared.ErrRewardSoldOut) ||
		errors.Is(err, shared.ErrRewardNotAvailable) ||
		errors.Is(err, shared.ErrRewardInactive)
}
