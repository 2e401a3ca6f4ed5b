package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/learnquest/rewards-engine/internal/application/uow"
	"github.com/learnquest/rewards-engine/internal/domain/reward"
	"github.com/learnquest/rewards-engine/internal/domain/shared"
	"github.com/learnquest/rewards-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE REWARD DEFINITION COMMAND
// Adds an offer to the catalog. This is the only administrative write on the
// catalog; definitions are read-only to the rest of the engine.
// ══════════════════════════════════════════════════════════════════════════════

// CreateRewardDefinitionCommand carries the new definition. An empty ID is
// replaced with a generated UUID.
type CreateRewardDefinitionCommand struct {
	Params reward.DefinitionParams
}

// CreateRewardDefinitionHandler handles CreateRewardDefinitionCommand.
type CreateRewardDefinitionHandler struct {
	deps  Deps
	log   *logger.Logger
	newID func() string
}

// NewCreateRewardDefinitionHandler creates a new CreateRewardDefinitionHandler.
func NewCreateRewardDefinitionHandler(deps Deps) *CreateRewardDefinitionHandler {
	deps = deps.withDefaults()
	return &CreateRewardDefinitionHandler{
		deps:  deps,
		log:   deps.Logger.With(logger.Component("create_reward_definition")),
		newID: uuid.NewString,
	}
}

// Handle executes the command.
func (h *CreateRewardDefinitionHandler) Handle(ctx context.Context, cmd CreateRewardDefinitionCommand) (def *reward.Definition, err error) {
	start := time.Now()
	defer func() { h.deps.observe("create_reward_definition", start, err) }()

	params := cmd.Params
	if params.ID == "" {
		params.ID = h.newID()
	}

	now := h.deps.Clock.Now()
	def, err = reward.NewDefinition(params, now)
	if err != nil {
		return nil, fmt.Errorf("create_reward_definition: %w", err)
	}

	err = h.deps.UoW.Do(ctx, func(ctx context.Context, repos uow.Repositories) error {
		return repos.Definitions.Create(ctx, def)
	})
	if err != nil {
		return nil, fmt.Errorf("create_reward_definition: %w", err)
	}

	h.deps.publish([]shared.Event{
		shared.NewRewardDefinedEvent(def.ID, def.Name, def.Type.String(), def.Trigger.String(), now),
	})
	h.log.Info("reward defined",
		logger.RewardID(def.ID),
		logger.RewardType(def.Type.String()),
		logger.String("trigger", def.Trigger.String()),
	)
	return def, nil
}
