// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"fmt"

	"github.com/learnquest/rewards-engine/internal/domain/reward"
	"github.com/learnquest/rewards-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REWARD CATALOG QUERIES
// Read-only access to reward definitions. The catalog may be backed by the
// store directly or by a read-through cache.
// ══════════════════════════════════════════════════════════════════════════════

// GetRewardDefinitionHandler returns one definition.
type GetRewardDefinitionHandler struct {
	catalog reward.Catalog
}

// NewGetRewardDefinitionHandler creates a new GetRewardDefinitionHandler.
func NewGetRewardDefinitionHandler(catalog reward.Catalog) *GetRewardDefinitionHandler {
	return &GetRewardDefinitionHandler{catalog: catalog}
}

// Handle returns the definition or ErrRewardNotFound.
func (h *GetRewardDefinitionHandler) Handle(ctx context.Context, id string) (*reward.Definition, error) {
	if id == "" {
		return nil, shared.NewDomainError("reward", "Get", shared.ErrInvalidID, "reward id is required")
	}
	def, err := h.catalog.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get_reward_definition: %w", err)
	}
	return def, nil
}

// ListRewardDefinitionsQuery filters the catalog. Nil fields match everything;
// set fields are combined with AND. Secret definitions are listed unless
// HideSecret is set, and a zero Limit returns the whole catalog.
type ListRewardDefinitionsQuery struct {
	Type       *reward.Type
	Trigger    *reward.Trigger
	IsActive   *bool
	HideSecret bool
	Limit      int
	Offset     int
}

// ListRewardDefinitionsHandler lists catalog entries.
type ListRewardDefinitionsHandler struct {
	catalog reward.Catalog
}

// NewListRewardDefinitionsHandler creates a new ListRewardDefinitionsHandler.
func NewListRewardDefinitionsHandler(catalog reward.Catalog) *ListRewardDefinitionsHandler {
	return &ListRewardDefinitionsHandler{catalog: catalog}
}

// Handle executes the query.
func (h *ListRewardDefinitionsHandler) Handle(ctx context.Context, q ListRewardDefinitionsQuery) ([]*reward.Definition, error) {
	if q.Type != nil && !q.Type.IsValid() {
		return nil, shared.ErrInvalidRewardType
	}
	if q.Trigger != nil && !q.Trigger.IsValid() {
		return nil, shared.ErrInvalidTrigger
	}

	defs, err := h.catalog.List(ctx, reward.Filter{
		Type:       q.Type,
		Trigger:    q.Trigger,
		IsActive:   q.IsActive,
		HideSecret: q.HideSecret,
		Limit:      max(q.Limit, 0),
		Offset:     max(q.Offset, 0),
	})
	if err != nil {
		return nil, fmt.Errorf("list_reward_definitions: %w", err)
	}
	return defs, nil
}
