package query

import (
	"context"
	"fmt"
	"time"

	"github.com/learnquest/rewards-engine/internal/domain/reward"
	"github.com/learnquest/rewards-engine/internal/domain/shared"
	"github.com/learnquest/rewards-engine/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST USER REWARDS QUERY
// Lists a user's awards with their effective status. Records past expiresAt
// are reported as EXPIRED even if the stored status still reads ACTIVE; this
// query never writes.
// ══════════════════════════════════════════════════════════════════════════════

// ListUserRewardsQuery contains the parameters.
type ListUserRewardsQuery struct {
	UserID string

	// Status filters on the effective status.
	Status *reward.Status
}

// UserRewardDTO is one award as seen by the caller.
type UserRewardDTO struct {
	RewardID     string          `json:"rewardId"`
	Name         string          `json:"name,omitempty"`
	Type         reward.Type     `json:"type,omitempty"`
	Status       reward.Status   `json:"status"`
	StoredStatus reward.Status   `json:"storedStatus"`
	DateAwarded  time.Time       `json:"dateAwarded"`
	ExpiresAt    *time.Time      `json:"expiresAt,omitempty"`
	ConsumedAt   *time.Time      `json:"consumedAt,omitempty"`
	Metadata     reward.Metadata `json:"metadata"`
}

// ListUserRewardsHandler handles ListUserRewardsQuery.
type ListUserRewardsHandler struct {
	users   user.Directory
	awards  reward.AwardRepository
	catalog reward.Catalog
	clock   shared.Clock
}

// NewListUserRewardsHandler creates a new ListUserRewardsHandler.
func NewListUserRewardsHandler(users user.Directory, awards reward.AwardRepository, catalog reward.Catalog, clock shared.Clock) *ListUserRewardsHandler {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &ListUserRewardsHandler{
		users:   users,
		awards:  awards,
		catalog: catalog,
		clock:   clock,
	}
}

// Handle executes the query.
func (h *ListUserRewardsHandler) Handle(ctx context.Context, q ListUserRewardsQuery) ([]UserRewardDTO, error) {
	if q.Status != nil && !q.Status.IsValid() {
		return nil, shared.NewDomainError("award", "List", shared.ErrValidation, "unknown status filter")
	}

	if err := requireUser(ctx, h.users, q.UserID); err != nil {
		return nil, fmt.Errorf("list_user_rewards: %w", err)
	}

	records, err := h.awards.ListByUser(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("list_user_rewards: %w", err)
	}

	now := h.clock.Now()
	filter := reward.AwardFilter{Status: q.Status}
	defs := make(map[string]*reward.Definition)

	out := make([]UserRewardDTO, 0, len(records))
	for _, rec := range records {
		if !filter.Matches(rec, now) {
			continue
		}

		dto := UserRewardDTO{
			RewardID:     rec.RewardID,
			Status:       rec.EffectiveStatus(now),
			StoredStatus: rec.Status,
			DateAwarded:  rec.DateAwarded,
			ExpiresAt:    rec.ExpiresAt,
			ConsumedAt:   rec.ConsumedAt,
			Metadata:     rec.Metadata,
		}

		def, seen := defs[rec.RewardID]
		if !seen {
			def, err = h.catalog.GetByID(ctx, rec.RewardID)
			if err != nil && !shared.IsNotFound(err) {
				return nil, fmt.Errorf("list_user_rewards: %w", err)
			}
			defs[rec.RewardID] = def
		}
		if def != nil {
			dto.Name = def.Name
			dto.Type = def.Type
		}

		out = append(out, dto)
	}
	return out, nil
}
