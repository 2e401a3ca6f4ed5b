package query

import (
	"context"
	"fmt"
	"time"

	"github.com/learnquest/rewards-engine/internal/domain/progress"
	"github.com/learnquest/rewards-engine/internal/domain/shared"
	"github.com/learnquest/rewards-engine/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER PROGRESS QUERIES
// Level ledger and activity history of one user.
// ══════════════════════════════════════════════════════════════════════════════

// UserLevelDTO is the ledger as seen by the caller.
type UserLevelDTO struct {
	UserID             string `json:"userId"`
	Points             int64  `json:"points"`
	Experience         int64  `json:"experience"`
	Level              int    `json:"level"`
	LessonsCompleted   int    `json:"lessonsCompleted"`
	ExercisesCompleted int    `json:"exercisesCompleted"`
	PerfectScores      int    `json:"perfectScores"`

	// NextLevelAt is the total needed for the next level, when the policy can
	// tell.
	NextLevelAt *int64 `json:"nextLevelAt,omitempty"`

	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// thresholdPolicy is implemented by level policies that can invert themselves.
type thresholdPolicy interface {
	PointsForLevel(level int) int64
}

// GetUserLevelHandler returns a user's ledger. Users who never earned points
// get a zero baseline; nothing is written.
type GetUserLevelHandler struct {
	users  user.Directory
	ledger progress.LedgerRepository
	policy progress.LevelPolicy
}

// NewGetUserLevelHandler creates a new GetUserLevelHandler.
func NewGetUserLevelHandler(users user.Directory, ledger progress.LedgerRepository, policy progress.LevelPolicy) *GetUserLevelHandler {
	if policy == nil {
		policy = progress.DefaultLevelPolicy()
	}
	return &GetUserLevelHandler{users: users, ledger: ledger, policy: policy}
}

// Handle executes the query.
func (h *GetUserLevelHandler) Handle(ctx context.Context, userID string) (*UserLevelDTO, error) {
	if err := requireUser(ctx, h.users, userID); err != nil {
		return nil, fmt.Errorf("get_user_level: %w", err)
	}

	entry, err := h.ledger.Get(ctx, userID)
	switch {
	case shared.IsNotFound(err):
		entry = progress.NewLedgerEntry(userID, h.policy, time.Time{})
	case err != nil:
		return nil, fmt.Errorf("get_user_level: %w", err)
	}

	dto := &UserLevelDTO{
		UserID:             entry.UserID,
		Points:             entry.Points,
		Experience:         entry.Experience,
		Level:              entry.Level,
		LessonsCompleted:   entry.LessonsCompleted,
		ExercisesCompleted: entry.ExercisesCompleted,
		PerfectScores:      entry.PerfectScores,
	}
	if !entry.UpdatedAt.IsZero() {
		t := entry.UpdatedAt
		dto.UpdatedAt = &t
	}
	if tp, ok := h.policy.(thresholdPolicy); ok {
		next := tp.PointsForLevel(entry.Level + 1)
		dto.NextLevelAt = &next
	}
	return dto, nil
}

// ListActivityHistoryQuery contains the parameters.
type ListActivityHistoryQuery struct {
	UserID string
	Limit  int
}

// ListActivityHistoryHandler lists a user's activity log, newest first.
type ListActivityHistoryHandler struct {
	users      user.Directory
	activities progress.ActivityRepository
}

// NewListActivityHistoryHandler creates a new ListActivityHistoryHandler.
func NewListActivityHistoryHandler(users user.Directory, activities progress.ActivityRepository) *ListActivityHistoryHandler {
	return &ListActivityHistoryHandler{users: users, activities: activities}
}

// Handle executes the query.
func (h *ListActivityHistoryHandler) Handle(ctx context.Context, q ListActivityHistoryQuery) ([]*progress.ActivityLog, error) {
	if err := requireUser(ctx, h.users, q.UserID); err != nil {
		return nil, fmt.Errorf("list_activity_history: %w", err)
	}
	logs, err := h.activities.ListByUser(ctx, q.UserID, shared.ClampLimit(q.Limit))
	if err != nil {
		return nil, fmt.Errorf("list_activity_history: %w", err)
	}
	return logs, nil
}

func requireUser(ctx context.Context, users user.Directory, userID string) error {
	if _, err := shared.NewUserID(userID); err != nil {
		return err
	}
	ok, err := users.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return shared.ErrUserNotFound
	}
	return nil
}
