package postgres

import (
	"context"
	"fmt"

	"github.com/learnquest/rewards-engine/internal/domain/progress"
	"github.com/learnquest/rewards-engine/internal/domain/shared"
)

// ActivityRepository implements progress.ActivityRepository.
type ActivityRepository struct {
	q Querier
}

// NewActivityRepository creates a repository over q.
func NewActivityRepository(q Querier) *ActivityRepository {
	return &ActivityRepository{q: q}
}

// Append implements progress.ActivityRepository.
func (r *ActivityRepository) Append(ctx context.Context, log *progress.ActivityLog) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO activity_logs (id, user_id, activity_type, points_awarded, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, log.ID, log.UserID, string(log.Type), log.PointsAwarded, log.Description, log.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("activity", "Append", shared.ErrAlreadyExists, "activity log already exists")
		}
		return fmt.Errorf("append activity: %w", mapError(err))
	}
	return nil
}

// ListByUser implements progress.ActivityRepository.
func (r *ActivityRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*progress.ActivityLog, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, user_id, activity_type, points_awarded, description, created_at
		FROM activity_logs
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, shared.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", mapError(err))
	}
	defer rows.Close()

	var out []*progress.ActivityLog
	for rows.Next() {
		var (
			log progress.ActivityLog
			t   string
		)
		if err := rows.Scan(&log.ID, &log.UserID, &t, &log.PointsAwarded, &log.Description, &log.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", mapError(err))
		}
		log.Type = progress.ActivityType(t)
		out = append(out, &log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list activities: %w", mapError(err))
	}
	return out, nil
}

var _ progress.ActivityRepository = (*ActivityRepository)(nil)
