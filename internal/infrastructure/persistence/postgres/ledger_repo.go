package postgres

import (
	"context"
	"fmt"

	"github.com/learnquest/rewards-engine/internal/domain/progress"
	"github.com/learnquest/rewards-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL LEDGER REPOSITORY
// Optimistic concurrency: updates only apply when the stored version still
// equals the version that was read.
// ══════════════════════════════════════════════════════════════════════════════

// LedgerRepository implements progress.LedgerRepository.
type LedgerRepository struct {
	q Querier
}

// NewLedgerRepository creates a repository over q.
func NewLedgerRepository(q Querier) *LedgerRepository {
	return &LedgerRepository{q: q}
}

// Get implements progress.LedgerRepository.
func (r *LedgerRepository) Get(ctx context.Context, userID string) (*progress.LedgerEntry, error) {
	var e progress.LedgerEntry
	err := r.q.QueryRow(ctx, `
		SELECT user_id, points, experience, level, lessons_completed,
		       exercises_completed, perfect_scores, version, created_at, updated_at
		FROM level_ledger
		WHERE user_id = $1
	`, userID).Scan(
		&e.UserID,
		&e.Points,
		&e.Experience,
		&e.Level,
		&e.LessonsCompleted,
		&e.ExercisesCompleted,
		&e.PerfectScores,
		&e.Version,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrLedgerNotFound
		}
		return nil, fmt.Errorf("get ledger entry: %w", mapError(err))
	}
	return &e, nil
}

// Save implements progress.LedgerRepository.
func (r *LedgerRepository) Save(ctx context.Context, e *progress.LedgerEntry) error {
	if e.IsNew() {
		return r.insert(ctx, e)
	}

	tag, err := r.q.Exec(ctx, `
		UPDATE level_ledger SET
			points = $1,
			experience = $2,
			level = $3,
			lessons_completed = $4,
			exercises_completed = $5,
			perfect_scores = $6,
			updated_at = $7,
			version = version + 1
		WHERE user_id = $8 AND version = $9
	`,
		e.Points,
		e.Experience,
		e.Level,
		e.LessonsCompleted,
		e.ExercisesCompleted,
		e.PerfectScores,
		e.UpdatedAt,
		e.UserID,
		e.Version,
	)
	if err != nil {
		return fmt.Errorf("update ledger entry: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrLedgerConflict
	}

	e.Version++
	return nil
}

func (r *LedgerRepository) insert(ctx context.Context, e *progress.LedgerEntry) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO level_ledger (
			user_id, points, experience, level, lessons_completed,
			exercises_completed, perfect_scores, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8, $9)
	`,
		e.UserID,
		e.Points,
		e.Experience,
		e.Level,
		e.LessonsCompleted,
		e.ExercisesCompleted,
		e.PerfectScores,
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		// Another writer created the entry first.
		if IsUniqueViolation(err) {
			return shared.ErrLedgerConflict
		}
		return fmt.Errorf("insert ledger entry: %w", mapError(err))
	}

	e.Version = 1
	return nil
}

var _ progress.LedgerRepository = (*LedgerRepository)(nil)
