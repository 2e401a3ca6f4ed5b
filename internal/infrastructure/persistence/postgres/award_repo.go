package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/learnquest/rewards-engine/internal/domain/reward"
	"github.com/learnquest/rewards-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// AWARD RECORD REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

const awardColumns = `user_id, reward_id, status, date_awarded, expires_at, consumed_at, metadata, updated_at`

// AwardRepository implements reward.AwardRepository.
type AwardRepository struct {
	q Querier
}

// NewAwardRepository creates a repository over q.
func NewAwardRepository(q Querier) *AwardRepository {
	return &AwardRepository{q: q}
}

// Get implements reward.AwardRepository.
func (r *AwardRepository) Get(ctx context.Context, userID, rewardID string) (*reward.AwardRecord, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+awardColumns+` FROM award_records
		WHERE user_id = $1 AND reward_id = $2
	`, userID, rewardID)
	return scanOneAward(row)
}

// GetForUpdate implements reward.AwardRepository.
func (r *AwardRepository) GetForUpdate(ctx context.Context, userID, rewardID string) (*reward.AwardRecord, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+awardColumns+` FROM award_records
		WHERE user_id = $1 AND reward_id = $2
		FOR UPDATE
	`, userID, rewardID)
	return scanOneAward(row)
}

// Save implements reward.AwardRepository.
func (r *AwardRepository) Save(ctx context.Context, rec *reward.AwardRecord) error {
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("marshal award metadata: %w", err)
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO award_records (`+awardColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, reward_id) DO UPDATE SET
			status = EXCLUDED.status,
			date_awarded = EXCLUDED.date_awarded,
			expires_at = EXCLUDED.expires_at,
			consumed_at = EXCLUDED.consumed_at,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
	`,
		rec.UserID,
		rec.RewardID,
		string(rec.Status),
		rec.DateAwarded,
		rec.ExpiresAt,
		rec.ConsumedAt,
		metadata,
		rec.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.WrapError("award", "Save", shared.ErrNotFound, "user or reward does not exist", err)
		}
		return fmt.Errorf("save award record: %w", mapError(err))
	}
	return nil
}

// ListByUser implements reward.AwardRepository.
func (r *AwardRepository) ListByUser(ctx context.Context, userID string) ([]*reward.AwardRecord, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+awardColumns+` FROM award_records
		WHERE user_id = $1
		ORDER BY date_awarded DESC, reward_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list awards: %w", mapError(err))
	}
	return collectAwards(rows)
}

// CountByReward implements reward.AwardRepository.
func (r *AwardRepository) CountByReward(ctx context.Context, rewardID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT count(*) FROM award_records WHERE reward_id = $1`, rewardID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count awards: %w", mapError(err))
	}
	return n, nil
}

// ListExpirable implements reward.AwardRepository. Rows are locked and rows
// locked by a concurrent sweep are skipped.
func (r *AwardRepository) ListExpirable(ctx context.Context, now time.Time, limit int) ([]*reward.AwardRecord, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+awardColumns+` FROM award_records
		WHERE status = 'ACTIVE' AND expires_at IS NOT NULL AND expires_at <= $1
		ORDER BY expires_at, user_id, reward_id
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expirable awards: %w", mapError(err))
	}
	return collectAwards(rows)
}

func collectAwards(rows pgx.Rows) ([]*reward.AwardRecord, error) {
	defer rows.Close()

	var out []*reward.AwardRecord
	for rows.Next() {
		rec, err := scanAward(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read awards: %w", mapError(err))
	}
	return out, nil
}

func scanOneAward(row pgx.Row) (*reward.AwardRecord, error) {
	rec, err := scanAward(row)
	if IsNoRows(err) {
		return nil, shared.ErrAwardNotFound
	}
	return rec, err
}

func scanAward(row pgx.Row) (*reward.AwardRecord, error) {
	var (
		rec      reward.AwardRecord
		status   string
		metadata []byte
	)
	err := row.Scan(
		&rec.UserID,
		&rec.RewardID,
		&status,
		&rec.DateAwarded,
		&rec.ExpiresAt,
		&rec.ConsumedAt,
		&metadata,
		&rec.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan award record: %w", mapError(err))
	}

	rec.Status = reward.Status(status)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
			return nil, fmt.Errorf("decode award metadata: %w", err)
		}
	}
	return &rec, nil
}

var _ reward.AwardRepository = (*AwardRepository)(nil)
