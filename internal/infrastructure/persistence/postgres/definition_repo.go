package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/learnquest/rewards-engine/internal/domain/reward"
	"github.com/learnquest/rewards-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REWARD DEFINITION REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

const definitionColumns = `
	id, name, description, reward_type, trigger, points_cost, value,
	is_limited, limited_quantity, start_date, end_date,
	is_secret, is_active, expiration_days, created_at, updated_at`

// DefinitionRepository implements reward.DefinitionRepository.
type DefinitionRepository struct {
	q Querier
}

// NewDefinitionRepository creates a repository over q.
func NewDefinitionRepository(q Querier) *DefinitionRepository {
	return &DefinitionRepository{q: q}
}

// Create implements reward.DefinitionRepository.
func (r *DefinitionRepository) Create(ctx context.Context, def *reward.Definition) error {
	value, err := reward.MarshalValue(def.Value)
	if err != nil {
		return err
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO reward_definitions (`+definitionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		def.ID,
		def.Name,
		def.Description,
		string(def.Type),
		string(def.Trigger),
		def.PointsCost,
		value,
		def.IsLimited,
		def.LimitedQuantity,
		def.StartDate,
		def.EndDate,
		def.IsSecret,
		def.IsActive,
		def.ExpirationDays,
		def.CreatedAt,
		def.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrRewardExists
		}
		return fmt.Errorf("create reward definition: %w", mapError(err))
	}
	return nil
}

// GetByID implements reward.Catalog.
func (r *DefinitionRepository) GetByID(ctx context.Context, id string) (*reward.Definition, error) {
	row := r.q.QueryRow(ctx, `SELECT `+definitionColumns+` FROM reward_definitions WHERE id = $1`, id)
	return r.scanOne(row)
}

// GetForUpdate implements reward.DefinitionRepository.
func (r *DefinitionRepository) GetForUpdate(ctx context.Context, id string) (*reward.Definition, error) {
	row := r.q.QueryRow(ctx, `SELECT `+definitionColumns+` FROM reward_definitions WHERE id = $1 FOR UPDATE`, id)
	return r.scanOne(row)
}

// List implements reward.Catalog.
func (r *DefinitionRepository) List(ctx context.Context, filter reward.Filter) ([]*reward.Definition, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Type != nil {
		conds = append(conds, "reward_type = "+arg(string(*filter.Type)))
	}
	if filter.Trigger != nil {
		conds = append(conds, "trigger = "+arg(string(*filter.Trigger)))
	}
	if filter.IsActive != nil {
		conds = append(conds, "is_active = "+arg(*filter.IsActive))
	}
	if filter.HideSecret {
		conds = append(conds, "NOT is_secret")
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + definitionColumns + ` FROM reward_definitions`)
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	sb.WriteString(" ORDER BY created_at, id")
	if filter.Limit > 0 {
		sb.WriteString(" LIMIT " + arg(filter.Limit))
	}
	if filter.Offset > 0 {
		sb.WriteString(" OFFSET " + arg(filter.Offset))
	}

	rows, err := r.q.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list reward definitions: %w", mapError(err))
	}
	defer rows.Close()

	var defs []*reward.Definition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reward definitions: %w", mapError(err))
	}
	return defs, nil
}

func (r *DefinitionRepository) scanOne(row pgx.Row) (*reward.Definition, error) {
	def, err := scanDefinition(row)
	if IsNoRows(err) {
		return nil, shared.ErrRewardNotFound
	}
	return def, err
}

func scanDefinition(row pgx.Row) (*reward.Definition, error) {
	var (
		def        reward.Definition
		rewardType string
		trigger    string
		value      []byte
	)
	err := row.Scan(
		&def.ID,
		&def.Name,
		&def.Description,
		&rewardType,
		&trigger,
		&def.PointsCost,
		&value,
		&def.IsLimited,
		&def.LimitedQuantity,
		&def.StartDate,
		&def.EndDate,
		&def.IsSecret,
		&def.IsActive,
		&def.ExpirationDays,
		&def.CreatedAt,
		&def.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan reward definition: %w", mapError(err))
	}

	def.Type = reward.Type(rewardType)
	def.Trigger = reward.Trigger(trigger)
	if def.Value, err = reward.UnmarshalValue(value); err != nil {
		return nil, fmt.Errorf("decode value of reward %s: %w", def.ID, err)
	}
	return &def, nil
}

var _ reward.DefinitionRepository = (*DefinitionRepository)(nil)
