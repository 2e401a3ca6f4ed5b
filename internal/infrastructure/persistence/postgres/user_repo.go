package postgres

import (
	"context"
	"fmt"

	"github.com/learnquest/rewards-engine/internal/domain/shared"
	"github.com/learnquest/rewards-engine/internal/domain/user"
)

// UserRepository implements user.Repository.
type UserRepository struct {
	q Querier
}

// NewUserRepository creates a repository over q.
func NewUserRepository(q Querier) *UserRepository {
	return &UserRepository{q: q}
}

// Create implements user.Repository.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO users (id, display_name, created_at) VALUES ($1, $2, $3)
	`, u.ID, u.DisplayName, u.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("user", "Create", shared.ErrAlreadyExists, "user already exists")
		}
		return fmt.Errorf("create user: %w", mapError(err))
	}
	return nil
}

// Exists implements user.Directory.
func (r *UserRepository) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("check user: %w", mapError(err))
	}
	return ok, nil
}

// GetByID implements user.Directory.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	var u user.User
	err := r.q.QueryRow(ctx, `
		SELECT id, display_name, created_at FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.DisplayName, &u.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", mapError(err))
	}
	return &u, nil
}

var _ user.Repository = (*UserRepository)(nil)
