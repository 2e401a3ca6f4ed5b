// Package user models the identity collaborator. Accounts are owned elsewhere;
// the rewards core only needs to know that a user exists.
package user

import (
	"context"
	"strings"
	"time"

	"github.com/learnquest/rewards-engine/internal/domain/shared"
)

// User is the minimal identity record.
type User struct {
	ID          string
	DisplayName string
	CreatedAt   time.Time
}

// New validates and builds a User.
func New(id, displayName string, now time.Time) (*User, error) {
	uid, err := shared.NewUserID(id)
	if err != nil {
		return nil, err
	}
	return &User{
		ID:          uid.String(),
		DisplayName: strings.TrimSpace(displayName),
		CreatedAt:   now,
	}, nil
}

// Directory answers identity lookups.
type Directory interface {
	// Exists reports whether the user is known.
	Exists(ctx context.Context, id string) (bool, error)

	// GetByID retrieves a user. Returns ErrUserNotFound if absent.
	GetByID(ctx context.Context, id string) (*User, error)
}

// Repository is a Directory that can also register users.
type Repository interface {
	Directory

	// Create stores a user. Returns an AlreadyExists error on duplicate ID.
	Create(ctx context.Context, u *User) error
}
