package reward

import (
	"context"
	"time"
)

// Catalog is the read side of the reward catalog.
type Catalog interface {
	// GetByID retrieves a definition. Returns ErrRewardNotFound if absent.
	GetByID(ctx context.Context, id string) (*Definition, error)

	// List returns definitions matching the filter, ordered by creation time.
	List(ctx context.Context, filter Filter) ([]*Definition, error)
}

// DefinitionRepository persists reward definitions.
type DefinitionRepository interface {
	Catalog

	// Create stores a new definition. Returns ErrRewardExists on duplicate ID.
	Create(ctx context.Context, def *Definition) error

	// GetForUpdate retrieves a definition and locks it until the enclosing
	// transaction ends. Quantity checks on limited rewards rely on this lock.
	GetForUpdate(ctx context.Context, id string) (*Definition, error)
}

// AwardRepository persists award records keyed by (userID, rewardID).
type AwardRepository interface {
	// Get retrieves a record. Returns ErrAwardNotFound if absent.
	Get(ctx context.Context, userID, rewardID string) (*AwardRecord, error)

	// GetForUpdate retrieves a record and locks it for the enclosing transaction.
	GetForUpdate(ctx context.Context, userID, rewardID string) (*AwardRecord, error)

	// Save inserts or overwrites the record for its (userID, rewardID) key.
	Save(ctx context.Context, rec *AwardRecord) error

	// ListByUser returns all records of a user, newest first.
	ListByUser(ctx context.Context, userID string) ([]*AwardRecord, error)

	// CountByReward counts records referencing a definition.
	CountByReward(ctx context.Context, rewardID string) (int, error)

	// ListExpirable returns ACTIVE records whose expiry is at or before now.
	ListExpirable(ctx context.Context, now time.Time, limit int) ([]*AwardRecord, error)
}
