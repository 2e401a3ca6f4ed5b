package progress

import "context"

// LedgerRepository persists ledger entries.
type LedgerRepository interface {
	// Get retrieves the entry of a user. Returns ErrLedgerNotFound if absent.
	Get(ctx context.Context, userID string) (*LedgerEntry, error)

	// Save inserts a new entry (Version == 0) or updates an existing one whose
	// stored version equals entry.Version. On success entry.Version is bumped.
	// Returns ErrLedgerConflict when another writer got there first.
	Save(ctx context.Context, entry *LedgerEntry) error
}

// ActivityRepository persists the activity log.
type ActivityRepository interface {
	// Append stores a new log row.
	Append(ctx context.Context, log *ActivityLog) error

	// ListByUser returns the most recent logs of a user, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*ActivityLog, error)
}
