// Package progress holds the per-user points and level ledger and the
// immutable log of learning activities that feed it.
//
// The package defines:
//
//   - Entities: LedgerEntry, ActivityLog
//   - Policies: LevelPolicy with the default StepPolicy
//   - Repository interfaces: LedgerRepository, ActivityRepository
//
// # Level consistency
//
// Level is never set directly. Every points mutation goes through
// LedgerEntry.Credit, which recomputes the level from the post-mutation total:
//
//	entry := NewLedgerEntry(userID, policy, now)
//	change := entry.Credit(50, policy, now)
//	if change.LeveledUp() {
//	    // publish LevelUp
//	}
//
// # Concurrency
//
// LedgerEntry carries a Version. LedgerRepository.Save writes only when the
// stored version still equals the one that was read and fails with
// shared.ErrLedgerConflict otherwise; callers retry the whole unit of work.
package progress
