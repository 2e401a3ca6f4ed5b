package progress

import (
	"math"
	"strings"
	"time"

	"github.com/learnquest/rewards-engine/internal/domain/shared"
)

// LedgerEntry is a user's running points total and the level derived from it.
// Created lazily on the first points-earning event.
type LedgerEntry struct {
	UserID     string
	Points     int64
	Experience int64
	Level      int

	LessonsCompleted   int
	ExercisesCompleted int
	PerfectScores      int

	// Version is the optimistic concurrency token. Zero means not yet stored.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewLedgerEntry creates a zero-baseline entry for userID.
func NewLedgerEntry(userID string, policy LevelPolicy, now time.Time) *LedgerEntry {
	return &LedgerEntry{
		UserID:    userID,
		Level:     policy.CalculateLevel(0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Change describes the effect of a credit.
type Change struct {
	Amount    int64
	OldPoints int64
	NewPoints int64
	OldLevel  int
	NewLevel  int
}

// LeveledUp reports whether the credit raised the level.
func (c Change) LeveledUp() bool {
	return c.NewLevel > c.OldLevel
}

// CheckCredit fails if adding amount would overflow the totals.
func (e *LedgerEntry) CheckCredit(amount int64) error {
	if amount > math.MaxInt64-e.Points || amount > math.MaxInt64-e.Experience {
		return shared.NewDomainError("ledger", "Credit", shared.ErrValueOutOfRange, "points total would overflow")
	}
	return nil
}

// Credit adds amount to points and experience and recomputes the level from
// the new total. Totals saturate at math.MaxInt64; callers reject such credits
// with CheckCredit first.
func (e *LedgerEntry) Credit(amount int64, policy LevelPolicy, now time.Time) Change {
	c := Change{
		Amount:    amount,
		OldPoints: e.Points,
		OldLevel:  e.Level,
	}

	e.Points = addCapped(e.Points, amount)
	e.Experience = addCapped(e.Experience, amount)
	e.Level = policy.CalculateLevel(e.Points)
	e.UpdatedAt = now

	c.NewPoints = e.Points
	c.NewLevel = e.Level
	return c
}

// CountActivity increments the counter selected by t. Unknown types count
// nothing.
func (e *LedgerEntry) CountActivity(t ActivityType) {
	switch t {
	case ActivityLesson:
		e.LessonsCompleted++
	case ActivityExercise:
		e.ExercisesCompleted++
	case ActivityPerfectScore:
		e.PerfectScores++
	}
}

// IsConsistent reports whether the stored level matches the policy.
func (e *LedgerEntry) IsConsistent(policy LevelPolicy) bool {
	return e.Level == policy.CalculateLevel(e.Points)
}

// IsNew reports whether the entry has never been persisted.
func (e *LedgerEntry) IsNew() bool {
	return e.Version == 0
}

// Clone returns a copy.
func (e *LedgerEntry) Clone() *LedgerEntry {
	c := *e
	return &c
}

func addCapped(total, amount int64) int64 {
	if amount > math.MaxInt64-total {
		return math.MaxInt64
	}
	return total + amount
}

// ValidateAmount rejects credits that would make the total decrease. A
// negative amount is a validation error rather than a debit, so the points
// total never goes down.
func ValidateAmount(amount int64) error {
	if amount < 0 {
		return shared.NewDomainError("ledger", "Credit", shared.ErrNegativeValue, "points amount cannot be negative")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY
// ══════════════════════════════════════════════════════════════════════════════

// ActivityType names a learning activity. Unknown types are accepted and logged
// but select no counter.
type ActivityType string

const (
	ActivityLesson       ActivityType = "lesson"
	ActivityExercise     ActivityType = "exercise"
	ActivityPerfectScore ActivityType = "perfect-score"
)

// IsKnown reports whether t selects a ledger counter.
func (t ActivityType) IsKnown() bool {
	switch t {
	case ActivityLesson, ActivityExercise, ActivityPerfectScore:
		return true
	}
	return false
}

// String returns the string representation.
func (t ActivityType) String() string {
	return string(t)
}

// ActivityLog is the immutable record of one learning activity.
type ActivityLog struct {
	ID            string
	UserID        string
	Type          ActivityType
	PointsAwarded int64
	Description   string
	CreatedAt     time.Time
}

// NewActivityLog validates and builds an ActivityLog.
func NewActivityLog(id, userID string, t ActivityType, points int64, description string, now time.Time) (*ActivityLog, error) {
	if strings.TrimSpace(id) == "" {
		return nil, shared.NewDomainError("activity", "Create", shared.ErrInvalidID, "activity id is required")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, shared.ErrInvalidUser
	}
	if strings.TrimSpace(string(t)) == "" {
		return nil, shared.NewDomainError("activity", "Create", shared.ErrEmptyValue, "activity type is required")
	}
	if err := ValidateAmount(points); err != nil {
		return nil, err
	}

	return &ActivityLog{
		ID:            id,
		UserID:        userID,
		Type:          t,
		PointsAwarded: points,
		Description:   description,
		CreatedAt:     now,
	}, nil
}
