// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"strings"
	"sync"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UserID identifies a user of the learning platform. The identity itself is
// owned by an external collaborator; the core only requires it to be non-empty.
type UserID string

// IsValid checks if the user ID is usable.
func (u UserID) IsValid() bool {
	return strings.TrimSpace(string(u)) != ""
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// NewUserID creates a new UserID with validation.
func NewUserID(id string) (UserID, error) {
	uid := UserID(strings.TrimSpace(id))
	if !uid.IsValid() {
		return "", ErrInvalidUser
	}
	return uid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Time
// ═══════════════════════════════════════════════════════════════════════════

// Clock abstracts the current time so lifecycle rules can be evaluated
// deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock returns the wall-clock time in UTC.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// ManualClock is a Clock that only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a ManualClock pinned at t.
func NewManualClock(t time.Time) *ManualClock {
	return &ManualClock{now: t.UTC()}
}

// Now implements Clock.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set pins the clock at t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}

// TimeRange represents a validity window. A nil bound is open.
type TimeRange struct {
	From *time.Time
	To   *time.Time
}

// IsValid reports whether the range is well-formed.
func (t TimeRange) IsValid() bool {
	if t.From != nil && t.To != nil {
		return t.From.Before(*t.To)
	}
	return true
}

// IsBounded reports whether at least one end of the range is set.
func (t TimeRange) IsBounded() bool {
	return t.From != nil || t.To != nil
}

// Contains checks whether tm falls within [From, To].
func (t TimeRange) Contains(tm time.Time) bool {
	if t.From != nil && tm.Before(*t.From) {
		return false
	}
	if t.To != nil && tm.After(*t.To) {
		return false
	}
	return true
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination
// ═══════════════════════════════════════════════════════════════════════════

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// ClampLimit normalizes a caller-supplied limit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}
