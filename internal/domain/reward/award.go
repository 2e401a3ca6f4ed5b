package reward

import (
	"time"

	"github.com/learnquest/rewards-engine/internal/domain/shared"
)

// AwardRecord is one user's instance of a granted reward. A user holds at most
// one record per reward definition.
type AwardRecord struct {
	UserID      string
	RewardID    string
	Status      Status
	DateAwarded time.Time
	ExpiresAt   *time.Time
	ConsumedAt  *time.Time
	Metadata    Metadata
	UpdatedAt   time.Time
}

// Metadata holds annotations written while a reward is consumed.
type Metadata struct {
	UsageCount     int             `json:"usageCount,omitempty"`
	AdditionalData *AdditionalData `json:"additionalData,omitempty"`
}

// AdditionalData carries the per-type timestamps recorded on consumption.
type AdditionalData struct {
	UnlockedAt        *time.Time `json:"unlockedAt,omitempty"`
	AppliedAt         *time.Time `json:"appliedAt,omitempty"`
	ParticipationDate *time.Time `json:"participationDate,omitempty"`
	ActivatedAt       *time.Time `json:"activatedAt,omitempty"`
}

// NewAwardRecord creates an ACTIVE record for def granted to userID at now.
func NewAwardRecord(userID string, def *Definition, now time.Time) *AwardRecord {
	return &AwardRecord{
		UserID:      userID,
		RewardID:    def.ID,
		Status:      StatusActive,
		DateAwarded: now,
		ExpiresAt:   def.ExpiresAt(now),
		UpdatedAt:   now,
	}
}

// IsExpired reports whether an ACTIVE record has passed its expiry at now.
// The stored status may still read ACTIVE.
func (r *AwardRecord) IsExpired(now time.Time) bool {
	if r.Status != StatusActive || r.ExpiresAt == nil {
		return false
	}
	return !now.Before(*r.ExpiresAt)
}

// EffectiveStatus returns the status a caller should observe at now.
func (r *AwardRecord) EffectiveStatus(now time.Time) Status {
	if r.IsExpired(now) {
		return StatusExpired
	}
	return r.Status
}

// Expire moves a logically expired record to EXPIRED. Returns true when the
// status changed and the record must be persisted.
func (r *AwardRecord) Expire(now time.Time) bool {
	if !r.IsExpired(now) {
		return false
	}
	r.Status = StatusExpired
	r.UpdatedAt = now
	return true
}

// CanConsume checks the lifecycle guards for consumption at now.
func (r *AwardRecord) CanConsume(now time.Time) error {
	switch r.EffectiveStatus(now) {
	case StatusConsumed:
		return shared.ErrRewardAlreadyConsumed
	case StatusExpired:
		return shared.ErrRewardExpired
	}
	return nil
}

// MarkConsumed transitions ACTIVE to CONSUMED. ConsumedAt is set exactly once.
func (r *AwardRecord) MarkConsumed(now time.Time) error {
	if err := r.CanConsume(now); err != nil {
		return err
	}
	r.Status = StatusConsumed
	r.ConsumedAt = &now
	r.UpdatedAt = now
	return nil
}

// IsSettled reports whether the record has reached a terminal state at now.
func (r *AwardRecord) IsSettled(now time.Time) bool {
	return r.EffectiveStatus(now).IsTerminal()
}

// Clone returns a deep copy.
func (r *AwardRecord) Clone() *AwardRecord {
	c := *r
	c.ExpiresAt = cloneTime(r.ExpiresAt)
	c.ConsumedAt = cloneTime(r.ConsumedAt)
	if r.Metadata.AdditionalData != nil {
		ad := *r.Metadata.AdditionalData
		ad.UnlockedAt = cloneTime(ad.UnlockedAt)
		ad.AppliedAt = cloneTime(ad.AppliedAt)
		ad.ParticipationDate = cloneTime(ad.ParticipationDate)
		ad.ActivatedAt = cloneTime(ad.ActivatedAt)
		c.Metadata.AdditionalData = &ad
	}
	return &c
}

// additional returns the AdditionalData block, allocating it on first use.
func (m *Metadata) additional() *AdditionalData {
	if m.AdditionalData == nil {
		m.AdditionalData = &AdditionalData{}
	}
	return m.AdditionalData
}

// AwardFilter narrows a user's award listing. Status is compared against the
// effective status.
type AwardFilter struct {
	Status *Status
}

// Matches reports whether rec passes the filter at now.
func (f AwardFilter) Matches(rec *AwardRecord, now time.Time) bool {
	return f.Status == nil || rec.EffectiveStatus(now) == *f.Status
}

// ReawardPolicy decides what happens when a user already holds a record for a
// definition being awarded again.
type ReawardPolicy int

const (
	// ReawardReject refuses any second award.
	ReawardReject ReawardPolicy = iota
	// ReawardReplaceSettled allows a fresh award once the previous record
	// is CONSUMED or EXPIRED.
	ReawardReplaceSettled
)

// String returns the string representation.
func (p ReawardPolicy) String() string {
	switch p {
	case ReawardReplaceSettled:
		return "replace-settled"
	default:
		return "reject"
	}
}

// ParseReawardPolicy parses the config form of a policy.
func ParseReawardPolicy(s string) (ReawardPolicy, bool) {
	switch s {
	case "", "reject":
		return ReawardReject, true
	case "replace-settled":
		return ReawardReplaceSettled, true
	}
	return ReawardReject, false
}

// Allows checks whether existing may be overwritten by a new award at now.
func (p ReawardPolicy) Allows(existing *AwardRecord, now time.Time) error {
	if existing == nil {
		return nil
	}
	if p == ReawardReplaceSettled && existing.IsSettled(now) {
		return nil
	}
	return shared.ErrRewardAlreadyAwarded
}
