package reward

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/learnquest/rewards-engine/internal/domain/shared"
)

// Definition is a catalog entry describing an offer that can be awarded.
type Definition struct {
	ID          string
	Name        string
	Description string
	Type        Type
	Trigger     Trigger
	PointsCost  int64
	Value       Value

	IsLimited       bool
	LimitedQuantity *int
	StartDate       *time.Time
	EndDate         *time.Time

	IsSecret       bool
	IsActive       bool
	ExpirationDays *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefinitionParams contains parameters for creating a definition.
type DefinitionParams struct {
	ID              string
	Name            string
	Description     string
	Type            Type
	Trigger         Trigger
	PointsCost      int64
	Value           Value
	IsLimited       bool
	LimitedQuantity *int
	StartDate       *time.Time
	EndDate         *time.Time
	IsSecret        bool
	IsActive        bool
	ExpirationDays  *int
}

// NewDefinition validates params and builds a Definition stamped at now.
func NewDefinition(p DefinitionParams, now time.Time) (*Definition, error) {
	d := &Definition{
		ID:              strings.TrimSpace(p.ID),
		Name:            strings.TrimSpace(p.Name),
		Description:     p.Description,
		Type:            p.Type,
		Trigger:         p.Trigger,
		PointsCost:      p.PointsCost,
		Value:           p.Value,
		IsLimited:       p.IsLimited,
		LimitedQuantity: p.LimitedQuantity,
		StartDate:       p.StartDate,
		EndDate:         p.EndDate,
		IsSecret:        p.IsSecret,
		IsActive:        p.IsActive,
		ExpirationDays:  p.ExpirationDays,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks the definition invariants.
func (d *Definition) Validate() error {
	if d.ID == "" {
		return shared.NewDomainError("reward", "Validate", shared.ErrInvalidID, "reward id is required")
	}
	if d.Name == "" {
		return shared.NewDomainError("reward", "Validate", shared.ErrEmptyValue, "reward name is required")
	}
	if !d.Type.IsValid() {
		return shared.ErrInvalidRewardType
	}
	if !d.Trigger.IsValid() {
		return shared.ErrInvalidTrigger
	}
	if d.PointsCost < 0 {
		return shared.NewDomainError("reward", "Validate", shared.ErrNegativeValue, "points cost cannot be negative")
	}
	if d.Value == nil {
		return shared.NewDomainError("reward", "Validate", shared.ErrEmptyValue, "reward value is required")
	}
	if d.Value.Kind() != d.Type {
		return shared.ErrValueTypeMismatch
	}
	if err := d.Value.Validate(); err != nil {
		return err
	}
	if d.ExpirationDays != nil && *d.ExpirationDays <= 0 {
		return shared.NewDomainError("reward", "Validate", shared.ErrValueOutOfRange, "expiration days must be positive")
	}

	if d.LimitedQuantity != nil && *d.LimitedQuantity <= 0 {
		return shared.NewDomainError("reward", "Validate", shared.ErrValueOutOfRange, "limited quantity must be positive")
	}
	if !d.Window().IsValid() {
		return shared.NewDomainError("reward", "Validate", shared.ErrValueOutOfRange, "start date must be before end date")
	}
	// quantity and window are only enforced on limited rewards
	if d.IsLimited && d.LimitedQuantity == nil && !d.Window().IsBounded() {
		return shared.ErrInvalidLimitWindow
	}

	return nil
}

// Window returns the validity window of a limited reward.
func (d *Definition) Window() shared.TimeRange {
	return shared.TimeRange{From: d.StartDate, To: d.EndDate}
}

// CheckAvailability decides whether one more award may be granted at now,
// given how many records already reference this definition.
func (d *Definition) CheckAvailability(now time.Time, awarded int) error {
	if !d.IsActive {
		return shared.ErrRewardInactive
	}
	if !d.IsLimited {
		return nil
	}
	if !d.Window().Contains(now) {
		return shared.ErrRewardNotAvailable
	}
	if d.LimitedQuantity != nil && awarded >= *d.LimitedQuantity {
		return shared.ErrRewardSoldOut
	}
	return nil
}

// ExpiresAt computes the expiry of an award granted at awardedAt.
// Returns nil when the definition never expires.
func (d *Definition) ExpiresAt(awardedAt time.Time) *time.Time {
	if d.ExpirationDays == nil {
		return nil
	}
	t := awardedAt.AddDate(0, 0, *d.ExpirationDays)
	return &t
}

// PointsGranted returns the points credited to the ledger when this reward is
// awarded. Only POINTS rewards grant points.
func (d *Definition) PointsGranted() int64 {
	if pv, ok := d.Value.(PointsValue); ok {
		return pv.Points
	}
	return 0
}

// Clone returns a deep copy.
func (d *Definition) Clone() *Definition {
	c := *d
	c.LimitedQuantity = cloneInt(d.LimitedQuantity)
	c.ExpirationDays = cloneInt(d.ExpirationDays)
	c.StartDate = cloneTime(d.StartDate)
	c.EndDate = cloneTime(d.EndDate)
	return &c
}

// ══════════════════════════════════════════════════════════════════════════════
// SERIALIZATION
// ══════════════════════════════════════════════════════════════════════════════

type definitionJSON struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Type            Type            `json:"type"`
	Trigger         Trigger         `json:"trigger"`
	PointsCost      int64           `json:"pointsCost"`
	Value           json.RawMessage `json:"value"`
	IsLimited       bool            `json:"isLimited"`
	LimitedQuantity *int            `json:"limitedQuantity,omitempty"`
	StartDate       *time.Time      `json:"startDate,omitempty"`
	EndDate         *time.Time      `json:"endDate,omitempty"`
	IsSecret        bool            `json:"isSecret"`
	IsActive        bool            `json:"isActive"`
	ExpirationDays  *int            `json:"expirationDays,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// MarshalJSON implements json.Marshaler.
func (d *Definition) MarshalJSON() ([]byte, error) {
	val, err := MarshalValue(d.Value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(definitionJSON{
		ID:              d.ID,
		Name:            d.Name,
		Description:     d.Description,
		Type:            d.Type,
		Trigger:         d.Trigger,
		PointsCost:      d.PointsCost,
		Value:           val,
		IsLimited:       d.IsLimited,
		LimitedQuantity: d.LimitedQuantity,
		StartDate:       d.StartDate,
		EndDate:         d.EndDate,
		IsSecret:        d.IsSecret,
		IsActive:        d.IsActive,
		ExpirationDays:  d.ExpirationDays,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Definition) UnmarshalJSON(data []byte) error {
	var w definitionJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	val, err := UnmarshalValue(w.Value)
	if err != nil {
		return err
	}
	*d = Definition{
		ID:              w.ID,
		Name:            w.Name,
		Description:     w.Description,
		Type:            w.Type,
		Trigger:         w.Trigger,
		PointsCost:      w.PointsCost,
		Value:           val,
		IsLimited:       w.IsLimited,
		LimitedQuantity: w.LimitedQuantity,
		StartDate:       w.StartDate,
		EndDate:         w.EndDate,
		IsSecret:        w.IsSecret,
		IsActive:        w.IsActive,
		ExpirationDays:  w.ExpirationDays,
		CreatedAt:       w.CreatedAt,
		UpdatedAt:       w.UpdatedAt,
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// FILTER
// ══════════════════════════════════════════════════════════════════════════════

// Filter narrows catalog listings. Nil fields match everything; a Limit of
// zero or less returns every match.
type Filter struct {
	Type       *Type
	Trigger    *Trigger
	IsActive   *bool
	HideSecret bool
	Limit      int
	Offset     int
}

// Matches reports whether d passes the filter.
func (f Filter) Matches(d *Definition) bool {
	if f.Type != nil && d.Type != *f.Type {
		return false
	}
	if f.Trigger != nil && d.Trigger != *f.Trigger {
		return false
	}
	if f.IsActive != nil && d.IsActive != *f.IsActive {
		return false
	}
	if d.IsSecret && f.HideSecret {
		return false
	}
	return true
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
