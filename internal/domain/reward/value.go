package reward

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/learnquest/rewards-engine/internal/domain/shared"
)

// Value is the type-specific payload of a reward definition. Each reward type
// has exactly one concrete Value; the set is closed.
type Value interface {
	// Kind returns the reward type this payload belongs to.
	Kind() Type

	// Validate checks the payload's own invariants.
	Validate() error

	isValue()
}

// PointsValue grants points to the user's level ledger at award time.
type PointsValue struct {
	Points int64
}

// BadgeValue describes a badge shown on the user's profile.
type BadgeValue struct {
	BadgeID  string `json:"badgeId"`
	ImageURL string `json:"imageUrl,omitempty"`
	Tier     string `json:"tier,omitempty"`
}

// AchievementValue describes an unlocked achievement.
type AchievementValue struct {
	AchievementID string `json:"achievementId"`
	Description   string `json:"description,omitempty"`
}

// CulturalValue is an invitation to a cultural event.
type CulturalValue struct {
	EventName string     `json:"eventName"`
	Location  string     `json:"location,omitempty"`
	EventDate *time.Time `json:"eventDate,omitempty"`
}

// ExperienceValue is a one-off experience the user can activate.
type ExperienceValue struct {
	Description     string `json:"description"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
}

// ContentValue unlocks a piece of learning content.
type ContentValue struct {
	ContentID string `json:"contentId"`
	URL       string `json:"url,omitempty"`
}

// DiscountValue is a redeemable discount.
type DiscountValue struct {
	Percentage float64 `json:"percentage"`
	Code       string  `json:"code,omitempty"`
}

// ExclusiveContentValue unlocks content restricted to reward holders.
type ExclusiveContentValue struct {
	ContentID   string `json:"contentId"`
	AccessLevel string `json:"accessLevel,omitempty"`
}

// CustomizationValue applies a cosmetic customization.
type CustomizationValue struct {
	CustomizationType  string `json:"customizationType"`
	CustomizationValue string `json:"customizationValue"`
}

func (PointsValue) Kind() Type           { return TypePoints }
func (BadgeValue) Kind() Type            { return TypeBadge }
func (AchievementValue) Kind() Type      { return TypeAchievement }
func (CulturalValue) Kind() Type         { return TypeCultural }
func (ExperienceValue) Kind() Type       { return TypeExperience }
func (ContentValue) Kind() Type          { return TypeContent }
func (DiscountValue) Kind() Type         { return TypeDiscount }
func (ExclusiveContentValue) Kind() Type { return TypeExclusiveContent }
func (CustomizationValue) Kind() Type    { return TypeCustomization }

func (PointsValue) isValue()           {}
func (BadgeValue) isValue()            {}
func (AchievementValue) isValue()      {}
func (CulturalValue) isValue()         {}
func (ExperienceValue) isValue()       {}
func (ContentValue) isValue()          {}
func (DiscountValue) isValue()         {}
func (ExclusiveContentValue) isValue() {}
func (CustomizationValue) isValue()    {}

func invalidValue(t Type, msg string) error {
	return shared.NewDomainError("reward", "ValidateValue", shared.ErrValidation,
		fmt.Sprintf("%s value: %s", t.Tag(), msg))
}

// Validate implements Value.
func (v PointsValue) Validate() error {
	if v.Points < 0 {
		return invalidValue(TypePoints, "points cannot be negative")
	}
	return nil
}

// Validate implements Value.
func (v BadgeValue) Validate() error {
	if strings.TrimSpace(v.BadgeID) == "" {
		return invalidValue(TypeBadge, "badgeId is required")
	}
	return nil
}

// Validate implements Value.
func (v AchievementValue) Validate() error {
	if strings.TrimSpace(v.AchievementID) == "" {
		return invalidValue(TypeAchievement, "achievementId is required")
	}
	return nil
}

// Validate implements Value.
func (v CulturalValue) Validate() error {
	if strings.TrimSpace(v.EventName) == "" {
		return invalidValue(TypeCultural, "eventName is required")
	}
	return nil
}

// Validate implements Value.
func (v ExperienceValue) Validate() error {
	if strings.TrimSpace(v.Description) == "" {
		return invalidValue(TypeExperience, "description is required")
	}
	if v.DurationMinutes < 0 {
		return invalidValue(TypeExperience, "durationMinutes cannot be negative")
	}
	return nil
}

// Validate implements Value.
func (v ContentValue) Validate() error {
	if strings.TrimSpace(v.ContentID) == "" {
		return invalidValue(TypeContent, "contentId is required")
	}
	return nil
}

// Validate implements Value.
func (v DiscountValue) Validate() error {
	if v.Percentage <= 0 || v.Percentage > 100 {
		return invalidValue(TypeDiscount, "percentage must be in (0, 100]")
	}
	return nil
}

// Validate implements Value.
func (v ExclusiveContentValue) Validate() error {
	if strings.TrimSpace(v.ContentID) == "" {
		return invalidValue(TypeExclusiveContent, "contentId is required")
	}
	return nil
}

// Validate implements Value.
func (v CustomizationValue) Validate() error {
	if strings.TrimSpace(v.CustomizationType) == "" || strings.TrimSpace(v.CustomizationValue) == "" {
		return invalidValue(TypeCustomization, "customizationType and customizationValue are required")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SERIALIZATION
// Wire form: {"type":"points","value":50}
//            {"type":"customization","value":{"customizationType":"theme","customizationValue":"dark"}}
// ══════════════════════════════════════════════════════════════════════════════

type valueEnvelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalValue encodes a Value into its tagged JSON envelope.
func MarshalValue(v Value) ([]byte, error) {
	if v == nil {
		return nil, invalidValue("", "value is required")
	}

	var inner interface{} = v
	if p, ok := v.(PointsValue); ok {
		inner = p.Points
	}

	raw, err := json.Marshal(inner)
	if err != nil {
		return nil, fmt.Errorf("marshal %s value: %w", v.Kind().Tag(), err)
	}

	return json.Marshal(valueEnvelope{Type: v.Kind().Tag(), Value: raw})
}

// UnmarshalValue decodes a tagged JSON envelope and validates the payload.
func UnmarshalValue(data []byte) (Value, error) {
	var env valueEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, shared.WrapError("reward", "DecodeValue", shared.ErrInvalidFormat, "malformed reward value", err)
	}

	t, ok := ParseType(env.Type)
	if !ok {
		return nil, shared.ErrInvalidRewardType
	}

	var (
		v   Value
		err error
	)
	switch t {
	case TypePoints:
		var p int64
		err = json.Unmarshal(env.Value, &p)
		v = PointsValue{Points: p}
	case TypeBadge:
		var b BadgeValue
		err = json.Unmarshal(env.Value, &b)
		v = b
	case TypeAchievement:
		var a AchievementValue
		err = json.Unmarshal(env.Value, &a)
		v = a
	case TypeCultural:
		var c CulturalValue
		err = json.Unmarshal(env.Value, &c)
		v = c
	case TypeExperience:
		var e ExperienceValue
		err = json.Unmarshal(env.Value, &e)
		v = e
	case TypeContent:
		var c ContentValue
		err = json.Unmarshal(env.Value, &c)
		v = c
	case TypeDiscount:
		var d DiscountValue
		err = json.Unmarshal(env.Value, &d)
		v = d
	case TypeExclusiveContent:
		var e ExclusiveContentValue
		err = json.Unmarshal(env.Value, &e)
		v = e
	case TypeCustomization:
		var c CustomizationValue
		err = json.Unmarshal(env.Value, &c)
		v = c
	}
	if err != nil {
		return nil, shared.WrapError("reward", "DecodeValue", shared.ErrInvalidFormat,
			fmt.Sprintf("malformed %s value", t.Tag()), err)
	}

	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}
