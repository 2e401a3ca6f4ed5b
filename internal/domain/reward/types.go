// Package reward contains the reward catalog and the award ledger: what can be
// granted, to whom it was granted, and how a granted reward moves through its
// lifecycle. This is a pure domain layer with zero external dependencies.
package reward

import "strings"

// Type is the kind of reward an offer grants.
type Type string

const (
	TypePoints           Type = "POINTS"
	TypeBadge            Type = "BADGE"
	TypeAchievement      Type = "ACHIEVEMENT"
	TypeCultural         Type = "CULTURAL"
	TypeExperience       Type = "EXPERIENCE"
	TypeContent          Type = "CONTENT"
	TypeDiscount         Type = "DISCOUNT"
	TypeExclusiveContent Type = "EXCLUSIVE_CONTENT"
	TypeCustomization    Type = "CUSTOMIZATION"
)

// AllTypes lists every known reward type.
var AllTypes = []Type{
	TypePoints,
	TypeBadge,
	TypeAchievement,
	TypeCultural,
	TypeExperience,
	TypeContent,
	TypeDiscount,
	TypeExclusiveContent,
	TypeCustomization,
}

// IsValid checks if the type is known.
func (t Type) IsValid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Tag returns the lowercase discriminator used in serialized payloads.
func (t Type) Tag() string {
	return strings.ToLower(string(t))
}

// String returns the string representation.
func (t Type) String() string {
	return string(t)
}

// ParseType accepts either the enum form ("EXCLUSIVE_CONTENT") or the tag form
// ("exclusive_content").
func ParseType(s string) (Type, bool) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	return t, t.IsValid()
}

// Trigger is the learning event that may cause a reward to be granted.
type Trigger string

const (
	TriggerLevelUp            Trigger = "LEVEL_UP"
	TriggerLessonCompletion   Trigger = "LESSON_COMPLETION"
	TriggerExerciseCompletion Trigger = "EXERCISE_COMPLETION"
)

// IsValid checks if the trigger is known.
func (t Trigger) IsValid() bool {
	switch t {
	case TriggerLevelUp, TriggerLessonCompletion, TriggerExerciseCompletion:
		return true
	}
	return false
}

// String returns the string representation.
func (t Trigger) String() string {
	return string(t)
}

// ParseTrigger parses a trigger name case-insensitively.
func ParseTrigger(s string) (Trigger, bool) {
	t := Trigger(strings.ToUpper(strings.TrimSpace(s)))
	return t, t.IsValid()
}

// Status is the lifecycle state of an award record.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusConsumed Status = "CONSUMED"
	StatusExpired  Status = "EXPIRED"
)

// IsValid checks if the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusConsumed, StatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusConsumed || s == StatusExpired
}

// String returns the string representation.
func (s Status) String() string {
	return string(s)
}

// ParseStatus parses a status name case-insensitively.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	return st, st.IsValid()
}
