// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Events are published after the owning transaction commits.
const (
	// Catalog events
	EventRewardDefined EventType = "reward.defined"

	// Award ledger events
	EventRewardAwarded  EventType = "award.awarded"
	EventRewardConsumed EventType = "award.consumed"
	EventRewardExpired  EventType = "award.expired"

	// Points ledger events
	EventPointsCredited   EventType = "ledger.points_credited"
	EventLevelUp          EventType = "ledger.level_up"
	EventActivityRecorded EventType = "ledger.activity_recorded"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Catalog Events
// ═══════════════════════════════════════════════════════════════════════════

// RewardDefinedEvent is emitted when a reward definition is added to the catalog.
type RewardDefinedEvent struct {
	BaseEvent
	RewardID   string `json:"reward_id"`
	Name       string `json:"name"`
	RewardType string `json:"reward_type"`
	Trigger    string `json:"trigger"`
}

// Payload implements Event interface.
func (e RewardDefinedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"reward_id":   e.RewardID,
		"name":        e.Name,
		"reward_type": e.RewardType,
		"trigger":     e.Trigger,
	}
}

// NewRewardDefinedEvent creates a new RewardDefinedEvent.
func NewRewardDefinedEvent(rewardID, name, rewardType, trigger string, at time.Time) RewardDefinedEvent {
	return RewardDefinedEvent{
		BaseEvent:  NewBaseEvent(EventRewardDefined, rewardID, at),
		RewardID:   rewardID,
		Name:       name,
		RewardType: rewardType,
		Trigger:    trigger,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Award Events
// ═══════════════════════════════════════════════════════════════════════════

// RewardAwardedEvent is emitted when a reward is granted to a user.
type RewardAwardedEvent struct {
	BaseEvent
	UserID         string     `json:"user_id"`
	RewardID       string     `json:"reward_id"`
	RewardType     string     `json:"reward_type"`
	PointsCredited int64      `json:"points_credited"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// Payload implements Event interface.
func (e RewardAwardedEvent) Payload() map[string]interface{} {
	p := map[string]interface{}{
		"user_id":         e.UserID,
		"reward_id":       e.RewardID,
		"reward_type":     e.RewardType,
		"points_credited": e.PointsCredited,
	}
	if e.ExpiresAt != nil {
		p["expires_at"] = e.ExpiresAt.Format(time.RFC3339)
	}
	return p
}

// NewRewardAwardedEvent creates a new RewardAwardedEvent.
func NewRewardAwardedEvent(userID, rewardID, rewardType string, points int64, expiresAt *time.Time, at time.Time) RewardAwardedEvent {
	return RewardAwardedEvent{
		BaseEvent:      NewBaseEvent(EventRewardAwarded, userID, at),
		UserID:         userID,
		RewardID:       rewardID,
		RewardType:     rewardType,
		PointsCredited: points,
		ExpiresAt:      expiresAt,
	}
}

// RewardConsumedEvent is emitted when an award record transitions to CONSUMED.
type RewardConsumedEvent struct {
	BaseEvent
	UserID     string    `json:"user_id"`
	RewardID   string    `json:"reward_id"`
	RewardType string    `json:"reward_type"`
	ConsumedAt time.Time `json:"consumed_at"`
}

// Payload implements Event interface.
func (e RewardConsumedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"reward_id":   e.RewardID,
		"reward_type": e.RewardType,
		"consumed_at": e.ConsumedAt.Format(time.RFC3339),
	}
}

// NewRewardConsumedEvent creates a new RewardConsumedEvent.
func NewRewardConsumedEvent(userID, rewardID, rewardType string, consumedAt time.Time) RewardConsumedEvent {
	return RewardConsumedEvent{
		BaseEvent:  NewBaseEvent(EventRewardConsumed, userID, consumedAt),
		UserID:     userID,
		RewardID:   rewardID,
		RewardType: rewardType,
		ConsumedAt: consumedAt,
	}
}

// RewardExpiredEvent is emitted when an award record transitions to EXPIRED.
type RewardExpiredEvent struct {
	BaseEvent
	UserID    string    `json:"user_id"`
	RewardID  string    `json:"reward_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Payload implements Event interface.
func (e RewardExpiredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID,
		"reward_id":  e.RewardID,
		"expires_at": e.ExpiresAt.Format(time.RFC3339),
	}
}

// NewRewardExpiredEvent creates a new RewardExpiredEvent.
func NewRewardExpiredEvent(userID, rewardID string, expiresAt, at time.Time) RewardExpiredEvent {
	return RewardExpiredEvent{
		BaseEvent: NewBaseEvent(EventRewardExpired, userID, at),
		UserID:    userID,
		RewardID:  rewardID,
		ExpiresAt: expiresAt,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Ledger Events
// ═══════════════════════════════════════════════════════════════════════════

// PointsCreditedEvent is emitted when points are added to a user's ledger.
type PointsCreditedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	Amount   int64  `json:"amount"`
	NewTotal int64  `json:"new_total"`
	Source   string `json:"source"` // "credit", "activity", "reward"
}

// Payload implements Event interface.
func (e PointsCreditedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"amount":    e.Amount,
		"new_total": e.NewTotal,
		"source":    e.Source,
	}
}

// NewPointsCreditedEvent creates a new PointsCreditedEvent.
func NewPointsCreditedEvent(userID string, amount, newTotal int64, source string, at time.Time) PointsCreditedEvent {
	return PointsCreditedEvent{
		BaseEvent: NewBaseEvent(EventPointsCredited, userID, at),
		UserID:    userID,
		Amount:    amount,
		NewTotal:  newTotal,
		Source:    source,
	}
}

// LevelUpEvent is emitted when a points mutation raises the user's level.
type LevelUpEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
	Points   int64  `json:"points"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
		"points":    e.Points,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID string, oldLevel, newLevel int, points int64, at time.Time) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID, at),
		UserID:    userID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		Points:    points,
	}
}

// ActivityRecordedEvent is emitted when a learning activity is logged.
type ActivityRecordedEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	ActivityID    string `json:"activity_id"`
	ActivityType  string `json:"activity_type"`
	PointsAwarded int64  `json:"points_awarded"`
}

// Payload implements Event interface.
func (e ActivityRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"activity_id":    e.ActivityID,
		"activity_type":  e.ActivityType,
		"points_awarded": e.PointsAwarded,
	}
}

// NewActivityRecordedEvent creates a new ActivityRecordedEvent.
func NewActivityRecordedEvent(userID, activityID, activityType string, points int64, at time.Time) ActivityRecordedEvent {
	return ActivityRecordedEvent{
		BaseEvent:     NewBaseEvent(EventActivityRecorded, userID, at),
		UserID:        userID,
		ActivityID:    activityID,
		ActivityType:  activityType,
		PointsAwarded: points,
	}
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(Event) error { return nil }
