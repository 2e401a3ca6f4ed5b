package reward

import (
	"time"

	"github.com/learnquest/rewards-engine/internal/domain/shared"
)

// ConsumptionHandler applies the type-specific side effects of redeeming a
// reward. Handlers only touch the record's metadata; the status transition is
// owned by Redeem.
type ConsumptionHandler interface {
	// Redeemable reports whether the reward type can be consumed at all.
	Redeemable() bool

	// Apply records the type-specific annotations at time at.
	Apply(rec *AwardRecord, def *Definition, at time.Time)
}

// HandlerRegistry maps each reward type to its ConsumptionHandler.
type HandlerRegistry struct {
	handlers map[Type]ConsumptionHandler
}

// NewHandlerRegistry creates an empty registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[Type]ConsumptionHandler)}
}

// DefaultHandlers returns a registry with a handler for every reward type.
func DefaultHandlers() *HandlerRegistry {
	r := NewHandlerRegistry()
	r.Register(TypeDiscount, discountHandler{})
	r.Register(TypeContent, unlockHandler{})
	r.Register(TypeExclusiveContent, unlockHandler{})
	r.Register(TypeCustomization, customizationHandler{})
	r.Register(TypeCultural, culturalHandler{})
	r.Register(TypeExperience, experienceHandler{})
	r.Register(TypePoints, grantedOnAwardHandler{})
	r.Register(TypeBadge, grantedOnAwardHandler{})
	r.Register(TypeAchievement, grantedOnAwardHandler{})
	return r
}

// Register installs h for t, replacing any previous handler.
func (r *HandlerRegistry) Register(t Type, h ConsumptionHandler) {
	r.handlers[t] = h
}

// For returns the handler for t.
func (r *HandlerRegistry) For(t Type) (ConsumptionHandler, bool) {
	h, ok := r.handlers[t]
	return h, ok
}

// Redeem runs the consumption guards, the handler for def.Type, and the
// ACTIVE -> CONSUMED transition. Points, badges and achievements take effect
// at award time; for those Redeem returns ErrRewardNotRedeemable and leaves
// rec untouched.
func (r *HandlerRegistry) Redeem(rec *AwardRecord, def *Definition, now time.Time) error {
	if err := rec.CanConsume(now); err != nil {
		return err
	}

	h, ok := r.For(def.Type)
	if !ok {
		return shared.ErrInvalidRewardType
	}
	if !h.Redeemable() {
		return shared.ErrRewardNotRedeemable
	}

	if err := rec.MarkConsumed(now); err != nil {
		return err
	}
	h.Apply(rec, def, now)
	return nil
}

type discountHandler struct{}

func (discountHandler) Redeemable() bool { return true }

func (discountHandler) Apply(rec *AwardRecord, _ *Definition, _ time.Time) {
	rec.Metadata.UsageCount++
}

// unlockHandler serves CONTENT and EXCLUSIVE_CONTENT.
type unlockHandler struct{}

func (unlockHandler) Redeemable() bool { return true }

func (unlockHandler) Apply(rec *AwardRecord, _ *Definition, at time.Time) {
	rec.Metadata.additional().UnlockedAt = &at
}

type customizationHandler struct{}

func (customizationHandler) Redeemable() bool { return true }

func (customizationHandler) Apply(rec *AwardRecord, _ *Definition, at time.Time) {
	rec.Metadata.additional().AppliedAt = &at
}

type culturalHandler struct{}

func (culturalHandler) Redeemable() bool { return true }

func (culturalHandler) Apply(rec *AwardRecord, _ *Definition, at time.Time) {
	rec.Metadata.additional().ParticipationDate = &at
}

type experienceHandler struct{}

func (experienceHandler) Redeemable() bool { return true }

func (experienceHandler) Apply(rec *AwardRecord, _ *Definition, at time.Time) {
	rec.Metadata.additional().ActivatedAt = &at
}

type grantedOnAwardHandler struct{}

func (grantedOnAwardHandler) Redeemable() bool { return false }

func (grantedOnAwardHandler) Apply(*AwardRecord, *Definition, time.Time) {}
