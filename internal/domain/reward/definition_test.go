package reward

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnquest/rewards-engine/internal/domain/shared"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func validParams() DefinitionParams {
	return DefinitionParams{
		ID:       "welcome-discount",
		Name:     "Welcome discount",
		Type:     TypeDiscount,
		Trigger:  TriggerLessonCompletion,
		Value:    DiscountValue{Percentage: 10},
		IsActive: true,
	}
}

func TestNewDefinition_Valid(t *testing.T) {
	d, err := NewDefinition(validParams(), now)
	require.NoError(t, err)
	assert.Equal(t, now, d.CreatedAt)
	assert.True(t, d.IsActive)
}

func TestNewDefinition_ValueTypeMismatch(t *testing.T) {
	p := validParams()
	p.Value = PointsValue{Points: 10}

	_, err := NewDefinition(p, now)
	assert.True(t, errors.Is(err, shared.ErrValueTypeMismatch))
}

func TestNewDefinition_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *DefinitionParams)
	}{
		{"missing id", func(p *DefinitionParams) { p.ID = " " }},
		{"missing name", func(p *DefinitionParams) { p.Name = "" }},
		{"unknown type", func(p *DefinitionParams) { p.Type = "VOUCHER" }},
		{"unknown trigger", func(p *DefinitionParams) { p.Trigger = "LOGIN" }},
		{"negative cost", func(p *DefinitionParams) { p.PointsCost = -1 }},
		{"missing value", func(p *DefinitionParams) { p.Value = nil }},
		{"zero expiration", func(p *DefinitionParams) { p.ExpirationDays = intPtr(0) }},
		{"limited without bounds", func(p *DefinitionParams) { p.IsLimited = true }},
		{"zero quantity", func(p *DefinitionParams) { p.IsLimited = true; p.LimitedQuantity = intPtr(0) }},
		{"inverted window", func(p *DefinitionParams) {
			p.IsLimited = true
			p.StartDate = timePtr(now)
			p.EndDate = timePtr(now.Add(-time.Hour))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)
			_, err := NewDefinition(p, now)
			require.Error(t, err)
			assert.True(t, shared.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestDefinition_CheckAvailability(t *testing.T) {
	p := validParams()
	p.IsLimited = true
	p.LimitedQuantity = intPtr(2)
	p.StartDate = timePtr(now.Add(-24 * time.Hour))
	p.EndDate = timePtr(now.Add(24 * time.Hour))
	d, err := NewDefinition(p, now)
	require.NoError(t, err)

	assert.NoError(t, d.CheckAvailability(now, 0))
	assert.NoError(t, d.CheckAvailability(now, 1))
	assert.ErrorIs(t, d.CheckAvailability(now, 2), shared.ErrRewardSoldOut)
	assert.ErrorIs(t, d.CheckAvailability(now.Add(48*time.Hour), 0), shared.ErrRewardNotAvailable)
	assert.ErrorIs(t, d.CheckAvailability(now.Add(-48*time.Hour), 0), shared.ErrRewardNotAvailable)

	d.IsActive = false
	err = d.CheckAvailability(now, 0)
	assert.True(t, shared.IsNotFound(err))
}

func TestDefinition_UnlimitedIgnoresQuantity(t *testing.T) {
	p := validParams()
	p.LimitedQuantity = intPtr(1)
	d, err := NewDefinition(p, now)
	require.NoError(t, err)

	assert.NoError(t, d.CheckAvailability(now, 10))
}

func TestDefinition_ExpiresAt(t *testing.T) {
	p := validParams()
	d, err := NewDefinition(p, now)
	require.NoError(t, err)
	assert.Nil(t, d.ExpiresAt(now))

	p.ExpirationDays = intPtr(7)
	d, err = NewDefinition(p, now)
	require.NoError(t, err)
	require.NotNil(t, d.ExpiresAt(now))
	assert.Equal(t, now.AddDate(0, 0, 7), *d.ExpiresAt(now))
}

func TestDefinition_PointsGranted(t *testing.T) {
	d, err := NewDefinition(DefinitionParams{
		ID: "p50", Name: "Fifty", Type: TypePoints, Trigger: TriggerLevelUp,
		Value: PointsValue{Points: 50}, IsActive: true,
	}, now)
	require.NoError(t, err)
	assert.Equal(t, int64(50), d.PointsGranted())

	disc, err := NewDefinition(validParams(), now)
	require.NoError(t, err)
	assert.Zero(t, disc.PointsGranted())
}

func TestDefinition_JSONRoundTripKeepsValue(t *testing.T) {
	p := validParams()
	p.ExpirationDays = intPtr(30)
	d, err := NewDefinition(p, now)
	require.NoError(t, err)

	data, err := json.Marshal(d)
	require.NoError(t, err)

	var got Definition
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, d.Value, got.Value)
	assert.Equal(t, *d.ExpirationDays, *got.ExpirationDays)
	assert.True(t, d.CreatedAt.Equal(got.CreatedAt))
}

func TestFilter_Matches(t *testing.T) {
	d, err := NewDefinition(validParams(), now)
	require.NoError(t, err)

	discount := TypeDiscount
	badge := TypeBadge
	active := true

	assert.True(t, Filter{}.Matches(d))
	assert.True(t, Filter{Type: &discount, IsActive: &active}.Matches(d))
	assert.False(t, Filter{Type: &badge}.Matches(d))

	d.IsSecret = true
	assert.True(t, Filter{}.Matches(d))
	assert.False(t, Filter{HideSecret: true}.Matches(d))
}
