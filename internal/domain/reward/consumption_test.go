package reward

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnquest/rewards-engine/internal/domain/shared"
)

func definitionOf(t *testing.T, v Value) *Definition {
	t.Helper()
	d, err := NewDefinition(DefinitionParams{
		ID: "r-" + v.Kind().Tag(), Name: "reward", Type: v.Kind(),
		Trigger: TriggerLessonCompletion, Value: v, IsActive: true,
	}, now)
	require.NoError(t, err)
	return d
}

func TestRedeem_TypeSpecificMetadata(t *testing.T) {
	reg := DefaultHandlers()

	tests := []struct {
		name  string
		value Value
		check func(t *testing.T, rec *AwardRecord)
	}{
		{"discount", DiscountValue{Percentage: 20}, func(t *testing.T, rec *AwardRecord) {
			assert.Equal(t, 1, rec.Metadata.UsageCount)
			assert.Nil(t, rec.Metadata.AdditionalData)
		}},
		{"content", ContentValue{ContentID: "c1"}, func(t *testing.T, rec *AwardRecord) {
			require.NotNil(t, rec.Metadata.AdditionalData)
			assert.Equal(t, now, *rec.Metadata.AdditionalData.UnlockedAt)
		}},
		{"exclusive content", ExclusiveContentValue{ContentID: "x1"}, func(t *testing.T, rec *AwardRecord) {
			require.NotNil(t, rec.Metadata.AdditionalData)
			assert.Equal(t, now, *rec.Metadata.AdditionalData.UnlockedAt)
		}},
		{"customization", CustomizationValue{CustomizationType: "theme", CustomizationValue: "dark"}, func(t *testing.T, rec *AwardRecord) {
			require.NotNil(t, rec.Metadata.AdditionalData)
			assert.Equal(t, now, *rec.Metadata.AdditionalData.AppliedAt)
		}},
		{"cultural", CulturalValue{EventName: "Opera"}, func(t *testing.T, rec *AwardRecord) {
			require.NotNil(t, rec.Metadata.AdditionalData)
			assert.Equal(t, now, *rec.Metadata.AdditionalData.ParticipationDate)
		}},
		{"experience", ExperienceValue{Description: "Workshop"}, func(t *testing.T, rec *AwardRecord) {
			require.NotNil(t, rec.Metadata.AdditionalData)
			assert.Equal(t, now, *rec.Metadata.AdditionalData.ActivatedAt)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := definitionOf(t, tt.value)
			rec := NewAwardRecord("u1", def, now)

			require.NoError(t, reg.Redeem(rec, def, now))
			assert.Equal(t, StatusConsumed, rec.Status)
			require.NotNil(t, rec.ConsumedAt)
			tt.check(t, rec)
		})
	}
}

func TestRedeem_NonRedeemableLeavesRecordUntouched(t *testing.T) {
	reg := DefaultHandlers()

	for _, v := range []Value{
		PointsValue{Points: 10},
		BadgeValue{BadgeID: "b"},
		AchievementValue{AchievementID: "a"},
	} {
		t.Run(v.Kind().Tag(), func(t *testing.T) {
			def := definitionOf(t, v)
			rec := NewAwardRecord("u1", def, now)
			before := rec.Clone()

			err := reg.Redeem(rec, def, now)
			assert.ErrorIs(t, err, shared.ErrRewardNotRedeemable)
			assert.Equal(t, before, rec)
		})
	}
}

func TestRedeem_SecondConsumeFails(t *testing.T) {
	reg := DefaultHandlers()
	def := definitionOf(t, DiscountValue{Percentage: 5})
	rec := NewAwardRecord("u1", def, now)

	require.NoError(t, reg.Redeem(rec, def, now))
	snapshot := rec.Clone()

	err := reg.Redeem(rec, def, now)
	assert.ErrorIs(t, err, shared.ErrRewardAlreadyConsumed)
	assert.Equal(t, snapshot, rec)
}

func TestRedeem_UnregisteredType(t *testing.T) {
	reg := NewHandlerRegistry()
	def := definitionOf(t, DiscountValue{Percentage: 5})
	rec := NewAwardRecord("u1", def, now)

	err := reg.Redeem(rec, def, now)
	assert.ErrorIs(t, err, shared.ErrInvalidRewardType)
	assert.Equal(t, StatusActive, rec.Status)
}
