package reward

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnquest/rewards-engine/internal/domain/shared"
)

func TestMarshalValue_PointsUsesBareNumber(t *testing.T) {
	data, err := MarshalValue(PointsValue{Points: 50})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"points","value":50}`, string(data))
}

func TestMarshalValue_Customization(t *testing.T) {
	data, err := MarshalValue(CustomizationValue{CustomizationType: "theme", CustomizationValue: "dark"})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"customization","value":{"customizationType":"theme","customizationValue":"dark"}}`,
		string(data))
}

func TestUnmarshalValue_EveryType(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Value
	}{
		{"points", `{"type":"points","value":25}`, PointsValue{Points: 25}},
		{"badge", `{"type":"badge","value":{"badgeId":"b1"}}`, BadgeValue{BadgeID: "b1"}},
		{"achievement", `{"type":"achievement","value":{"achievementId":"a1"}}`, AchievementValue{AchievementID: "a1"}},
		{"cultural", `{"type":"cultural","value":{"eventName":"Museum night"}}`, CulturalValue{EventName: "Museum night"}},
		{"experience", `{"type":"experience","value":{"description":"Mentor call","durationMinutes":30}}`, ExperienceValue{Description: "Mentor call", DurationMinutes: 30}},
		{"content", `{"type":"content","value":{"contentId":"c1"}}`, ContentValue{ContentID: "c1"}},
		{"discount", `{"type":"discount","value":{"percentage":15}}`, DiscountValue{Percentage: 15}},
		{"exclusive content", `{"type":"exclusive_content","value":{"contentId":"x1"}}`, ExclusiveContentValue{ContentID: "x1"}},
		{"customization", `{"type":"customization","value":{"customizationType":"avatar","customizationValue":"fox"}}`, CustomizationValue{CustomizationType: "avatar", CustomizationValue: "fox"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnmarshalValue([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnmarshalValue_Rejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"malformed json", `{"type":`},
		{"unknown tag", `{"type":"voucher","value":{}}`},
		{"wrong shape", `{"type":"points","value":{"points":5}}`},
		{"negative points", `{"type":"points","value":-5}`},
		{"discount out of range", `{"type":"discount","value":{"percentage":120}}`},
		{"missing customization value", `{"type":"customization","value":{"customizationType":"theme"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalValue([]byte(tt.in))
			require.Error(t, err)
			assert.True(t, shared.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestParseType_AcceptsTagForm(t *testing.T) {
	typ, ok := ParseType("exclusive_content")
	assert.True(t, ok)
	assert.Equal(t, TypeExclusiveContent, typ)

	_, ok = ParseType("voucher")
	assert.False(t, ok)
}
