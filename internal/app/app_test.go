package app

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnquest/rewards-engine/config"
	"github.com/learnquest/rewards-engine/internal/application/command"
	"github.com/learnquest/rewards-engine/internal/application/query"
	"github.com/learnquest/rewards-engine/internal/domain/progress"
	"github.com/learnquest/rewards-engine/internal/domain/reward"
	"github.com/learnquest/rewards-engine/internal/domain/shared"
)

func newMemoryApp(t *testing.T, mutate func(*config.Config)) (*App, *shared.ManualClock) {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Driver = config.DriverMemory
	if mutate != nil {
		mutate(cfg)
	}

	clock := shared.NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	a, err := New(context.Background(), cfg, Options{Output: &bytes.Buffer{}, Clock: clock})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, clock
}

func TestNew_RejectsUnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Driver = "sqlite"

	_, err := New(context.Background(), cfg, Options{Output: &bytes.Buffer{}})
	assert.Error(t, err)
}

func TestApp_AwardAndConsumeRoundTrip(t *testing.T) {
	a, clock := newMemoryApp(t, nil)
	ctx := context.Background()

	_, err := a.AddUser(ctx, "u1", "Ada")
	require.NoError(t, err)

	def, err := a.Commands.CreateReward.Handle(ctx, command.CreateRewardDefinitionCommand{Params: reward.DefinitionParams{
		ID:             "save-10",
		Name:           "Save 10%",
		Type:           reward.TypeDiscount,
		Trigger:        reward.TriggerLevelUp,
		Value:          reward.DiscountValue{Percentage: 10, Code: "SAVE10"},
		IsActive:       true,
		ExpirationDays: intPtr(7),
	}})
	require.NoError(t, err)

	_, err = a.Commands.AwardReward.Handle(ctx, command.AwardRewardCommand{UserID: "u1", RewardID: def.ID})
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)
	res, err := a.Commands.ConsumeReward.Handle(ctx, command.ConsumeRewardCommand{UserID: "u1", RewardID: def.ID})
	require.NoError(t, err)
	assert.True(t, res.Consumed)
	assert.Equal(t, reward.StatusConsumed, res.Record.Status)

	rewards, err := a.Queries.ListUserRewards.Handle(ctx, query.ListUserRewardsQuery{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, rewards, 1)
	assert.Equal(t, reward.StatusConsumed, rewards[0].Status)

	n, err := testutil.GatherAndCount(a.Metrics.Registry(), "rewards_awarded_total", "rewards_consumed_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestApp_ActivityTriggersAutoAward(t *testing.T) {
	a, _ := newMemoryApp(t, nil)
	ctx := context.Background()

	_, err := a.AddUser(ctx, "u1", "")
	require.NoError(t, err)
	_, err = a.Commands.CreateReward.Handle(ctx, command.CreateRewardDefinitionCommand{Params: reward.DefinitionParams{
		ID:       "first-lesson",
		Name:     "First lesson",
		Type:     reward.TypeBadge,
		Trigger:  reward.TriggerLessonCompletion,
		Value:    reward.BadgeValue{BadgeID: "starter"},
		IsActive: true,
	}})
	require.NoError(t, err)

	_, err = a.Commands.RecordActivity.Handle(ctx, command.RecordActivityCommand{
		UserID:        "u1",
		Type:          progress.ActivityLesson,
		PointsAwarded: 30,
	})
	require.NoError(t, err)

	rewards, err := a.Queries.ListUserRewards.Handle(ctx, query.ListUserRewardsQuery{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, rewards, 1)
	assert.Equal(t, "first-lesson", rewards[0].RewardID)

	lvl, err := a.Queries.GetUserLevel.Handle(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(30), lvl.Points)
	assert.Equal(t, 1, lvl.LessonsCompleted)
}

func TestApp_AutoAwardDisabled(t *testing.T) {
	a, _ := newMemoryApp(t, func(c *config.Config) { c.Rewards.AutoAward = false })
	ctx := context.Background()

	_, err := a.AddUser(ctx, "u1", "")
	require.NoError(t, err)
	_, err = a.Commands.CreateReward.Handle(ctx, command.CreateRewardDefinitionCommand{Params: reward.DefinitionParams{
		ID:       "first-lesson",
		Name:     "First lesson",
		Type:     reward.TypeBadge,
		Trigger:  reward.TriggerLessonCompletion,
		Value:    reward.BadgeValue{BadgeID: "starter"},
		IsActive: true,
	}})
	require.NoError(t, err)

	_, err = a.Commands.RecordActivity.Handle(ctx, command.RecordActivityCommand{UserID: "u1", Type: progress.ActivityLesson})
	require.NoError(t, err)

	rewards, err := a.Queries.ListUserRewards.Handle(ctx, query.ListUserRewardsQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, rewards)
}

func TestApp_LevelStepFromConfig(t *testing.T) {
	a, _ := newMemoryApp(t, func(c *config.Config) { c.Rewards.LevelStep = 10 })
	ctx := context.Background()

	_, err := a.AddUser(ctx, "u1", "")
	require.NoError(t, err)
	res, err := a.Commands.CreditPoints.Handle(ctx, command.CreditPointsCommand{UserID: "u1", Amount: 40})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Entry.Level)
}

func TestApp_AddUserDuplicate(t *testing.T) {
	a, _ := newMemoryApp(t, nil)
	ctx := context.Background()

	_, err := a.AddUser(ctx, "u1", "")
	require.NoError(t, err)
	_, err = a.AddUser(ctx, "u1", "")
	assert.True(t, shared.IsAlreadyExists(err))
}

func intPtr(v int) *int { return &v }

func TestApp_HealthWithMemoryStore(t *testing.T) {
	a, _ := newMemoryApp(t, nil)

	status, err := a.Health(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, status)
}
