package command

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnquest/rewards-engine/internal/domain/reward"
	"github.com/learnquest/rewards-engine/internal/domain/shared"
)

func TestConsumeReward_RoundTrip(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1")
	f.define(discount("save-10", intPtr(7)))

	_, err := f.award("u1", "save-10")
	require.NoError(t, err)

	f.clock.Advance(48 * time.Hour)
	res, err := f.consume("u1", "save-10")
	require.NoError(t, err)
	assert.True(t, res.Consumed)

	stored := f.stored("u1", "save-10")
	assert.Equal(t, reward.StatusConsumed, stored.Status)
	require.NotNil(t, stored.ConsumedAt)
	assert.True(t, epoch.Add(48*time.Hour).Equal(*stored.ConsumedAt))
	assert.Equal(t, 1, stored.Metadata.UsageCount)
	assert.Equal(t, 1, f.metrics.consumed["DISCOUNT"])
	assert.Equal(t, []shared.EventType{shared.EventRewardAwarded, shared.EventRewardConsumed}, f.events.types())
}

func TestConsumeReward_TypeSpecificMetadata(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1")
	f.define(reward.DefinitionParams{
		ID:    "concert",
		Type:  reward.TypeCultural,
		Value: reward.CulturalValue{EventName: "Spring concert"},
	})
	f.define(reward.DefinitionParams{
		ID:    "dark-theme",
		Type:  reward.TypeCustomization,
		Value: reward.CustomizationValue{CustomizationType: "theme", CustomizationValue: "dark"},
	})

	for _, id := range []string{"concert", "dark-theme"} {
		_, err := f.award("u1", id)
		require.NoError(t, err)
		_, err = f.consume("u1", id)
		require.NoError(t, err)
	}

	concert := f.stored("u1", "concert")
	require.NotNil(t, concert.Metadata.AdditionalData)
	require.NotNil(t, concert.Metadata.AdditionalData.ParticipationDate)
	assert.True(t, epoch.Equal(*concert.Metadata.AdditionalData.ParticipationDate))

	theme := f.stored("u1", "dark-theme")
	require.NotNil(t, theme.Metadata.AdditionalData)
	assert.NotNil(t, theme.Metadata.AdditionalData.AppliedAt)
}

func TestConsumeReward_AtMostOnce(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1")
	f.define(discount("save-10", nil))
	_, err := f.award("u1", "save-10")
	require.NoError(t, err)

	_, err = f.consume("u1", "save-10")
	require.NoError(t, err)
	consumedAt := *f.stored("u1", "save-10").ConsumedAt

	f.clock.Advance(time.Hour)
	_, err = f.consume("u1", "save-10")
	assert.ErrorIs(t, err, shared.ErrRewardAlreadyConsumed)
	assert.True(t, shared.IsInvalidState(err))

	stored := f.stored("u1", "save-10")
	assert.True(t, consumedAt.Equal(*stored.ConsumedAt))
	assert.Equal(t, 1, stored.Metadata.UsageCount)
}

func TestConsumeReward_ConcurrentCallersOneWins(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1")
	f.define(discount("save-10", nil))
	_, err := f.award("u1", "save-10")
	require.NoError(t, err)

	handler := NewConsumeRewardHandler(f.deps, nil)
	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := handler.Handle(context.Background(), ConsumeRewardCommand{UserID: "u1", RewardID: "save-10"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if assert.ErrorIs(t, err, shared.ErrRewardAlreadyConsumed) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, rejected)
}

func TestConsumeReward_ExpiredIsPersistedBeforeError(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1")
	f.define(discount("save-10", intPtr(1)))
	_, err := f.award("u1", "save-10")
	require.NoError(t, err)
	f.events.reset()

	f.clock.Advance(25 * time.Hour)
	_, err = f.consume("u1", "save-10")
	assert.ErrorIs(t, err, shared.ErrRewardExpired)
	assert.ErrorIs(t, err, shared.ErrExpired)

	stored := f.stored("u1", "save-10")
	assert.Equal(t, reward.StatusExpired, stored.Status)
	assert.Nil(t, stored.ConsumedAt)
	assert.Equal(t, []shared.EventType{shared.EventRewardExpired}, f.events.types())
	assert.Equal(t, 1, f.metrics.expired)

	// Already stored as EXPIRED: the error repeats without another transition.
	_, err = f.consume("u1", "save-10")
	assert.ErrorIs(t, err, shared.ErrRewardExpired)
	assert.Equal(t, 1, f.metrics.expired)
}

func TestConsumeReward_ExpiryBoundaryIsInclusive(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1")
	f.define(discount("save-10", intPtr(1)))
	_, err := f.award("u1", "save-10")
	require.NoError(t, err)

	f.clock.Set(epoch.AddDate(0, 0, 1))
	_, err = f.consume("u1", "save-10")
	assert.ErrorIs(t, err, shared.ErrRewardExpired)
}

func TestConsumeReward_GrantedOnAwardTypesAreNoOps(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1")
	f.define(points("bonus", 20))
	f.define(reward.DefinitionParams{
		ID:    "first-steps",
		Type:  reward.TypeBadge,
		Value: reward.BadgeValue{BadgeID: "first-steps"},
	})

	for _, id := range []string{"bonus", "first-steps"} {
		_, err := f.award("u1", id)
		require.NoError(t, err)
		f.events.reset()

		res, err := f.consume("u1", id)
		require.NoError(t, err)
		assert.False(t, res.Consumed)
		assert.Equal(t, reward.StatusActive, res.Record.Status)
		assert.Equal(t, reward.StatusActive, f.stored("u1", id).Status)
		assert.Empty(t, f.events.types())
	}

	// Redeeming points must not credit them again.
	assert.Equal(t, int64(20), f.ledger("u1").Points)
}

func TestConsumeReward_NotAwarded(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1")
	f.define(discount("save-10", nil))

	_, err := f.consume("u1", "save-10")
	assert.ErrorIs(t, err, shared.ErrAwardNotFound)
}

func TestConsumeReward_CustomRegistry(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1")
	f.define(discount("save-10", nil))
	_, err := f.award("u1", "save-10")
	require.NoError(t, err)

	handler := NewConsumeRewardHandler(f.deps, reward.NewHandlerRegistry())
	_, err = handler.Handle(context.Background(), ConsumeRewardCommand{UserID: "u1", RewardID: "save-10"})
	assert.ErrorIs(t, err, shared.ErrInvalidRewardType)
	assert.Equal(t, reward.StatusActive, f.stored("u1", "save-10").Status)
}

func TestCheckRewardStatus_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1")
	f.define(discount("save-10", intPtr(1)))
	_, err := f.award("u1", "save-10")
	require.NoError(t, err)

	handler := NewCheckRewardStatusHandler(f.deps)
	cmd := CheckRewardStatusCommand{UserID: "u1", RewardID: "save-10"}

	res, err := handler.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.False(t, res.Expired)
	assert.Equal(t, reward.StatusActive, res.Record.Status)

	f.clock.Advance(48 * time.Hour)
	res, err = handler.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, res.Expired)
	assert.Equal(t, reward.StatusExpired, res.Record.Status)

	res, err = handler.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.False(t, res.Expired)
	assert.Equal(t, reward.StatusExpired, res.Record.Status)
	assert.Equal(t, 1, f.metrics.expired)
}

func TestCheckRewardStatus_ConsumedStaysConsumed(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1")
	f.define(discount("save-10", intPtr(1)))
	_, err := f.award("u1", "save-10")
	require.NoError(t, err)
	_, err = f.consume("u1", "save-10")
	require.NoError(t, err)

	f.clock.Advance(72 * time.Hour)
	res, err := NewCheckRewardStatusHandler(f.deps).Handle(context.Background(), CheckRewardStatusCommand{UserID: "u1", RewardID: "save-10"})
	require.NoError(t, err)
	assert.False(t, res.Expired)
	assert.Equal(t, reward.StatusConsumed, res.Record.Status)
}

func TestExpireRewards_SweepsInBatches(t *testing.T) {
	f := newFixture(t)
	f.define(discount("short", intPtr(1)))
	f.define(discount("long", intPtr(30)))
	for _, id := range []string{"u1", "u2", "u3"} {
		f.addUser(id)
		_, err := f.award(id, "short")
		require.NoError(t, err)
		_, err = f.award(id, "long")
		require.NoError(t, err)
	}
	f.events.reset()

	f.clock.Advance(48 * time.Hour)
	res, err := NewExpireRewardsHandler(f.deps).Handle(context.Background(), ExpireRewardsCommand{BatchSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Expired)
	assert.Equal(t, 2, res.Batches)

	for _, id := range []string{"u1", "u2", "u3"} {
		assert.Equal(t, reward.StatusExpired, f.stored(id, "short").Status)
		assert.Equal(t, reward.StatusActive, f.stored(id, "long").Status)
	}
	assert.Len(t, f.events.types(), 3)

	res, err = NewExpireRewardsHandler(f.deps).Handle(context.Background(), ExpireRewardsCommand{})
	require.NoError(t, err)
	assert.Zero(t, res.Expired)
}

func TestExpireRewards_MaxBatches(t *testing.T) {
	f := newFixture(t)
	f.define(discount("short", intPtr(1)))
	for _, id := range []string{"u1", "u2", "u3"} {
		f.addUser(id)
		_, err := f.award(id, "short")
		require.NoError(t, err)
	}

	f.clock.Advance(48 * time.Hour)
	res, err := NewExpireRewardsHandler(f.deps).Handle(context.Background(), ExpireRewardsCommand{BatchSize: 1, MaxBatches: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Expired)
	assert.Equal(t, 2, res.Batches)
}
