package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnquest/rewards-engine/internal/domain/reward"
	"github.com/learnquest/rewards-engine/internal/domain/shared"
)

func TestAwardReward_CreatesActiveRecordWithExpiry(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1")
	f.define(discount("save-10", intPtr(7)))

	res, err := f.award("u1", "save-10")
	require.NoError(t, err)

	assert.Equal(t, reward.StatusActive, res.Record.Status)
	assert.True(t, epoch.Equal(res.Record.DateAwarded))
	require.NotNil(t, res.Record.ExpiresAt)
	assert.True(t, epoch.AddDate(0, 0, 7).Equal(*res.Record.ExpiresAt))
	assert.Nil(t, res.Record.ConsumedAt)
	assert.Nil(t, res.Ledger)
	assert.False(t, res.Replaced)

	stored := f.stored("u1", "save-10")
	assert.Equal(t, reward.StatusActive, stored.Status)
	assert.Equal(t, []shared.EventType{shared.EventRewardAwarded}, f.events.types())
	assert.Equal(t, 1, f.metrics.awarded["DISCOUNT"])
}

func TestAwardReward_PointsRewardCreditsLedger(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1")
	f.define(points("bonus", 150))

	res, err := f.award("u1", "bonus")
	require.NoError(t, err)

	require.NotNil(t, res.Ledger)
	assert.Equal(t, int64(150), res.Ledger.Points)
	assert.Equal(t, 2, res.Ledger.Level)

	entry := f.ledger("u1")
	assert.Equal(t, int64(150), entry.Points)
	assert.True(t, entry.IsConsistent(f.deps.withDefaults().LevelPolicy))
	assert.Equal(t, []shared.EventType{
		shared.EventRewardAwarded,
		shared.EventPointsCredited,
		shared.EventLevelUp,
	}, f.events.types())
	assert.Equal(t, int64(150), f.metrics.credited[SourceReward])
	assert.Equal(t, 1, f.metrics.levelUps)
}

func TestAwardReward_UnknownUserOrReward(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1")
	f.define(discount("save-10", nil))

	_, err := f.award("ghost", "save-10")
	assert.ErrorIs(t, err, shared.ErrUserNotFound)

	_, err = f.award("u1", "missing")
	assert.ErrorIs(t, err, shared.ErrRewardNotFound)
	assert.True(t, shared.IsNotFound(err))

	assert.Empty(t, f.events.types())
}

func TestAwardReward_InactiveDefinition(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1")
	p := discount("retired", nil)
	p.Name = "Retired"
	def, err := reward.NewDefinition(p, epoch)
	require.NoError(t, err)
	require.NoError(t, f.repos().Definitions.Create(context.Background(), def))

	_, err = f.award("u1", "retired")
	assert.ErrorIs(t, err, shared.ErrRewardInactive)
}

func TestAwardReward_RejectsDuplicateByDefault(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1")
	f.define(discount("save-10", nil))

	_, err := f.award("u1", "save-10")
	require.NoError(t, err)

	_, err = f.consume("u1", "save-10")
	require.NoError(t, err)

	_, err = f.award("u1", "save-10")
	assert.ErrorIs(t, err, shared.ErrRewardAlreadyAwarded)
	assert.Equal(t, reward.StatusConsumed, f.stored("u1", "save-10").Status)
}

func TestAwardReward_ReplaceSettledPolicy(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1")
	f.define(discount("save-10", nil))
	handler := NewAwardRewardHandler(f.deps, AwardRewardConfig{Reaward: reward.ReawardReplaceSettled})
	cmd := AwardRewardCommand{UserID: "u1", RewardID: "save-10"}

	_, err := handler.Handle(context.Background(), cmd)
	require.NoError(t, err)

	// Still ACTIVE: not replaceable.
	_, err = handler.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, shared.ErrRewardAlreadyAwarded)

	_, err = f.consume("u1", "save-10")
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	res, err := handler.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, res.Replaced)

	stored := f.stored("u1", "save-10")
	assert.Equal(t, reward.StatusActive, stored.Status)
	assert.Nil(t, stored.ConsumedAt)
	assert.True(t, epoch.Add(time.Hour).Equal(stored.DateAwarded))
}

func TestAwardReward_LimitedQuantity(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1")
	f.addUser("u2")
	f.addUser("u3")
	p := discount("early-bird", nil)
	p.IsLimited = true
	p.LimitedQuantity = intPtr(2)
	f.define(p)

	_, err := f.award("u1", "early-bird")
	require.NoError(t, err)
	_, err = f.award("u2", "early-bird")
	require.NoError(t, err)

	_, err = f.award("u3", "early-bird")
	assert.ErrorIs(t, err, shared.ErrRewardSoldOut)

	n, err := f.repos().Awards.CountByReward(context.Background(), "early-bird")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestAwardReward_LimitedWindow(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1")
	opens := epoch.Add(24 * time.Hour)
	closes := epoch.Add(48 * time.Hour)
	p := discount("weekend", nil)
	p.IsLimited = true
	p.StartDate = &opens
	p.EndDate = &closes
	f.define(p)

	_, err := f.award("u1", "weekend")
	assert.ErrorIs(t, err, shared.ErrRewardNotAvailable)

	f.clock.Set(opens.Add(time.Hour))
	_, err = f.award("u1", "weekend")
	assert.NoError(t, err)
}

func TestAwardReward_RollsBackCreditWhenRecordSaveFails(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1")
	f.define(points("bonus", 150))

	boom := errors.Join(shared.ErrPersistence, errors.New("disk full"))
	f.deps.UoW = &faultyUoW{UnitOfWork: f.store, awardSaveErr: boom}

	_, err := f.award("u1", "bonus")
	require.Error(t, err)
	assert.True(t, shared.IsPersistence(err))

	_, err = f.repos().Ledger.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, shared.ErrLedgerNotFound)
	_, err = f.repos().Awards.Get(context.Background(), "u1", "bonus")
	assert.ErrorIs(t, err, shared.ErrAwardNotFound)
	assert.Empty(t, f.events.types())
	assert.Empty(t, f.metrics.awarded)
}

func TestAwardReward_RetriesLedgerConflict(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1")
	f.define(points("bonus", 40))
	f.deps.UoW = &faultyUoW{UnitOfWork: f.store, ledgerConflicts: 2}

	res, err := f.award("u1", "bonus")
	require.NoError(t, err)
	assert.Equal(t, int64(40), res.Ledger.Points)
	assert.Equal(t, 2, f.metrics.conflicts)
	assert.Equal(t, int64(40), f.ledger("u1").Points)
}

func TestAwardReward_GivesUpAfterConflictAttempts(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1")
	f.define(points("bonus", 40))
	f.deps.UoW = &faultyUoW{UnitOfWork: f.store, ledgerConflicts: 10}
	f.deps.ConflictAttempts = 3

	_, err := f.award("u1", "bonus")
	assert.ErrorIs(t, err, shared.ErrLedgerConflict)
	assert.Equal(t, 2, f.metrics.conflicts)

	_, err = f.repos().Awards.Get(context.Background(), "u1", "bonus")
	assert.ErrorIs(t, err, shared.ErrAwardNotFound)
}
