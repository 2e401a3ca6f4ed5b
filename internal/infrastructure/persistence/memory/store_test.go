package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnquest/rewards-engine/internal/application/uow"
	"github.com/learnquest/rewards-engine/internal/domain/progress"
	"github.com/learnquest/rewards-engine/internal/domain/reward"
	"github.com/learnquest/rewards-engine/internal/domain/shared"
	"github.com/learnquest/rewards-engine/internal/domain/user"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mustDefinition(t *testing.T, id string, createdAt time.Time) *reward.Definition {
	t.Helper()
	def, err := reward.NewDefinition(reward.DefinitionParams{
		ID:       id,
		Name:     "Reward " + id,
		Type:     reward.TypePoints,
		Trigger:  reward.TriggerLevelUp,
		Value:    reward.PointsValue{Points: 10},
		IsActive: true,
	}, createdAt)
	require.NoError(t, err)
	return def
}

func TestStore_DoCommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	err := store.Do(ctx, func(ctx context.Context, repos uow.Repositories) error {
		u, err := user.New("u1", "Ada", now)
		require.NoError(t, err)
		return repos.Users.Create(ctx, u)
	})
	require.NoError(t, err)

	ok, err := store.Repositories().Users.Exists(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_DoRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	def := mustDefinition(t, "r1", now)
	require.NoError(t, store.Repositories().Definitions.Create(ctx, def))

	boom := errors.New("boom")
	err := store.Do(ctx, func(ctx context.Context, repos uow.Repositories) error {
		require.NoError(t, repos.Awards.Save(ctx, reward.NewAwardRecord("u1", def, now)))
		entry := progress.NewLedgerEntry("u1", progress.DefaultLevelPolicy(), now)
		entry.Credit(10, progress.DefaultLevelPolicy(), now)
		require.NoError(t, repos.Ledger.Save(ctx, entry))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	repos := store.Repositories()
	_, err = repos.Awards.Get(ctx, "u1", "r1")
	assert.ErrorIs(t, err, shared.ErrAwardNotFound)
	_, err = repos.Ledger.Get(ctx, "u1")
	assert.ErrorIs(t, err, shared.ErrLedgerNotFound)
}

func TestStore_DoHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewStore().Do(ctx, func(context.Context, uow.Repositories) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestStore_ReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	def := mustDefinition(t, "r1", now)
	require.NoError(t, repos.Awards.Save(ctx, reward.NewAwardRecord("u1", def, now)))

	rec, err := repos.Awards.Get(ctx, "u1", "r1")
	require.NoError(t, err)
	rec.Status = reward.StatusConsumed

	again, err := repos.Awards.Get(ctx, "u1", "r1")
	require.NoError(t, err)
	assert.Equal(t, reward.StatusActive, again.Status)
}

func TestDefinitionRepository_CreateAndList(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	require.NoError(t, repos.Definitions.Create(ctx, mustDefinition(t, "b", now.Add(time.Minute))))
	require.NoError(t, repos.Definitions.Create(ctx, mustDefinition(t, "a", now)))
	secret := mustDefinition(t, "c", now.Add(2*time.Minute))
	secret.IsSecret = true
	require.NoError(t, repos.Definitions.Create(ctx, secret))

	err := repos.Definitions.Create(ctx, mustDefinition(t, "a", now))
	assert.ErrorIs(t, err, shared.ErrRewardExists)

	defs, err := repos.Definitions.List(ctx, reward.Filter{})
	require.NoError(t, err)
	require.Len(t, defs, 3)

	defs, err = repos.Definitions.List(ctx, reward.Filter{HideSecret: true})
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "a", defs[0].ID)
	assert.Equal(t, "b", defs[1].ID)

	defs, err = repos.Definitions.List(ctx, reward.Filter{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "b", defs[0].ID)

	_, err = repos.Definitions.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, shared.ErrRewardNotFound)
}

func TestAwardRepository_QueriesAndExpiry(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	days := 1
	expiring := mustDefinition(t, "exp", now)
	expiring.ExpirationDays = &days
	plain := mustDefinition(t, "plain", now)

	require.NoError(t, repos.Awards.Save(ctx, reward.NewAwardRecord("u1", expiring, now)))
	require.NoError(t, repos.Awards.Save(ctx, reward.NewAwardRecord("u1", plain, now.Add(time.Hour))))
	require.NoError(t, repos.Awards.Save(ctx, reward.NewAwardRecord("u2", expiring, now)))

	list, err := repos.Awards.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "plain", list[0].RewardID)

	n, err := repos.Awards.CountByReward(ctx, "exp")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	due, err := repos.Awards.ListExpirable(ctx, now.Add(12*time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = repos.Awards.ListExpirable(ctx, now.AddDate(0, 0, 1), 1)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "u1", due[0].UserID)
}

func TestLedgerRepository_OptimisticLocking(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	policy := progress.DefaultLevelPolicy()

	entry := progress.NewLedgerEntry("u1", policy, now)
	require.NoError(t, repos.Ledger.Save(ctx, entry))
	assert.Equal(t, int64(1), entry.Version)

	assert.ErrorIs(t, repos.Ledger.Save(ctx, progress.NewLedgerEntry("u1", policy, now)), shared.ErrLedgerConflict)

	a, err := repos.Ledger.Get(ctx, "u1")
	require.NoError(t, err)
	b, err := repos.Ledger.Get(ctx, "u1")
	require.NoError(t, err)

	a.Credit(50, policy, now)
	require.NoError(t, repos.Ledger.Save(ctx, a))

	b.Credit(70, policy, now)
	err = repos.Ledger.Save(ctx, b)
	assert.ErrorIs(t, err, shared.ErrLedgerConflict)
	assert.True(t, shared.IsRetryable(err))

	stored, err := repos.Ledger.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), stored.Points)
	assert.Equal(t, int64(2), stored.Version)
}

func TestActivityRepository_NewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	for i, id := range []string{"a1", "a2", "a3"} {
		log, err := progress.NewActivityLog(id, "u1", progress.ActivityLesson, 5, "", now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.NoError(t, repos.Activities.Append(ctx, log))
	}
	dup, err := progress.NewActivityLog("a1", "u1", progress.ActivityLesson, 5, "", now)
	require.NoError(t, err)
	assert.True(t, shared.IsAlreadyExists(repos.Activities.Append(ctx, dup)))

	logs, err := repos.Activities.ListByUser(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "a3", logs[0].ID)
	assert.Equal(t, "a2", logs[1].ID)
}
