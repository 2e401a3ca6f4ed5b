package command

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/learnquest/rewards-engine/internal/application/uow"
	"github.com/learnquest/rewards-engine/internal/domain/progress"
	"github.com/learnquest/rewards-engine/internal/domain/reward"
	"github.com/learnquest/rewards-engine/internal/domain/shared"
	"github.com/learnquest/rewards-engine/internal/domain/user"
	"github.com/learnquest/rewards-engine/internal/infrastructure/persistence/memory"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type eventRecorder struct {
	mu     sync.Mutex
	events []shared.Event
}

func (r *eventRecorder) Publish(event shared.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) types() []shared.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]shared.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType())
	}
	return out
}

func (r *eventRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type metricsRecorder struct {
	NopMetrics
	mu        sync.Mutex
	awarded   map[string]int
	consumed  map[string]int
	expired   int
	credited  map[string]int64
	levelUps  int
	conflicts int
}

func newMetricsRecorder() *metricsRecorder {
	return &metricsRecorder{
		awarded:  make(map[string]int),
		consumed: make(map[string]int),
		credited: make(map[string]int64),
	}
}

func (m *metricsRecorder) RewardAwarded(t string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.awarded[t]++
}

func (m *metricsRecorder) RewardConsumed(t string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consumed[t]++
}

func (m *metricsRecorder) RewardsExpired(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expired += n
}

func (m *metricsRecorder) PointsCredited(source string, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credited[source] += amount
}

func (m *metricsRecorder) LevelUp() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levelUps++
}

func (m *metricsRecorder) ConflictRetry(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts++
}

type fixture struct {
	t       *testing.T
	store   *memory.Store
	clock   *shared.ManualClock
	events  *eventRecorder
	metrics *metricsRecorder
	deps    Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:       t,
		store:   memory.NewStore(),
		clock:   shared.NewManualClock(epoch),
		events:  &eventRecorder{},
		metrics: newMetricsRecorder(),
	}
	f.deps = Deps{
		UoW:       f.store,
		Clock:     f.clock,
		Publisher: f.events,
		Metrics:   f.metrics,
	}
	return f
}

func (f *fixture) repos() uow.Repositories {
	return f.store.Repositories()
}

func (f *fixture) addUser(id string) {
	f.t.Helper()
	u, err := user.New(id, "", epoch)
	require.NoError(f.t, err)
	require.NoError(f.t, f.repos().Users.Create(context.Background(), u))
}

func (f *fixture) define(p reward.DefinitionParams) *reward.Definition {
	f.t.Helper()
	p.IsActive = true
	if p.Name == "" {
		p.Name = p.ID
	}
	if p.Trigger == "" {
		p.Trigger = reward.TriggerLevelUp
	}
	def, err := reward.NewDefinition(p, f.clock.Now())
	require.NoError(f.t, err)
	require.NoError(f.t, f.repos().Definitions.Create(context.Background(), def))
	return def
}

func (f *fixture) award(userID, rewardID string) (*AwardRewardResult, error) {
	return NewAwardRewardHandler(f.deps, DefaultAwardRewardConfig()).Handle(context.Background(), AwardRewardCommand{UserID: userID, RewardID: rewardID})
}

func (f *fixture) consume(userID, rewardID string) (*ConsumeRewardResult, error) {
	return NewConsumeRewardHandler(f.deps, nil).Handle(context.Background(), ConsumeRewardCommand{UserID: userID, RewardID: rewardID})
}

func (f *fixture) stored(userID, rewardID string) *reward.AwardRecord {
	f.t.Helper()
	rec, err := f.repos().Awards.Get(context.Background(), userID, rewardID)
	require.NoError(f.t, err)
	return rec
}

func (f *fixture) ledger(userID string) *progress.LedgerEntry {
	f.t.Helper()
	entry, err := f.repos().Ledger.Get(context.Background(), userID)
	require.NoError(f.t, err)
	return entry
}

func discount(id string, expirationDays *int) reward.DefinitionParams {
	return reward.DefinitionParams{
		ID:             id,
		Type:           reward.TypeDiscount,
		Value:          reward.DiscountValue{Percentage: 10, Code: "SAVE10"},
		ExpirationDays: expirationDays,
	}
}

func points(id string, amount int64) reward.DefinitionParams {
	return reward.DefinitionParams{
		ID:    id,
		Type:  reward.TypePoints,
		Value: reward.PointsValue{Points: amount},
	}
}

func intPtr(v int) *int { return &v }

// faultyUoW wraps a unit of work and injects repository failures.
type faultyUoW struct {
	uow.UnitOfWork

	mu              sync.Mutex
	ledgerConflicts int
	awardSaveErr    error
}

func (u *faultyUoW) Do(ctx context.Context, fn func(ctx context.Context, repos uow.Repositories) error) error {
	return u.UnitOfWork.Do(ctx, func(ctx context.Context, repos uow.Repositories) error {
		repos.Ledger = &faultyLedger{LedgerRepository: repos.Ledger, u: u}
		repos.Awards = &faultyAwards{AwardRepository: repos.Awards, u: u}
		return fn(ctx, repos)
	})
}

type faultyLedger struct {
	progress.LedgerRepository
	u *faultyUoW
}

func (l *faultyLedger) Save(ctx context.Context, entry *progress.LedgerEntry) error {
	l.u.mu.Lock()
	if l.u.ledgerConflicts > 0 {
		l.u.ledgerConflicts--
		l.u.mu.Unlock()
		return shared.ErrLedgerConflict
	}
	l.u.mu.Unlock()
	return l.LedgerRepository.Save(ctx, entry)
}

type faultyAwards struct {
	reward.AwardRepository
	u *faultyUoW
}

func (a *faultyAwards) Save(ctx context.Context, rec *reward.AwardRecord) error {
	if a.u.awardSaveErr != nil {
		return a.u.awardSaveErr
	}
	return a.AwardRepository.Save(ctx, rec)
}
