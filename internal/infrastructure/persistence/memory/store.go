// Package memory implements the repositories and the unit of work in process
// memory. It backs the CLI's --driver=memory mode and the application tests.
//
// Transactions are serialized by a store-wide mutex. Do works on a deep copy
// of the data and swaps it in only when fn succeeds, so a failed unit of work
// leaves no trace.
package memory

import (
	"context"
	"sync"

	"github.com/learnquest/rewards-engine/internal/application/uow"
	"github.com/learnquest/rewards-engine/internal/domain/progress"
	"github.com/learnquest/rewards-engine/internal/domain/reward"
	"github.com/learnquest/rewards-engine/internal/domain/user"
)

// state is the full data set. Stored values are never shared with callers.
type state struct {
	definitions map[string]*reward.Definition
	awards      map[awardKey]*reward.AwardRecord
	ledger      map[string]*progress.LedgerEntry
	activities  []*progress.ActivityLog
	users       map[string]*user.User
}

type awardKey struct {
	userID   string
	rewardID string
}

func newState() *state {
	return &state{
		definitions: make(map[string]*reward.Definition),
		awards:      make(map[awardKey]*reward.AwardRecord),
		ledger:      make(map[string]*progress.LedgerEntry),
		users:       make(map[string]*user.User),
	}
}

func (s *state) clone() *state {
	c := &state{
		definitions: make(map[string]*reward.Definition, len(s.definitions)),
		awards:      make(map[awardKey]*reward.AwardRecord, len(s.awards)),
		ledger:      make(map[string]*progress.LedgerEntry, len(s.ledger)),
		activities:  make([]*progress.ActivityLog, len(s.activities)),
		users:       make(map[string]*user.User, len(s.users)),
	}
	for k, v := range s.definitions {
		c.definitions[k] = v.Clone()
	}
	for k, v := range s.awards {
		c.awards[k] = v.Clone()
	}
	for k, v := range s.ledger {
		c.ledger[k] = v.Clone()
	}
	// Activity logs are immutable once appended.
	copy(c.activities, s.activities)
	for k, v := range s.users {
		u := *v
		c.users[k] = &u
	}
	return c
}

// scope gives a repository access to a data set.
type scope interface {
	read(fn func(*state) error) error
	write(fn func(*state) error) error
}

// txScope is the private snapshot of one unit of work.
type txScope struct {
	st *state
}

func (t txScope) read(fn func(*state) error) error  { return fn(t.st) }
func (t txScope) write(fn func(*state) error) error { return fn(t.st) }

// Store is an in-memory uow.UnitOfWork.
type Store struct {
	txMu   sync.Mutex
	dataMu sync.RWMutex
	data   *state
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: newState()}
}

func (s *Store) read(fn func(*state) error) error {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	return fn(s.data)
}

// write applies a single-statement change outside a unit of work. It waits for
// any running transaction so the change is not lost on its commit.
func (s *Store) write(fn func(*state) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	return fn(s.data)
}

// Do implements uow.UnitOfWork. fn must not use Store.Repositories for writes.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, repos uow.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.dataMu.RLock()
	snapshot := s.data.clone()
	s.dataMu.RUnlock()

	if err := fn(ctx, repositories(txScope{st: snapshot})); err != nil {
		return err
	}

	s.dataMu.Lock()
	s.data = snapshot
	s.dataMu.Unlock()
	return nil
}

// Repositories implements uow.UnitOfWork.
func (s *Store) Repositories() uow.Repositories {
	return repositories(s)
}

func repositories(sc scope) uow.Repositories {
	return uow.Repositories{
		Definitions: &DefinitionRepository{sc: sc},
		Awards:      &AwardRepository{sc: sc},
		Ledger:      &LedgerRepository{sc: sc},
		Activities:  &ActivityRepository{sc: sc},
		Users:       &UserRepository{sc: sc},
	}
}

var _ uow.UnitOfWork = (*Store)(nil)
