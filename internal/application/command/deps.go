// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"time"

	"github.com/learnquest/rewards-engine/internal/application/uow"
	"github.com/learnquest/rewards-engine/internal/domain/progress"
	"github.com/learnquest/rewards-engine/internal/domain/shared"
	"github.com/learnquest/rewards-engine/pkg/logger"
	"github.com/learnquest/rewards-engine/pkg/retry"
)

// DefaultConflictAttempts bounds how often a unit of work is re-run after
// losing an optimistic-lock race on the ledger.
const DefaultConflictAttempts = 5

// Deps holds the collaborators shared by every command handler.
type Deps struct {
	UoW         uow.UnitOfWork
	Clock       shared.Clock
	Publisher   shared.EventPublisher
	Logger      *logger.Logger
	Metrics     Metrics
	LevelPolicy progress.LevelPolicy

	// ConflictAttempts is the total number of attempts for a unit of work
	// that fails with shared.ErrOptimisticLock.
	ConflictAttempts int
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = shared.SystemClock{}
	}
	if d.Publisher == nil {
		d.Publisher = shared.NopPublisher{}
	}
	if d.Logger == nil {
		d.Logger = logger.Discard()
	}
	if d.Metrics == nil {
		d.Metrics = NopMetrics{}
	}
	if d.LevelPolicy == nil {
		d.LevelPolicy = progress.DefaultLevelPolicy()
	}
	if d.ConflictAttempts <= 0 {
		d.ConflictAttempts = DefaultConflictAttempts
	}
	return d
}

func isConflict(err error) bool {
	return shared.IsRetryable(err)
}

// transact runs fn in a unit of work, re-running the whole unit when the
// ledger reports a concurrent modification. fn must not keep state across
// attempts.
func (d Deps) transact(ctx context.Context, op string, fn func(ctx context.Context, repos uow.Repositories) error) error {
	r := retry.ConflictRetrier(d.ConflictAttempts, isConflict).With(
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			d.Metrics.ConflictRetry(op)
			d.Logger.Warn("retrying after concurrent modification",
				logger.Operation(op),
				logger.Int("attempt", attempt),
				logger.Duration("delay", delay),
				logger.Err(err),
			)
		}),
	)

	return r.Do(ctx, func(ctx context.Context) error {
		return d.UoW.Do(ctx, fn)
	})
}

// publish delivers events after commit. Delivery failures are logged; the
// state change they describe is already durable.
func (d Deps) publish(events []shared.Event) {
	for _, event := range events {
		if err := d.Publisher.Publish(event); err != nil {
			d.Logger.Error("failed to publish event",
				logger.String("event_type", string(event.EventType())),
				logger.Err(err),
			)
		}
	}
}

// observe records the latency and outcome of an operation.
func (d Deps) observe(op string, start time.Time, err error) {
	d.Metrics.ObserveOperation(op, err, time.Since(start))
}

// requireUser fails with ErrUserNotFound if the user is unknown.
func requireUser(ctx context.Context, repos uow.Repositories, userID string) error {
	if _, err := shared.NewUserID(userID); err != nil {
		return err
	}
	ok, err := repos.Users.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return shared.ErrUserNotFound
	}
	return nil
}

// ledgerCredit is the outcome of one ledger mutation inside a unit of work.
type ledgerCredit struct {
	Entry  *progress.LedgerEntry
	Change progress.Change
}

// creditLedger loads or lazily creates the ledger entry, applies amount plus
// any extra mutation, and saves it with a version check.
func (d Deps) creditLedger(
	ctx context.Context,
	repos uow.Repositories,
	userID string,
	amount int64,
	now time.Time,
	mutate func(*progress.LedgerEntry),
) (*ledgerCredit, error) {
	if err := progress.ValidateAmount(amount); err != nil {
		return nil, err
	}

	entry, err := repos.Ledger.Get(ctx, userID)
	if shared.IsNotFound(err) {
		entry = progress.NewLedgerEntry(userID, d.LevelPolicy, now)
	} else if err != nil {
		return nil, err
	}

	if err := entry.CheckCredit(amount); err != nil {
		return nil, err
	}
	change := entry.Credit(amount, d.LevelPolicy, now)
	if mutate != nil {
		mutate(entry)
	}

	if err := repos.Ledger.Save(ctx, entry); err != nil {
		return nil, err
	}
	return &ledgerCredit{Entry: entry, Change: change}, nil
}

// ledgerEvents builds the events describing a credit.
func ledgerEvents(userID, source string, c *ledgerCredit, now time.Time) []shared.Event {
	events := []shared.Event{
		shared.NewPointsCreditedEvent(userID, c.Change.Amount, c.Change.NewPoints, source, now),
	}
	if c.Change.LeveledUp() {
		events = append(events, shared.NewLevelUpEvent(userID, c.Change.OldLevel, c.Change.NewLevel, c.Change.NewPoints, now))
	}
	return events
}

// recordCredit reports a committed credit to metrics.
func (d Deps) recordCredit(source string, c *ledgerCredit) {
	d.Metrics.PointsCredited(source, c.Change.Amount)
	if c.Change.LeveledUp() {
		d.Metrics.LevelUp()
	}
}
