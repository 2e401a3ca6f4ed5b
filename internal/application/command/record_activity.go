package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/learnquest/rewards-engine/internal/application/uow"
	"github.com/learnquest/rewards-engine/internal/domain/progress"
	"github.com/learnquest/rewards-engine/internal/domain/shared"
	"github.com/learnquest/rewards-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD ACTIVITY COMMAND
// Records a completed lesson, exercise or perfect score: credits the points,
// bumps the matching counter and appends an immutable activity log row, all in
// one unit of work.
// ══════════════════════════════════════════════════════════════════════════════

// RecordActivityCommand contains the data to record an activity.
type RecordActivityCommand struct {
	// UserID is the learner.
	UserID string

	// Type selects the ledger counter. Unknown types are logged but count nothing.
	Type progress.ActivityType

	// PointsAwarded is credited to the ledger.
	PointsAwarded int64

	// Description is free text stored with the log row.
	Description string
}

// Validate validates the command.
func (c RecordActivityCommand) Validate() error {
	if _, err := shared.NewUserID(c.UserID); err != nil {
		return err
	}
	if c.Type == "" {
		return shared.NewDomainError("activity", "Record", shared.ErrEmptyValue, "activity type is required")
	}
	return progress.ValidateAmount(c.PointsAwarded)
}

// RecordActivityResult contains the result of recording an activity.
type RecordActivityResult struct {
	Entry    *progress.LedgerEntry
	Activity *progress.ActivityLog
	Change   progress.Change
	Events   []shared.Event
}

// RecordActivityHandler handles the RecordActivityCommand.
type RecordActivityHandler struct {
	deps  Deps
	log   *logger.Logger
	newID func() string
}

// NewRecordActivityHandler creates a new RecordActivityHandler.
func NewRecordActivityHandler(deps Deps) *RecordActivityHandler {
	deps = deps.withDefaults()
	return &RecordActivityHandler{
		deps:  deps,
		log:   deps.Logger.With(logger.Component("record_activity")),
		newID: uuid.NewString,
	}
}

// Handle executes the record activity command.
func (h *RecordActivityHandler) Handle(ctx context.Context, cmd RecordActivityCommand) (result *RecordActivityResult, err error) {
	start := time.Now()
	defer func() { h.deps.observe("record_activity", start, err) }()

	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("record_activity: validation failed: %w", err)
	}

	now := h.deps.Clock.Now()
	var (
		credit *ledgerCredit
		entry  *progress.ActivityLog
	)

	err = h.deps.transact(ctx, "record_activity", func(ctx context.Context, repos uow.Repositories) error {
		if err := requireUser(ctx, repos, cmd.UserID); err != nil {
			return err
		}

		log, err := progress.NewActivityLog(h.newID(), cmd.UserID, cmd.Type, cmd.PointsAwarded, cmd.Description, now)
		if err != nil {
			return err
		}

		c, err := h.deps.creditLedger(ctx, repos, cmd.UserID, cmd.PointsAwarded, now, func(e *progress.LedgerEntry) {
			e.CountActivity(cmd.Type)
		})
		if err != nil {
			return err
		}

		if err := repos.Activities.Append(ctx, log); err != nil {
			return err
		}

		credit, entry = c, log
		return nil
	})
	if err != nil {
		if shared.Classify(err) == shared.ClassPersistence {
			h.log.Error("record activity failed", logger.UserID(cmd.UserID), logger.Err(err))
		}
		return nil, fmt.Errorf("record_activity: %w", err)
	}

	events := []shared.Event{
		shared.NewActivityRecordedEvent(cmd.UserID, entry.ID, string(cmd.Type), cmd.PointsAwarded, now),
	}
	events = append(events, ledgerEvents(cmd.UserID, SourceActivity, credit, now)...)

	h.deps.recordCredit(SourceActivity, credit)
	h.deps.publish(events)

	if !cmd.Type.IsKnown() {
		h.log.Warn("activity type selects no counter", logger.ActivityType(string(cmd.Type)))
	}
	h.log.Info("activity recorded",
		logger.UserID(cmd.UserID),
		logger.ActivityType(string(cmd.Type)),
		logger.Points(cmd.PointsAwarded),
		logger.UserLevel(credit.Entry.Level),
	)

	return &RecordActivityResult{
		Entry:    credit.Entry,
		Activity: entry,
		Change:   credit.Change,
		Events:   events,
	}, nil
}
