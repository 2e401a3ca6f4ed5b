package command

import (
	"context"
	"fmt"
	"time"

	"github.com/learnquest/rewards-engine/internal/application/uow"
	"github.com/learnquest/rewards-engine/internal/domain/progress"
	"github.com/learnquest/rewards-engine/internal/domain/shared"
	"github.com/learnquest/rewards-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREDIT POINTS COMMAND
// Adds points to a user's ledger and recomputes the level from the new total.
// ══════════════════════════════════════════════════════════════════════════════

// Credit sources reported on PointsCredited events.
const (
	SourceCredit   = "credit"
	SourceActivity = "activity"
	SourceReward   = "reward"
)

// CreditPointsCommand contains the data to credit points.
type CreditPointsCommand struct {
	UserID string
	Amount int64
}

// CreditPointsResult contains the updated ledger entry.
type CreditPointsResult struct {
	Entry    *progress.LedgerEntry
	Change   progress.Change
	Events   []shared.Event
	Credited time.Time
}

// CreditPointsHandler handles CreditPointsCommand.
type CreditPointsHandler struct {
	deps Deps
	log  *logger.Logger
}

// NewCreditPointsHandler creates a new CreditPointsHandler.
func NewCreditPointsHandler(deps Deps) *CreditPointsHandler {
	deps = deps.withDefaults()
	return &CreditPointsHandler{
		deps: deps,
		log:  deps.Logger.With(logger.Component("credit_points")),
	}
}

// Handle executes the command.
func (h *CreditPointsHandler) Handle(ctx context.Context, cmd CreditPointsCommand) (result *CreditPointsResult, err error) {
	start := time.Now()
	defer func() { h.deps.observe("credit_points", start, err) }()

	if err := progress.ValidateAmount(cmd.Amount); err != nil {
		return nil, fmt.Errorf("credit_points: %w", err)
	}

	now := h.deps.Clock.Now()
	var credit *ledgerCredit

	err = h.deps.transact(ctx, "credit_points", func(ctx context.Context, repos uow.Repositories) error {
		if err := requireUser(ctx, repos, cmd.UserID); err != nil {
			return err
		}
		c, err := h.deps.creditLedger(ctx, repos, cmd.UserID, cmd.Amount, now, nil)
		if err != nil {
			return err
		}
		credit = c
		return nil
	})
	if err != nil {
		h.logFailure(cmd, err)
		return nil, fmt.Errorf("credit_points: %w", err)
	}

	events := ledgerEvents(cmd.UserID, SourceCredit, credit, now)
	h.deps.recordCredit(SourceCredit, credit)
	h.deps.publish(events)

	h.log.Info("points credited",
		logger.UserID(cmd.UserID),
		logger.Points(cmd.Amount),
		logger.Int64("total", credit.Entry.Points),
		logger.UserLevel(credit.Entry.Level),
	)

	return &CreditPointsResult{
		Entry:    credit.Entry,
		Change:   credit.Change,
		Events:   events,
		Credited: now,
	}, nil
}

func (h *CreditPointsHandler) logFailure(cmd CreditPointsCommand, err error) {
	if shared.Classify(err) == shared.ClassPersistence {
		h.log.Error("credit points failed", logger.UserID(cmd.UserID), logger.Err(err))
	}
}
