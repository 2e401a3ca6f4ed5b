// Package uow defines the transaction boundary used by the application layer.
//
// Every mutating operation runs inside UnitOfWork.Do: the repositories handed
// to fn share one atomic scope, so an award record and the matching points
// credit are committed together or not at all.
package uow

import (
	"context"

	"github.com/learnquest/rewards-engine/internal/domain/progress"
	"github.com/learnquest/rewards-engine/internal/domain/reward"
	"github.com/learnquest/rewards-engine/internal/domain/user"
)

// Repositories groups the repositories that participate in one scope.
type Repositories struct {
	Definitions reward.DefinitionRepository
	Awards      reward.AwardRepository
	Ledger      progress.LedgerRepository
	Activities  progress.ActivityRepository
	Users       user.Repository
}

// UnitOfWork runs functions atomically against a set of repositories.
type UnitOfWork interface {
	// Do runs fn in a transaction. A nil return commits, any error rolls back
	// every write made through repos and is returned unchanged.
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error

	// Repositories returns repositories outside any transaction, for reads.
	Repositories() Repositories
}
