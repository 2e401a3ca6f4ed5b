package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/learnquest/rewards-engine/internal/application/uow"
)

// UnitOfWork implements uow.UnitOfWork with one database transaction per call.
type UnitOfWork struct {
	conn *Connection
	opts TxOptions
}

// NewUnitOfWork creates a unit of work over conn.
func NewUnitOfWork(conn *Connection) *UnitOfWork {
	return &UnitOfWork{conn: conn, opts: DefaultTxOptions()}
}

// Do implements uow.UnitOfWork.
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos uow.Repositories) error) error {
	return u.conn.WithTx(ctx, u.opts, func(tx pgx.Tx) error {
		return fn(ctx, Repositories(tx))
	})
}

// Repositories implements uow.UnitOfWork.
func (u *UnitOfWork) Repositories() uow.Repositories {
	return Repositories(u.conn)
}

// Repositories builds every repository over q.
func Repositories(q Querier) uow.Repositories {
	return uow.Repositories{
		Definitions: NewDefinitionRepository(q),
		Awards:      NewAwardRepository(q),
		Ledger:      NewLedgerRepository(q),
		Activities:  NewActivityRepository(q),
		Users:       NewUserRepository(q),
	}
}

var _ uow.UnitOfWork = (*UnitOfWork)(nil)
