package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stayhub/internal/app/uow"
	"stayhub/internal/domain/occupancy"
	"stayhub/internal/domain/property"
)

var ErrUnitOfWorkNotConfigured = errors.New("postgres: unit of work factory missing pool")

// Factory opens a transaction per writing unit. Read-only units query the pool
// directly so their repositories can be used concurrently.
type Factory struct {
	Pool *pgxpool.Pool
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Pool == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	if opts.ReadOnly {
		return newUnit(f.Pool, nil), nil
	}
	tx, err := f.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, err
	}
	return newUnit(tx, tx), nil
}

type Unit struct {
	tx         pgx.Tx
	properties PropertyRepository
	bookings   BookingRepository
	blocks     BlockRepository
}

func newUnit(db querier, tx pgx.Tx) *Unit {
	return &Unit{
		tx:         tx,
		properties: PropertyRepository{db: db},
		bookings:   BookingRepository{db: db},
		blocks:     BlockRepository{db: db},
	}
}

func (u *Unit) Properties() property.Repository       { return u.properties }
func (u *Unit) Bookings() occupancy.BookingRepository { return u.bookings }
func (u *Unit) Blocks() occupancy.BlockRepository     { return u.blocks }

func (u *Unit) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Commit(ctx)
}

// InjectContext lets stores outside the unit, such as the outbox, join its transaction.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	if u.tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey{}, u.tx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	err := u.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

type txKey struct{}

// querierFrom returns the transaction injected into ctx, or the pool.
func querierFrom(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}
