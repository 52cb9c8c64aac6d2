package memory

import (
	"context"
	"errors"

	"stayhub/internal/app/uow"
	"stayhub/internal/domain/occupancy"
	"stayhub/internal/domain/property"
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	PropertiesRepo property.Repository
	BookingsRepo   occupancy.BookingRepository
	BlocksRepo     occupancy.BlockRepository
}

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Begin starts a lightweight transaction boundary. No isolation is provided but
// the abstraction matches the application ports.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.PropertiesRepo == nil || f.BookingsRepo == nil || f.BlocksRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{properties: f.PropertiesRepo, bookings: f.BookingsRepo, blocks: f.BlocksRepo}, nil
}

type Unit struct {
	properties property.Repository
	bookings   occupancy.BookingRepository
	blocks     occupancy.BlockRepository
}

func (u *Unit) Properties() property.Repository       { return u.properties }
func (u *Unit) Bookings() occupancy.BookingRepository { return u.bookings }
func (u *Unit) Blocks() occupancy.BlockRepository     { return u.blocks }
func (u *Unit) Commit(ctx context.Context) error      { return nil }
func (u *Unit) Rollback(ctx context.Context) error    { return nil }
