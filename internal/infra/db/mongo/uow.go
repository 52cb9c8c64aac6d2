package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stayhub/internal/app/uow"
	"stayhub/internal/domain/occupancy"
	"stayhub/internal/domain/property"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	PropertiesRepo property.Repository
	BookingsRepo   occupancy.BookingRepository
	BlocksRepo     occupancy.BlockRepository
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction. Read-only units run without a
// session and detach from any session the caller's context carries.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	if opts.ReadOnly {
		return &Unit{
			properties: detachedProperties{f.PropertiesRepo},
			bookings:   detachedBookings{f.BookingsRepo},
			blocks:     detachedBlocks{f.BlocksRepo},
		}, nil
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		session:    session,
		properties: f.PropertiesRepo,
		bookings:   f.BookingsRepo,
		blocks:     f.BlocksRepo,
	}, nil
}

type Unit struct {
	session mongo.Session

	properties property.Repository
	bookings   occupancy.BookingRepository
	blocks     occupancy.BlockRepository
}

func (u *Unit) Properties() property.Repository {
	return u.properties
}

func (u *Unit) Bookings() occupancy.BookingRepository {
	return u.bookings
}

func (u *Unit) Blocks() occupancy.BlockRepository {
	return u.blocks
}

func (u *Unit) Commit(ctx context.Context) error {
	if u.session == nil {
		return nil
	}
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.session == nil {
		return nil
	}
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	if u.session == nil {
		return ctx
	}
	return mongo.NewSessionContext(ctx, u.session)
}

type detachedProperties struct{ property.Repository }

func (d detachedProperties) ByID(ctx context.Context, id property.ID) (*property.Property, error) {
	return d.Repository.ByID(withoutSession(ctx), id)
}

type detachedBookings struct{ occupancy.BookingRepository }

func (d detachedBookings) FindActiveBookings(ctx context.Context, q occupancy.Query) ([]occupancy.Booking, error) {
	return d.BookingRepository.FindActiveBookings(withoutSession(ctx), q)
}

type detachedBlocks struct{ occupancy.BlockRepository }

func (d detachedBlocks) FindBlocks(ctx context.Context, q occupancy.BlockQuery) ([]occupancy.Block, error) {
	return d.BlockRepository.FindBlocks(withoutSession(ctx), q)
}

func (d detachedBlocks) ByID(ctx context.Context, id int64) (*occupancy.Block, error) {
	return d.BlockRepository.ByID(withoutSession(ctx), id)
}
