package availability

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"stayhub/internal/app/dto"
	"stayhub/internal/app/queries"
	"stayhub/internal/app/uow"
	domainavailability "stayhub/internal/domain/availability"
	"stayhub/internal/domain/occupancy"
	"stayhub/internal/domain/property"
	"stayhub/internal/domain/shared/daterange"
)

const getAvailabilityKey = "availability.get"

type GetAvailabilityQuery struct {
	PropertyID      int64
	StartDate       time.Time
	EndDate         time.Time
	RoomCode        string
	RoomTypePattern string
	ExcludeBlockID  int64
}

func (q GetAvailabilityQuery) Key() string { return getAvailabilityKey }

func (q GetAvailabilityQuery) Request() domainavailability.Request {
	return domainavailability.Request{
		PropertyID:      property.ID(q.PropertyID),
		Window:          daterange.DateRange{Start: q.StartDate.UTC(), End: q.EndDate.UTC()},
		RoomCode:        q.RoomCode,
		RoomTypePattern: q.RoomTypePattern,
		ExcludeBlockID:  q.ExcludeBlockID,
	}
}

type GetAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetAvailabilityHandler) Handle(ctx context.Context, q GetAvailabilityQuery) (dto.AvailabilityReport, error) {
	req := q.Request()
	if err := req.Validate(); err != nil {
		return dto.AvailabilityReport{}, err
	}
	unit, ok := uow.FromContext(ctx)
	if !ok {
		if h.UoWFactory == nil {
			return dto.AvailabilityReport{}, uow.ErrUnitOfWorkMissing
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
		if err != nil {
			return dto.AvailabilityReport{}, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		defer unit.Rollback(ctx)
	}

	report, err := Evaluate(ctx, unit, req)
	if err != nil {
		return dto.AvailabilityReport{}, err
	}
	return dto.MapAvailability(report), nil
}

// Evaluator computes reports on a fresh read-only unit of work, independent of
// any transaction the caller holds.
type Evaluator struct {
	UoWFactory uow.UoWFactory
}

func (e Evaluator) Evaluate(ctx context.Context, req domainavailability.Request) (domainavailability.Report, error) {
	if err := req.Validate(); err != nil {
		return domainavailability.Report{}, err
	}
	if e.UoWFactory == nil {
		return domainavailability.Report{}, uow.ErrUnitOfWorkMissing
	}
	unit, err := e.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return domainavailability.Report{}, err
	}
	defer unit.Rollback(ctx)
	return Evaluate(ctx, unit, req)
}

// Evaluate resolves the property, then fetches bookings and blocks
// concurrently and hands both lists to the engine once they are in.
// The unit must tolerate concurrent reads.
func Evaluate(ctx context.Context, unit uow.UnitOfWork, req domainavailability.Request) (domainavailability.Report, error) {
	if err := req.Validate(); err != nil {
		return domainavailability.Report{}, err
	}
	prop, err := unit.Properties().ByID(ctx, req.PropertyID)
	if err != nil {
		return domainavailability.Report{}, err
	}

	var (
		bookings []occupancy.Booking
		blocks   []occupancy.Block
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bookings, err = unit.Bookings().FindActiveBookings(gctx, req.BookingQuery())
		return err
	})
	g.Go(func() error {
		var err error
		blocks, err = unit.Blocks().FindBlocks(gctx, req.BlockQuery())
		return err
	})
	if err := g.Wait(); err != nil {
		return domainavailability.Report{}, err
	}

	return domainavailability.Compute(req, prop, bookings, blocks)
}

var _ queries.Handler[GetAvailabilityQuery, dto.AvailabilityReport] = (*GetAvailabilityHandler)(nil)
