package blocks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stayhub/internal/app/commands"
	"stayhub/internal/app/dto"
	"stayhub/internal/app/middleware"
	"stayhub/internal/app/outbox"
	"stayhub/internal/app/uow"
	domainavailability "stayhub/internal/domain/availability"
	"stayhub/internal/domain/occupancy"
	"stayhub/internal/domain/property"
	"stayhub/internal/domain/shared/daterange"
)

const placeBlockKey = "blocks.place"

var (
	ErrInsufficientCapacity = errors.New("blocks: insufficient capacity")
	ErrUnitOfWorkRequired   = errors.New("blocks: unit of work required")
)

// AvailabilityPort computes a report outside the command's own transaction.
type AvailabilityPort interface {
	Evaluate(ctx context.Context, req domainavailability.Request) (domainavailability.Report, error)
}

// PlaceBlockCommand creates a block, or replaces block BlockID when it is set.
type PlaceBlockCommand struct {
	PropertyID  int64
	BlockID     int64
	RoomCode    string
	StartDate   time.Time
	EndDate     time.Time
	Source      string
	BedsBlocked int
	// AllowOverbook records the block even when it exceeds remaining capacity.
	// Reservations taken on other channels already happened and are never refused.
	AllowOverbook   bool
	IdempotencyKeyV string
}

func (c PlaceBlockCommand) Key() string { return placeBlockKey }

func (c PlaceBlockCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c PlaceBlockCommand) ResultPrototype() any { return &dto.PlaceBlockResult{} }

type PlaceBlockHandler struct {
	UoWFactory   uow.UoWFactory
	Availability AvailabilityPort
	Outbox       outbox.Outbox
	Encoder      outbox.EventEncoder
	Now          func() time.Time
}

func (h *PlaceBlockHandler) Handle(ctx context.Context, cmd PlaceBlockCommand) (*dto.PlaceBlockResult, error) {
	period, err := daterange.New(cmd.StartDate, cmd.EndDate)
	if err != nil {
		return nil, domainavailability.ErrInvalidDateRange
	}
	block, err := occupancy.NewBlock(occupancy.PlaceParams{
		ID:          cmd.BlockID,
		PropertyID:  property.ID(cmd.PropertyID),
		Period:      period,
		RoomCode:    cmd.RoomCode,
		Source:      cmd.Source,
		BedsBlocked: cmd.BedsBlocked,
	})
	if err != nil {
		return nil, err
	}

	unit, ctx, finish, err := acquireUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer finish.rollback(ctx)

	if cmd.BlockID != 0 {
		if _, err := ownedBlock(ctx, unit, block.PropertyID, cmd.BlockID); err != nil {
			return nil, err
		}
	}

	if h.Availability == nil {
		return nil, errors.New("blocks: availability port required")
	}
	report, err := h.Availability.Evaluate(ctx, domainavailability.Request{
		PropertyID:     block.PropertyID,
		Window:         period,
		RoomCode:       block.RoomCode,
		ExcludeBlockID: cmd.BlockID,
	})
	if err != nil {
		return nil, err
	}
	free := report.Summary.TotalAvailableRooms
	overbooked := free < block.Beds()
	if overbooked && !cmd.AllowOverbook {
		return nil, fmt.Errorf("%w: %d room(s) free, %d requested", ErrInsufficientCapacity, free, block.Beds())
	}

	if err := unit.Blocks().Save(ctx, block); err != nil {
		return nil, err
	}
	block.Placed(h.now())
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, block.Drain()); err != nil {
		return nil, err
	}
	if err := finish.commit(ctx); err != nil {
		return nil, err
	}

	return &dto.PlaceBlockResult{
		BlockID:     block.ID,
		PropertyID:  int64(block.PropertyID),
		RoomCode:    block.RoomCode,
		StartDate:   block.Period.Start,
		EndDate:     block.Period.End,
		Source:      block.Source,
		BedsBlocked: block.Beds(),
		Overbooked:  overbooked,
	}, nil
}

func (h *PlaceBlockHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

// ownedBlock loads a block and hides blocks of other properties.
func ownedBlock(ctx context.Context, unit uow.UnitOfWork, propertyID property.ID, id int64) (*occupancy.Block, error) {
	existing, err := unit.Blocks().ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.PropertyID != propertyID {
		return nil, occupancy.ErrBlockNotFound
	}
	return existing, nil
}

// managedUnit tracks a unit of work this handler began itself. A unit taken
// from the context belongs to the transaction middleware.
type managedUnit struct {
	unit      uow.UnitOfWork
	committed bool
}

func acquireUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, *managedUnit, error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return unit, ctx, &managedUnit{}, nil
	}
	if factory == nil {
		return nil, ctx, nil, ErrUnitOfWorkRequired
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, ctx, nil, err
	}
	return unit, uow.ContextWithUnitOfWork(ctx, unit), &managedUnit{unit: unit}, nil
}

func (m *managedUnit) commit(ctx context.Context) error {
	if m.unit == nil {
		return nil
	}
	if err := m.unit.Commit(ctx); err != nil {
		return err
	}
	m.committed = true
	return nil
}

func (m *managedUnit) rollback(ctx context.Context) {
	if m.unit == nil || m.committed {
		return
	}
	_ = m.unit.Rollback(ctx)
}

var _ commands.Handler[PlaceBlockCommand, *dto.PlaceBlockResult] = (*PlaceBlockHandler)(nil)
var _ middleware.IdempotentCommand = PlaceBlockCommand{}
