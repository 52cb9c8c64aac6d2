package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"stayhub/internal/app/uow"
	domainavailability "stayhub/internal/domain/availability"
	"stayhub/internal/domain/occupancy"
	"stayhub/internal/domain/property"
	"stayhub/internal/domain/shared/daterange"
	"stayhub/internal/infra/storage/memory"
)

func day(d int) time.Time {
	return time.Date(2024, 8, d, 0, 0, 0, 0, time.UTC)
}

func span(from, to int) daterange.DateRange {
	return daterange.DateRange{Start: day(from), End: day(to)}
}

type fixture struct {
	factory  memory.Factory
	bookings *memory.BookingRepository
	blocks   *memory.BlockRepository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	props := memory.NewPropertyRepository()
	bookings := memory.NewBookingRepository()
	blocks := memory.NewBlockRepository()
	err := props.Save(ctx, property.Property{
		ID:     1,
		Layout: property.Document(`{"floors":[{"rooms":[{"code":"Single-1"},{"code":"Single-2"},{"code":"Double-1"}]}]}`),
	})
	if err != nil {
		t.Fatalf("save property: %v", err)
	}
	return fixture{
		factory:  memory.Factory{PropertiesRepo: props, BookingsRepo: bookings, BlocksRepo: blocks},
		bookings: bookings,
		blocks:   blocks,
	}
}

func (f fixture) addBooking(t *testing.T, b occupancy.Booking) {
	t.Helper()
	b.PropertyID = 1
	if err := f.bookings.Save(context.Background(), b); err != nil {
		t.Fatalf("save booking: %v", err)
	}
}

func (f fixture) addBlock(t *testing.T, b occupancy.Block) int64 {
	t.Helper()
	b.PropertyID = 1
	if err := f.blocks.Save(context.Background(), &b); err != nil {
		t.Fatalf("save block: %v", err)
	}
	return b.ID
}

func (f fixture) ask(t *testing.T, q GetAvailabilityQuery) (domainavailability.Report, error) {
	t.Helper()
	unit, err := f.factory.Begin(context.Background(), uow.TxOptions{ReadOnly: true})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return Evaluate(context.Background(), unit, q.Request())
}

func TestHandleReturnsScenarioReport(t *testing.T) {
	f := newFixture(t)
	f.addBooking(t, occupancy.Booking{ID: 1, RoomCode: "Single-1", Status: occupancy.StatusConfirmed, Stay: span(1, 20), GuestName: "Lin"})
	f.addBlock(t, occupancy.Block{RoomCode: "Double-1", BedsBlocked: 1, Period: span(1, 20), Source: "booking.com"})

	h := &GetAvailabilityHandler{UoWFactory: f.factory}
	report, err := h.Handle(context.Background(), GetAvailabilityQuery{PropertyID: 1, StartDate: day(5), EndDate: day(8)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	single := report.ByRoomType["Single"]
	if single.TotalRooms != 2 || single.BookedRooms != 1 || single.AvailableRooms != 1 || single.AvailabilityPercentage != 50 {
		t.Fatalf("unexpected Single: %+v", single)
	}
	double := report.ByRoomType["Double"]
	if double.TotalRooms != 1 || double.BlockedRooms != 1 || double.AvailableRooms != 0 || double.AvailabilityPercentage != 0 {
		t.Fatalf("unexpected Double: %+v", double)
	}
	if report.Summary.TotalRooms != 3 || report.Summary.TotalAvailableRooms != 1 {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}
	if report.DateRange.Nights != 3 || !report.HasConflicts || len(report.Conflicts) != 2 {
		t.Fatalf("unexpected range or conflicts: %+v", report)
	}
	if report.Conflicts[0].Type != "booking" || report.Conflicts[1].Type != "block" {
		t.Fatalf("bookings should precede blocks: %+v", report.Conflicts)
	}
}

func TestHandleRejectsInvalidRangeBeforeLookup(t *testing.T) {
	h := &GetAvailabilityHandler{}
	_, err := h.Handle(context.Background(), GetAvailabilityQuery{PropertyID: 1, StartDate: day(5), EndDate: day(5)})
	if !errors.Is(err, domainavailability.ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
}

func TestHandleUnknownProperty(t *testing.T) {
	f := newFixture(t)
	h := &GetAvailabilityHandler{UoWFactory: f.factory}
	_, err := h.Handle(context.Background(), GetAvailabilityQuery{PropertyID: 99, StartDate: day(5), EndDate: day(6)})
	if !errors.Is(err, property.ErrPropertyNotFound) {
		t.Fatalf("expected ErrPropertyNotFound, got %v", err)
	}
}

func TestBoundaryTouchingOccupantsDoNotCount(t *testing.T) {
	f := newFixture(t)
	f.addBooking(t, occupancy.Booking{ID: 1, RoomCode: "Single-1", Status: occupancy.StatusConfirmed, Stay: span(1, 5)})
	f.addBooking(t, occupancy.Booking{ID: 2, RoomCode: "Single-2", Status: occupancy.StatusNew, Stay: span(8, 12)})
	f.addBlock(t, occupancy.Block{RoomCode: "Double-1", Period: span(2, 5)})
	f.addBooking(t, occupancy.Booking{ID: 3, RoomCode: "Single-2", Status: occupancy.StatusCancelled, Stay: span(5, 8)})

	report, err := f.ask(t, GetAvailabilityQuery{PropertyID: 1, StartDate: day(5), EndDate: day(8)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Summary.TotalAvailableRooms != 3 || report.HasConflicts() {
		t.Fatalf("expected a free property, got %+v", report.Summary)
	}

	report, err = f.ask(t, GetAvailabilityQuery{PropertyID: 1, StartDate: day(4), EndDate: day(9)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Summary.TotalBookedRooms != 2 || report.Summary.TotalBlockedRooms != 1 {
		t.Fatalf("expected overlapping occupants to count: %+v", report.Summary)
	}
}

func TestExcludeBlockRemovesExactlyThatBlock(t *testing.T) {
	f := newFixture(t)
	f.addBlock(t, occupancy.Block{RoomCode: "Single-1", Period: span(1, 10)})
	target := f.addBlock(t, occupancy.Block{RoomCode: "Single-2", Period: span(3, 6)})

	q := GetAvailabilityQuery{PropertyID: 1, StartDate: day(4), EndDate: day(5)}
	without, err := f.ask(t, q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q.ExcludeBlockID = target
	with, err := f.ask(t, q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := without.Summary.TotalBlockedRooms - with.Summary.TotalBlockedRooms; diff != 1 {
		t.Fatalf("expected exclusion to remove one blocked room, removed %d", diff)
	}
	if diff := without.ByRoomType["Single"].BlockedRooms - with.ByRoomType["Single"].BlockedRooms; diff != 1 {
		t.Fatalf("expected exclusion to remove one blocked room from Single, removed %d", diff)
	}
}

func TestRoomCodeFilterNarrowsFetch(t *testing.T) {
	f := newFixture(t)
	f.addBooking(t, occupancy.Booking{ID: 1, RoomCode: "Single-1", Status: occupancy.StatusConfirmed, Stay: span(1, 10)})
	f.addBooking(t, occupancy.Booking{ID: 2, Status: occupancy.StatusConfirmed, Stay: span(1, 10)})

	report, err := f.ask(t, GetAvailabilityQuery{PropertyID: 1, StartDate: day(2), EndDate: day(3), RoomCode: "Single-2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.ByRoomType) != 1 {
		t.Fatalf("expected a single entry, got %+v", report.ByRoomType)
	}
	if _, ok := report.ByRoomType[domainavailability.UnassignedRoomType]; ok {
		t.Fatal("unassigned bucket must not appear under a room code filter")
	}
	if report.Summary.TotalAvailableRooms != 1 || report.HasConflicts() {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}
}

func TestEvaluatorUsesOwnReadOnlyUnit(t *testing.T) {
	f := newFixture(t)
	rec := &recordingFactory{inner: f.factory}
	report, err := Evaluator{UoWFactory: rec}.Evaluate(context.Background(), domainavailability.Request{PropertyID: 1, Window: span(1, 2)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Summary.TotalRooms != 3 {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}
	if len(rec.opts) != 1 || !rec.opts[0].ReadOnly {
		t.Fatalf("expected one read-only unit, got %+v", rec.opts)
	}
}

type recordingFactory struct {
	inner uow.UoWFactory
	opts  []uow.TxOptions
}

func (r *recordingFactory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	r.opts = append(r.opts, opts)
	return r.inner.Begin(ctx, opts)
}

type failingBlocks struct {
	occupancy.BlockRepository
	err error
}

func (f failingBlocks) FindBlocks(context.Context, occupancy.BlockQuery) ([]occupancy.Block, error) {
	return nil, f.err
}

func TestStoreFailurePropagates(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("store down")
	factory := f.factory
	factory.BlocksRepo = failingBlocks{BlockRepository: f.blocks, err: boom}
	h := &GetAvailabilityHandler{UoWFactory: factory}
	_, err := h.Handle(context.Background(), GetAvailabilityQuery{PropertyID: 1, StartDate: day(1), EndDate: day(2)})
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}
