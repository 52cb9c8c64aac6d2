package blocks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	availabilityhandlers "stayhub/internal/app/handlers/availability"
	domainavailability "stayhub/internal/domain/availability"
	"stayhub/internal/domain/occupancy"
	"stayhub/internal/domain/property"
	"stayhub/internal/domain/shared/daterange"
	"stayhub/internal/infra/storage/memory"
)

var fixedNow = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

func day(d int) time.Time {
	return time.Date(2024, 8, d, 0, 0, 0, 0, time.UTC)
}

type harness struct {
	factory  memory.Factory
	bookings *memory.BookingRepository
	blocks   *memory.BlockRepository
	outbox   *memory.Outbox
	place    *PlaceBlockHandler
	release  *ReleaseBlockHandler
}

func newHarness(t *testing.T) harness {
	t.Helper()
	props := memory.NewPropertyRepository()
	for _, p := range []property.Property{
		{ID: 1, Layout: property.Document(`{"floors":[{"rooms":[{"code":"Single-1"},{"code":"Single-2"},{"code":"Double-1"}]}]}`)},
		{ID: 2, RoomsSpec: property.Document(`[{"roomType":"Suite","roomsCount":1}]`)},
	} {
		if err := props.Save(context.Background(), p); err != nil {
			t.Fatalf("save property: %v", err)
		}
	}
	h := harness{
		bookings: memory.NewBookingRepository(),
		blocks:   memory.NewBlockRepository(),
		outbox:   memory.NewOutbox(),
	}
	h.factory = memory.Factory{PropertiesRepo: props, BookingsRepo: h.bookings, BlocksRepo: h.blocks}
	now := func() time.Time { return fixedNow }
	h.place = &PlaceBlockHandler{
		UoWFactory:   h.factory,
		Availability: availabilityhandlers.Evaluator{UoWFactory: h.factory},
		Outbox:       h.outbox,
		Now:          now,
	}
	h.release = &ReleaseBlockHandler{UoWFactory: h.factory, Outbox: h.outbox, Now: now}
	return h
}

func (h harness) book(t *testing.T, id int64, code string, from, to int) {
	t.Helper()
	err := h.bookings.Save(context.Background(), occupancy.Booking{
		ID:         id,
		PropertyID: 1,
		RoomCode:   code,
		Status:     occupancy.StatusConfirmed,
		Stay:       daterange.DateRange{Start: day(from), End: day(to)},
	})
	if err != nil {
		t.Fatalf("save booking: %v", err)
	}
}

func TestPlaceBlockStoresAndRecordsEvent(t *testing.T) {
	h := newHarness(t)
	res, err := h.place.Handle(context.Background(), PlaceBlockCommand{
		PropertyID: 1,
		RoomCode:   "Double-1",
		StartDate:  day(5),
		EndDate:    day(8),
		Source:     "airbnb",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.BlockID == 0 || res.BedsBlocked != 1 || res.Overbooked {
		t.Fatalf("unexpected result: %+v", res)
	}
	stored, err := h.blocks.ByID(context.Background(), res.BlockID)
	if err != nil {
		t.Fatalf("stored block: %v", err)
	}
	if stored.Source != "airbnb" || stored.RoomCode != "Double-1" {
		t.Fatalf("unexpected stored block: %+v", stored)
	}

	doc, err := h.outbox.Claim(context.Background(), "test")
	if err != nil || doc == nil {
		t.Fatalf("expected a pending event, got %v %v", doc, err)
	}
	if doc.Name != occupancy.BlockPlacedEvent || doc.Aggregate != "1" {
		t.Fatalf("unexpected event: %+v", doc)
	}
	var payload map[string]any
	if err := json.Unmarshal(doc.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["block_id"] != float64(res.BlockID) || payload["source"] != "airbnb" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if !doc.OccurredAt.Equal(fixedNow) {
		t.Fatalf("expected occurred_at %v, got %v", fixedNow, doc.OccurredAt)
	}
}

func TestPlaceBlockRejectsInvalidInput(t *testing.T) {
	h := newHarness(t)
	cases := []struct {
		name string
		cmd  PlaceBlockCommand
		want error
	}{
		{"empty range", PlaceBlockCommand{PropertyID: 1, StartDate: day(5), EndDate: day(5)}, domainavailability.ErrInvalidDateRange},
		{"reversed range", PlaceBlockCommand{PropertyID: 1, StartDate: day(6), EndDate: day(5)}, domainavailability.ErrInvalidDateRange},
		{"negative beds", PlaceBlockCommand{PropertyID: 1, StartDate: day(5), EndDate: day(6), BedsBlocked: -2}, occupancy.ErrInvalidBeds},
		{"no property", PlaceBlockCommand{StartDate: day(5), EndDate: day(6)}, occupancy.ErrPropertyMissing},
		{"unknown property", PlaceBlockCommand{PropertyID: 42, StartDate: day(5), EndDate: day(6)}, property.ErrPropertyNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.place.Handle(context.Background(), tc.cmd)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if h.outbox.Pending() != 0 {
		t.Fatalf("rejected commands must not emit events, pending=%d", h.outbox.Pending())
	}
}

func TestPlaceBlockRefusesWhenCapacityIsShort(t *testing.T) {
	h := newHarness(t)
	h.book(t, 1, "Single-1", 1, 10)
	h.book(t, 2, "Single-2", 1, 10)

	_, err := h.place.Handle(context.Background(), PlaceBlockCommand{
		PropertyID:  1,
		StartDate:   day(4),
		EndDate:     day(6),
		BedsBlocked: 2,
	})
	if !errors.Is(err, ErrInsufficientCapacity) {
		t.Fatalf("expected ErrInsufficientCapacity, got %v", err)
	}
	found, _ := h.blocks.FindBlocks(context.Background(), occupancy.BlockQuery{Query: occupancy.Query{PropertyID: 1, Window: daterange.DateRange{Start: day(1), End: day(30)}}})
	if len(found) != 0 {
		t.Fatalf("refused block must not be stored: %+v", found)
	}

	res, err := h.place.Handle(context.Background(), PlaceBlockCommand{
		PropertyID:    1,
		StartDate:     day(4),
		EndDate:       day(6),
		BedsBlocked:   2,
		AllowOverbook: true,
	})
	if err != nil {
		t.Fatalf("overbook should be accepted: %v", err)
	}
	if !res.Overbooked {
		t.Fatalf("expected overbooked flag, got %+v", res)
	}
}

func TestPlaceBlockChecksTheRequestedRoomOnly(t *testing.T) {
	h := newHarness(t)
	h.book(t, 1, "Single-1", 1, 10)

	_, err := h.place.Handle(context.Background(), PlaceBlockCommand{PropertyID: 1, RoomCode: "Single-1", StartDate: day(2), EndDate: day(3)})
	if !errors.Is(err, ErrInsufficientCapacity) {
		t.Fatalf("expected ErrInsufficientCapacity on an occupied room, got %v", err)
	}
	if _, err := h.place.Handle(context.Background(), PlaceBlockCommand{PropertyID: 1, RoomCode: "Single-2", StartDate: day(2), EndDate: day(3)}); err != nil {
		t.Fatalf("free room should accept a block: %v", err)
	}
}

func TestEditingBlockExcludesItselfFromCapacity(t *testing.T) {
	h := newHarness(t)
	first, err := h.place.Handle(context.Background(), PlaceBlockCommand{PropertyID: 2, StartDate: day(5), EndDate: day(8)})
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	_, err = h.place.Handle(context.Background(), PlaceBlockCommand{PropertyID: 2, StartDate: day(6), EndDate: day(9)})
	if !errors.Is(err, ErrInsufficientCapacity) {
		t.Fatalf("second block on a single room should fail, got %v", err)
	}

	moved, err := h.place.Handle(context.Background(), PlaceBlockCommand{PropertyID: 2, BlockID: first.BlockID, StartDate: day(6), EndDate: day(9), Source: "manual"})
	if err != nil {
		t.Fatalf("edit should not collide with itself: %v", err)
	}
	if moved.BlockID != first.BlockID || !moved.StartDate.Equal(day(6)) {
		t.Fatalf("unexpected edit result: %+v", moved)
	}
	stored, err := h.blocks.ByID(context.Background(), first.BlockID)
	if err != nil {
		t.Fatalf("stored block: %v", err)
	}
	if !stored.Period.End.Equal(day(9)) || stored.Source != "manual" {
		t.Fatalf("edit not persisted: %+v", stored)
	}
}

func TestEditingForeignBlockIsNotFound(t *testing.T) {
	h := newHarness(t)
	placed, err := h.place.Handle(context.Background(), PlaceBlockCommand{PropertyID: 2, StartDate: day(5), EndDate: day(8)})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	_, err = h.place.Handle(context.Background(), PlaceBlockCommand{PropertyID: 1, BlockID: placed.BlockID, StartDate: day(5), EndDate: day(8)})
	if !errors.Is(err, occupancy.ErrBlockNotFound) {
		t.Fatalf("expected ErrBlockNotFound, got %v", err)
	}
}

func TestReleaseBlock(t *testing.T) {
	h := newHarness(t)
	placed, err := h.place.Handle(context.Background(), PlaceBlockCommand{PropertyID: 1, RoomCode: "Double-1", StartDate: day(5), EndDate: day(8)})
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	if _, err := h.release.Handle(context.Background(), ReleaseBlockCommand{PropertyID: 2, BlockID: placed.BlockID}); !errors.Is(err, occupancy.ErrBlockNotFound) {
		t.Fatalf("release from another property should be not found, got %v", err)
	}

	res, err := h.release.Handle(context.Background(), ReleaseBlockCommand{PropertyID: 1, BlockID: placed.BlockID})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if !res.Released || res.BlockID != placed.BlockID {
		t.Fatalf("unexpected result: %+v", res)
	}
	if _, err := h.blocks.ByID(context.Background(), placed.BlockID); !errors.Is(err, occupancy.ErrBlockNotFound) {
		t.Fatalf("block should be gone, got %v", err)
	}
	if h.outbox.Pending() != 2 {
		t.Fatalf("expected placed and released events, pending=%d", h.outbox.Pending())
	}

	if _, err := h.release.Handle(context.Background(), ReleaseBlockCommand{PropertyID: 1, BlockID: placed.BlockID}); !errors.Is(err, occupancy.ErrBlockNotFound) {
		t.Fatalf("second release should be not found, got %v", err)
	}
}

func TestHandlersWithoutFactoryOrContextUnit(t *testing.T) {
	_, err := (&ReleaseBlockHandler{}).Handle(context.Background(), ReleaseBlockCommand{PropertyID: 1, BlockID: 1})
	if !errors.Is(err, ErrUnitOfWorkRequired) {
		t.Fatalf("expected ErrUnitOfWorkRequired, got %v", err)
	}
}
