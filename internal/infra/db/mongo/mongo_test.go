package mongo

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"stayhub/internal/app/uow"
	"stayhub/internal/domain/occupancy"
	"stayhub/internal/domain/property"
	"stayhub/internal/domain/shared/daterange"
)

var window = daterange.DateRange{
	Start: time.Date(2024, 8, 5, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, 8, 8, 0, 0, 0, 0, time.UTC),
}

func TestBookingFilterUsesActiveStatusesAndHalfOpenOverlap(t *testing.T) {
	f := bookingFilter(occupancy.Query{PropertyID: 3, RoomCode: "Single-1", Window: window})
	if f["property_id"] != int64(3) || f["room_code"] != "Single-1" {
		t.Fatalf("unexpected filter: %v", f)
	}
	if got := f["check_in"].(bson.M)["$lt"]; got != window.End {
		t.Fatalf("check_in must be before window end, got %v", got)
	}
	if got := f["check_out"].(bson.M)["$gt"]; got != window.Start {
		t.Fatalf("check_out must be after window start, got %v", got)
	}
	statuses := f["status"].(bson.M)["$in"].([]string)
	if len(statuses) != 3 || statuses[0] != "NEW" || statuses[2] != "CHECKED_IN" {
		t.Fatalf("unexpected statuses: %v", statuses)
	}
}

func TestBlockFilterExcludesBlock(t *testing.T) {
	f := blockFilter(occupancy.BlockQuery{Query: occupancy.Query{PropertyID: 3, Window: window}, ExcludeID: 9})
	if _, ok := f["room_code"]; ok {
		t.Fatalf("room filter must be absent without a code: %v", f)
	}
	if f["_id"].(bson.M)["$ne"] != int64(9) {
		t.Fatalf("expected exclusion, got %v", f["_id"])
	}
	if _, ok := blockFilter(occupancy.BlockQuery{Query: occupancy.Query{PropertyID: 3, Window: window}})["_id"]; ok {
		t.Fatal("no exclusion expected for id 0")
	}
}

func TestDocumentRoundTripKeepsFields(t *testing.T) {
	amount := 120.0
	b := occupancy.Booking{ID: 4, PropertyID: 2, Stay: window, Status: occupancy.StatusNew, RoomCode: "Double-1", GuestName: "Kai", TotalAmount: &amount}
	if got := newBookingDocument(b).toBooking(); got.ID != 4 || *got.TotalAmount != 120 || !got.Stay.Start.Equal(window.Start) {
		t.Fatalf("unexpected booking: %+v", got)
	}
	blk := &occupancy.Block{ID: 5, PropertyID: 2, Period: window, Source: "expedia", BedsBlocked: 2}
	if got := newBlockDocument(blk).toBlock(); got.ID != 5 || got.Beds() != 2 || got.Source != "expedia" {
		t.Fatalf("unexpected block: %+v", got)
	}
	p := property.Property{ID: 1, Name: "Loft", RoomsSpec: property.Document(`[{"roomType":"Loft"}]`)}
	got := readProperty(t, newPropertyDocument(p))
	if string(got.RoomsSpec) != string(p.RoomsSpec) || !got.Layout.Empty() {
		t.Fatalf("unexpected property: %+v", got)
	}
}

func TestWithoutSessionLeavesPlainContext(t *testing.T) {
	ctx := context.Background()
	if withoutSession(ctx) != ctx {
		t.Fatal("plain contexts should pass through")
	}
}

func TestBeginWithoutDatabase(t *testing.T) {
	if _, err := (Factory{}).Begin(context.Background(), uow.TxOptions{}); err != ErrUnitOfWorkNotConfigured {
		t.Fatalf("expected ErrUnitOfWorkNotConfigured, got %v", err)
	}
}

func readProperty(t *testing.T, doc any) *property.Property {
	t.Helper()
	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var rec propertyRecord
	if err := bson.Unmarshal(raw, &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return rec.toProperty()
}

func TestPropertyRecordAcceptsEmbeddedDocuments(t *testing.T) {
	got := readProperty(t, bson.M{
		"_id":        int64(1),
		"name":       "Harbour",
		"rooms_spec": bson.A{bson.M{"roomType": "Double", "roomsCount": int32(2)}},
		"layout": bson.M{"floors": bson.A{
			bson.M{"rooms": bson.A{bson.M{"code": "Single-1"}, bson.M{"code": "Single-2"}}},
		}},
	})

	types := property.ExtractRoomTypes(got.RoomsSpec, got.Layout, property.Filter{})
	if len(types) != 1 || types[0].Type != "Single" || types[0].Count != 2 {
		t.Fatalf("layout should win with two singles, got %+v (layout %s)", types, got.Layout)
	}
	fromSpec := property.ExtractRoomTypes(got.RoomsSpec, nil, property.Filter{})
	if len(fromSpec) != 1 || fromSpec[0].Type != "Double" || fromSpec[0].Count != 2 {
		t.Fatalf("embedded rooms spec not decoded: %+v (spec %s)", fromSpec, got.RoomsSpec)
	}
}

func TestPropertyRecordDegradesOnOddValues(t *testing.T) {
	got := readProperty(t, bson.M{"_id": int64(2), "rooms_spec": int32(7), "layout": nil})
	if !got.RoomsSpec.Empty() || !got.Layout.Empty() {
		t.Fatalf("unsupported values should read as absent: %+v", got)
	}
	types := property.ExtractRoomTypes(got.RoomsSpec, got.Layout, property.Filter{})
	if len(types) != 1 || types[0].Type != property.FallbackRoomType {
		t.Fatalf("expected fallback room type, got %+v", types)
	}
}
