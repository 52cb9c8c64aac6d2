package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stayhub/internal/domain/occupancy"
	"stayhub/internal/domain/property"
	"stayhub/internal/domain/shared/daterange"
)

// BookingRepository reads bookings written by the reservation system.
type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection("bookings")}
}

func (r *BookingRepository) FindActiveBookings(ctx context.Context, q occupancy.Query) ([]occupancy.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "check_in", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bookingFilter(q), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]occupancy.Booking, 0)
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toBooking())
	}
	return out, cur.Err()
}

// Save upserts a booking. Used to seed data.
func (r *BookingRepository) Save(ctx context.Context, b occupancy.Booking) error {
	doc := newBookingDocument(b)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func bookingFilter(q occupancy.Query) bson.M {
	statuses := make([]string, 0, len(occupancy.ActiveStatuses))
	for _, s := range occupancy.ActiveStatuses {
		statuses = append(statuses, string(s))
	}
	filter := overlapFilter(q, "check_in", "check_out")
	filter["status"] = bson.M{"$in": statuses}
	return filter
}

// overlapFilter selects documents of one property whose half-open span
// intersects the query window.
func overlapFilter(q occupancy.Query, startField, endField string) bson.M {
	filter := bson.M{
		"property_id": int64(q.PropertyID),
		startField:    bson.M{"$lt": q.Window.End},
		endField:      bson.M{"$gt": q.Window.Start},
	}
	if q.RoomCode != "" {
		filter["room_code"] = q.RoomCode
	}
	return filter
}

type bookingDocument struct {
	ID          int64     `bson:"_id"`
	PropertyID  int64     `bson:"property_id"`
	CheckIn     time.Time `bson:"check_in"`
	CheckOut    time.Time `bson:"check_out"`
	Status      string    `bson:"status"`
	RoomCode    string    `bson:"room_code,omitempty"`
	GuestName   string    `bson:"guest_name"`
	TotalAmount *float64  `bson:"total_amount,omitempty"`
}

func newBookingDocument(b occupancy.Booking) bookingDocument {
	return bookingDocument{
		ID:          b.ID,
		PropertyID:  int64(b.PropertyID),
		CheckIn:     b.Stay.Start.UTC(),
		CheckOut:    b.Stay.End.UTC(),
		Status:      string(b.Status),
		RoomCode:    b.RoomCode,
		GuestName:   b.GuestName,
		TotalAmount: b.TotalAmount,
	}
}

func (d bookingDocument) toBooking() occupancy.Booking {
	return occupancy.Booking{
		ID:          d.ID,
		PropertyID:  property.ID(d.PropertyID),
		Stay:        daterange.DateRange{Start: d.CheckIn.UTC(), End: d.CheckOut.UTC()},
		Status:      occupancy.BookingStatus(d.Status),
		RoomCode:    d.RoomCode,
		GuestName:   d.GuestName,
		TotalAmount: d.TotalAmount,
	}
}
