package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stayhub/internal/domain/occupancy"
	"stayhub/internal/domain/property"
	"stayhub/internal/domain/shared/daterange"
)

const blockSequence = "room_blocks"

type BlockRepository struct {
	col      *mongo.Collection
	counters *mongo.Collection
}

func NewBlockRepository(db *mongo.Database) *BlockRepository {
	return &BlockRepository{col: db.Collection("room_blocks"), counters: db.Collection("counters")}
}

func (r *BlockRepository) FindBlocks(ctx context.Context, q occupancy.BlockQuery) ([]occupancy.Block, error) {
	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, blockFilter(q), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]occupancy.Block, 0)
	for cur.Next(ctx) {
		var doc blockDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toBlock())
	}
	return out, cur.Err()
}

func (r *BlockRepository) ByID(ctx context.Context, id int64) (*occupancy.Block, error) {
	var doc blockDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, occupancy.ErrBlockNotFound
		}
		return nil, err
	}
	b := doc.toBlock()
	return &b, nil
}

func (r *BlockRepository) Save(ctx context.Context, b *occupancy.Block) error {
	if b.ID == 0 {
		id, err := r.nextID(ctx)
		if err != nil {
			return err
		}
		b.ID = id
	}
	doc := newBlockDocument(b)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *BlockRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return occupancy.ErrBlockNotFound
	}
	return nil
}

func (r *BlockRepository) nextID(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx, bson.M{"_id": blockSequence}, bson.M{"$inc": bson.M{"seq": int64(1)}}, opts).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("mongo: next block id: %w", err)
	}
	return counter.Seq, nil
}

func blockFilter(q occupancy.BlockQuery) bson.M {
	filter := overlapFilter(q.Query, "start_date", "end_date")
	if q.ExcludeID != 0 {
		filter["_id"] = bson.M{"$ne": q.ExcludeID}
	}
	return filter
}

type blockDocument struct {
	ID          int64     `bson:"_id"`
	PropertyID  int64     `bson:"property_id"`
	StartDate   time.Time `bson:"start_date"`
	EndDate     time.Time `bson:"end_date"`
	RoomCode    string    `bson:"room_code,omitempty"`
	Source      string    `bson:"source,omitempty"`
	BedsBlocked int       `bson:"beds_blocked"`
}

func newBlockDocument(b *occupancy.Block) blockDocument {
	return blockDocument{
		ID:          b.ID,
		PropertyID:  int64(b.PropertyID),
		StartDate:   b.Period.Start.UTC(),
		EndDate:     b.Period.End.UTC(),
		RoomCode:    b.RoomCode,
		Source:      b.Source,
		BedsBlocked: b.BedsBlocked,
	}
}

func (d blockDocument) toBlock() occupancy.Block {
	return occupancy.Block{
		ID:          d.ID,
		PropertyID:  property.ID(d.PropertyID),
		Period:      daterange.DateRange{Start: d.StartDate.UTC(), End: d.EndDate.UTC()},
		RoomCode:    d.RoomCode,
		Source:      d.Source,
		BedsBlocked: d.BedsBlocked,
	}
}
