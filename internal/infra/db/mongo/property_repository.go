package mongo

import (
	"context"
	"encoding/json"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stayhub/internal/domain/property"
)

type PropertyRepository struct {
	col *mongo.Collection
}

func NewPropertyRepository(db *mongo.Database) *PropertyRepository {
	return &PropertyRepository{col: db.Collection("properties")}
}

func (r *PropertyRepository) ByID(ctx context.Context, id property.ID) (*property.Property, error) {
	var doc propertyRecord
	if err := r.col.FindOne(ctx, bson.M{"_id": int64(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, property.ErrPropertyNotFound
		}
		return nil, err
	}
	return doc.toProperty(), nil
}

func (r *PropertyRepository) Save(ctx context.Context, p property.Property) error {
	doc := newPropertyDocument(p)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

// propertyDocument is the written shape: both room documents as raw JSON text.
type propertyDocument struct {
	ID        int64  `bson:"_id"`
	Name      string `bson:"name"`
	RoomsSpec string `bson:"rooms_spec,omitempty"`
	Layout    string `bson:"layout,omitempty"`
}

func newPropertyDocument(p property.Property) propertyDocument {
	return propertyDocument{
		ID:        int64(p.ID),
		Name:      p.Name,
		RoomsSpec: string(p.RoomsSpec),
		Layout:    string(p.Layout),
	}
}

// propertyRecord is the read shape. Other writers may store the room documents
// as JSON strings, embedded documents or arrays.
type propertyRecord struct {
	ID        int64         `bson:"_id"`
	Name      string        `bson:"name"`
	RoomsSpec bson.RawValue `bson:"rooms_spec,omitempty"`
	Layout    bson.RawValue `bson:"layout,omitempty"`
}

func (d propertyRecord) toProperty() *property.Property {
	return &property.Property{
		ID:        property.ID(d.ID),
		Name:      d.Name,
		RoomsSpec: documentFrom(d.RoomsSpec),
		Layout:    documentFrom(d.Layout),
	}
}

// documentFrom returns nil for values it cannot render, which the taxonomy
// treats as an absent document.
func documentFrom(v bson.RawValue) property.Document {
	switch v.Type {
	case bsontype.String:
		s, ok := v.StringValueOK()
		if !ok || s == "" {
			return nil
		}
		return property.Document(s)
	case bsontype.EmbeddedDocument, bsontype.Array:
		data, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: v}}, false, false)
		if err != nil {
			return nil
		}
		var wrapped struct {
			V json.RawMessage `json:"v"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil
		}
		return property.Document(wrapped.V)
	default:
		return nil
	}
}
