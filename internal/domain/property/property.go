package property

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
)

var (
	ErrPropertyNotFound = errors.New("property: not found")
	errNoDocument       = errors.New("property: empty document")
)

type ID int64

func (id ID) String() string { return strconv.FormatInt(int64(id), 10) }

// Property is the read-only inventory description the availability engine works from.
// RoomsSpec and Layout hold whatever the store returned for those columns.
type Property struct {
	ID        ID
	Name      string
	RoomsSpec Document
	Layout    Document
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Property, error)
}

// Document is a loosely shaped JSON column. Stores may hand back the value
// itself or a JSON string that wraps it; both decode the same way.
type Document []byte

func (d Document) Empty() bool {
	trimmed := bytes.TrimSpace(d)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func (d Document) decode(out any) error {
	if d.Empty() {
		return errNoDocument
	}
	raw := bytes.TrimSpace(d)
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return err
		}
		return Document(inner).decode(out)
	}
	return json.Unmarshal(raw, out)
}

// MarshalJSON keeps the stored bytes verbatim so fixtures and archives round-trip.
func (d Document) MarshalJSON() ([]byte, error) {
	if d.Empty() {
		return []byte("null"), nil
	}
	return bytes.TrimSpace(d), nil
}

func (d *Document) UnmarshalJSON(data []byte) error {
	*d = append((*d)[:0], data...)
	return nil
}
