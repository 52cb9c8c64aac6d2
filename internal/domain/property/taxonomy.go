package property

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const FallbackRoomType = "Room"

var roomPrefix = regexp.MustCompile(`^([A-Za-z]+)`)

// RoomType is derived per call and never persisted.
type RoomType struct {
	Type  string
	Count int
	Codes []string
}

// Filter narrows the extracted room types. RoomCode wins over RoomTypePattern.
type Filter struct {
	RoomCode        string
	RoomTypePattern string
}

// ExtractRoomTypes derives room types from the layout when it yields any,
// otherwise from the rooms specification, otherwise a single generic room.
func ExtractRoomTypes(roomsSpec, layout Document, filter Filter) []RoomType {
	types, ok := fromLayout(layout)
	if !ok {
		types, ok = fromRoomsSpec(roomsSpec)
		if !ok {
			types = []RoomType{fallbackRoomType(filter.RoomCode)}
		}
	}

	switch {
	case filter.RoomCode != "":
		return narrowToCode(types, filter.RoomCode)
	case filter.RoomTypePattern != "":
		return narrowToPattern(types, filter.RoomTypePattern)
	default:
		return types
	}
}

func fallbackRoomType(roomCode string) RoomType {
	code := FallbackRoomType + "-1"
	if roomCode != "" {
		code = roomCode
	}
	return RoomType{Type: FallbackRoomType, Count: 1, Codes: []string{code}}
}

type layoutDoc struct {
	Floors []json.RawMessage `json:"floors"`
}

type layoutRoom struct {
	Code string `json:"code"`
}

type layoutFloor struct {
	Rooms []layoutRoom `json:"rooms"`
}

func fromLayout(doc Document) ([]RoomType, bool) {
	var layout layoutDoc
	if err := doc.decode(&layout); err != nil {
		return nil, false
	}
	acc := newAccumulator()
	for _, rawFloor := range layout.Floors {
		for _, room := range floorRooms(rawFloor) {
			match := roomPrefix.FindStringSubmatch(room.Code)
			if match == nil {
				continue
			}
			acc.add(match[1], 1, []string{room.Code})
		}
	}
	types := acc.result()
	return types, len(types) > 0
}

// floorRooms accepts a floor written either as a bare list of rooms or as {"rooms": [...]}.
func floorRooms(raw json.RawMessage) []layoutRoom {
	var rooms []layoutRoom
	if err := json.Unmarshal(raw, &rooms); err == nil {
		return rooms
	}
	var floor layoutFloor
	if err := json.Unmarshal(raw, &floor); err == nil {
		return floor.Rooms
	}
	return nil
}

type specEntry struct {
	RoomType   string   `json:"roomType"`
	Type       string   `json:"type"`
	RoomsCount *flexInt `json:"roomsCount"`
	Count      *flexInt `json:"count"`
	Code       string   `json:"code"`
	Codes      []string `json:"codes"`
}

func (e specEntry) name() string {
	if e.RoomType != "" {
		return e.RoomType
	}
	return e.Type
}

// units applies the "absent or non-positive means one" rule.
func (e specEntry) units() int {
	for _, v := range []*flexInt{e.RoomsCount, e.Count} {
		if v != nil && *v > 0 {
			return int(*v)
		}
	}
	return 1
}

func (e specEntry) codes(name string, units int) []string {
	if len(e.Codes) > 0 {
		return append([]string(nil), e.Codes...)
	}
	if e.Code != "" {
		return []string{e.Code}
	}
	out := make([]string, units)
	for i := range out {
		out[i] = fmt.Sprintf("%s-%d", name, i+1)
	}
	return out
}

// fromRoomsSpec reports ok=false only when the document is missing or malformed;
// a well-formed empty list is a property with no rooms.
func fromRoomsSpec(doc Document) ([]RoomType, bool) {
	entries, err := decodeSpecEntries(doc)
	if err != nil {
		return nil, false
	}
	acc := newAccumulator()
	for _, entry := range entries {
		name := entry.name()
		if name == "" {
			continue
		}
		units := entry.units()
		acc.add(name, units, entry.codes(name, units))
	}
	return acc.result(), true
}

func decodeSpecEntries(doc Document) ([]specEntry, error) {
	var list []specEntry
	if err := doc.decode(&list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Rooms *[]specEntry `json:"rooms"`
	}
	if err := doc.decode(&wrapped); err != nil {
		return nil, err
	}
	if wrapped.Rooms == nil {
		return nil, errNoDocument
	}
	return *wrapped.Rooms, nil
}

func narrowToCode(types []RoomType, code string) []RoomType {
	out := make([]RoomType, 0, 1)
	for _, t := range types {
		var matched []string
		for _, c := range t.Codes {
			if c == code {
				matched = append(matched, c)
			}
		}
		if len(matched) == 0 {
			continue
		}
		out = append(out, RoomType{Type: t.Type, Count: len(matched), Codes: matched})
	}
	return out
}

func narrowToPattern(types []RoomType, pattern string) []RoomType {
	needle := strings.ToLower(pattern)
	out := make([]RoomType, 0, len(types))
	for _, t := range types {
		if strings.Contains(strings.ToLower(t.Type), needle) {
			out = append(out, t)
		}
	}
	return out
}

// accumulator groups by type name in first-seen order.
type accumulator struct {
	index map[string]int
	types []RoomType
}

func newAccumulator() *accumulator {
	return &accumulator{index: make(map[string]int)}
}

func (a *accumulator) add(name string, count int, codes []string) {
	i, ok := a.index[name]
	if !ok {
		i = len(a.types)
		a.index[name] = i
		a.types = append(a.types, RoomType{Type: name})
	}
	a.types[i].Count += count
	a.types[i].Codes = append(a.types[i].Codes, codes...)
}

func (a *accumulator) result() []RoomType {
	return a.types
}

// flexInt accepts 3, 3.0 and "3".
// MaxRoomsPerEntry bounds a single rooms spec count. Larger values read as absent.
const MaxRoomsPerEntry = 10000

type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var n json.Number
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*f = 0
			return nil
		}
		n = json.Number(strings.TrimSpace(s))
	} else if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if v, err := n.Int64(); err == nil {
		*f = boundedCount(float64(v))
		return nil
	}
	v, err := strconv.ParseFloat(string(n), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return err
	}
	*f = boundedCount(v)
	return nil
}

func boundedCount(v float64) flexInt {
	if math.IsNaN(v) || v > MaxRoomsPerEntry || v < -MaxRoomsPerEntry {
		return 0
	}
	return flexInt(v)
}
