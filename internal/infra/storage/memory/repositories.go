package memory

import (
	"context"
	"sort"
	"sync"

	"stayhub/internal/domain/occupancy"
	"stayhub/internal/domain/property"
	"stayhub/internal/domain/shared/events"
)

// PropertyRepository is an in-memory implementation for demo purposes.
type PropertyRepository struct {
	mu    sync.RWMutex
	items map[property.ID]property.Property
}

func NewPropertyRepository() *PropertyRepository {
	return &PropertyRepository{items: make(map[property.ID]property.Property)}
}

// ByID returns a copy of the property or property.ErrPropertyNotFound.
func (r *PropertyRepository) ByID(ctx context.Context, id property.ID) (*property.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, property.ErrPropertyNotFound
	}
	return &p, nil
}

func (r *PropertyRepository) Save(ctx context.Context, p property.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.ID] = p
	return nil
}

type BookingRepository struct {
	mu    sync.RWMutex
	items map[int64]occupancy.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[int64]occupancy.Booking)}
}

func (r *BookingRepository) Save(ctx context.Context, b occupancy.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[b.ID] = b
	return nil
}

// FindActiveBookings orders by check-in, then id for a stable answer.
func (r *BookingRepository) FindActiveBookings(ctx context.Context, q occupancy.Query) ([]occupancy.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]occupancy.Booking, 0)
	for _, b := range r.items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if q.MatchesBooking(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stay.Start.Equal(out[j].Stay.Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Stay.Start.Before(out[j].Stay.Start)
	})
	return out, nil
}

type BlockRepository struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]occupancy.Block
}

func NewBlockRepository() *BlockRepository {
	return &BlockRepository{items: make(map[int64]occupancy.Block)}
}

func (r *BlockRepository) FindBlocks(ctx context.Context, q occupancy.BlockQuery) ([]occupancy.Block, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]occupancy.Block, 0)
	for _, b := range r.items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if q.MatchesBlock(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Period.Start.Equal(out[j].Period.Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Period.Start.Before(out[j].Period.Start)
	})
	return out, nil
}

func (r *BlockRepository) ByID(ctx context.Context, id int64) (*occupancy.Block, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, occupancy.ErrBlockNotFound
	}
	return &b, nil
}

// Save assigns the next id to new blocks. Stored copies carry no pending events.
func (r *BlockRepository) Save(ctx context.Context, b *occupancy.Block) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == 0 {
		r.nextID++
		b.ID = r.nextID
	} else if b.ID > r.nextID {
		r.nextID = b.ID
	}
	stored := *b
	stored.Recorder = events.Recorder{}
	r.items[b.ID] = stored
	return nil
}

func (r *BlockRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return occupancy.ErrBlockNotFound
	}
	delete(r.items, id)
	return nil
}
