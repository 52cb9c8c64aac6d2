package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "stayhub/internal/app/outbox"
	infraoutbox "stayhub/internal/infra/outbox"
)

// Outbox keeps records in memory and serves them to the relay worker in
// insertion order.
type Outbox struct {
	mu      sync.Mutex
	records []*infraoutbox.EventDocument
	now     func() time.Time
}

func NewOutbox() *Outbox {
	return &Outbox{now: time.Now}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, &infraoutbox.EventDocument{
		ID:          record.ID,
		Name:        record.Name,
		Payload:     append([]byte(nil), record.Payload...),
		OccurredAt:  record.OccurredAt,
		Aggregate:   record.Aggregate,
		Headers:     record.Headers,
		State:       infraoutbox.StateNew,
		NextAttempt: o.now().UTC(),
	})
	return nil
}

// Flush drops records the relay has already sent.
func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	kept := o.records[:0]
	for _, rec := range o.records {
		if rec.State != infraoutbox.StateSent {
			kept = append(kept, rec)
		}
	}
	o.records = kept
	return nil
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now().UTC()
	for _, rec := range o.records {
		due := rec.State == infraoutbox.StateNew || rec.State == infraoutbox.StateFailed
		if !due || rec.NextAttempt.After(now) {
			continue
		}
		rec.State = infraoutbox.StateClaimed
		rec.ClaimedBy = workerID
		rec.ClaimedAt = now
		out := *rec
		return &out, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if rec := o.find(id); rec != nil {
		rec.State = infraoutbox.StateSent
		rec.SentAt = o.now().UTC()
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if rec := o.find(id); rec != nil {
		rec.State = infraoutbox.StateFailed
		rec.NextAttempt = next
		rec.LastError = errMsg
		rec.Attempts++
	}
	return nil
}

// Pending counts records not yet sent.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, rec := range o.records {
		if rec.State != infraoutbox.StateSent {
			n++
		}
	}
	return n
}

func (o *Outbox) find(id string) *infraoutbox.EventDocument {
	for _, rec := range o.records {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}

var (
	_ appoutbox.Outbox  = (*Outbox)(nil)
	_ infraoutbox.Store = (*Outbox)(nil)
)
