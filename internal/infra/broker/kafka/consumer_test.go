package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"

	"stayhub/internal/app/middleware"
	"stayhub/internal/domain/occupancy"
	"stayhub/internal/infra/storage/memory"
)

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, metadata string) {
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func claimOf(msgs ...*sarama.ConsumerMessage) fakeClaim {
	ch := make(chan *sarama.ConsumerMessage, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	close(ch)
	return fakeClaim{messages: ch}
}

// flakyHandler fails the first failures calls.
type flakyHandler struct {
	failures int
	calls    int
}

func (h *flakyHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	h.calls++
	if h.calls <= h.failures {
		return errors.New("store down")
	}
	return nil
}

func TestConsumeClaimRetriesBeforeMarking(t *testing.T) {
	handler := &flakyHandler{failures: 2}
	sess := &fakeSession{ctx: context.Background()}
	h := consumerGroupHandler{handler: handler, backoff: []time.Duration{time.Millisecond}}

	if err := h.ConsumeClaim(sess, claimOf(&sarama.ConsumerMessage{Offset: 5}, &sarama.ConsumerMessage{Offset: 6})); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if handler.calls != 4 {
		t.Fatalf("expected 3 attempts for the first message and 1 for the second, got %d", handler.calls)
	}
	if len(sess.marked) != 2 || sess.marked[0] != 5 || sess.marked[1] != 6 {
		t.Fatalf("unexpected marked offsets %v", sess.marked)
	}
}

func TestConsumeClaimLeavesFailedMessageUnmarkedOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	handler := &flakyHandler{failures: 100}
	sess := &fakeSession{ctx: ctx}
	h := consumerGroupHandler{handler: handler, backoff: []time.Duration{time.Hour}}

	if err := h.ConsumeClaim(sess, claimOf(&sarama.ConsumerMessage{Offset: 5}, &sarama.ConsumerMessage{Offset: 6})); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if len(sess.marked) != 0 {
		t.Fatalf("no offset may be committed past a failed message, marked %v", sess.marked)
	}
	if handler.calls != 1 {
		t.Fatalf("later messages must wait for the failed one, handler ran %d times", handler.calls)
	}
}

func TestRedeliveryAfterTransientFailureReachesCommand(t *testing.T) {
	bus := &recordingBus{err: errors.New("postgres: connection reset")}
	chained := middleware.ChainCommands(bus, middleware.Idempotency(memory.NewIdempotencyStore(), nil, occupancy.ErrBlockNotFound))
	handler := quietHandler(chained)
	msg := &sarama.ConsumerMessage{
		Topic:  "channel.blocks.v1",
		Offset: 9,
		Value:  []byte(`{"action":"upsert","property_id":3,"start_date":"2024-08-05","end_date":"2024-08-06"}`),
	}

	if err := handler.Handle(context.Background(), msg); err == nil {
		t.Fatal("expected transient failure to be returned")
	}
	bus.err = nil
	if err := handler.Handle(context.Background(), msg); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if len(bus.seen) != 2 {
		t.Fatalf("redelivery should dispatch again, got %d dispatches", len(bus.seen))
	}
}

func TestRetryDelayRepeatsLastStep(t *testing.T) {
	h := consumerGroupHandler{backoff: []time.Duration{time.Second, time.Minute}}
	if got := h.delay(0); got != time.Second {
		t.Fatalf("delay(0) = %v", got)
	}
	if got := h.delay(5); got != time.Minute {
		t.Fatalf("delay(5) = %v", got)
	}
	if got := (consumerGroupHandler{}).delay(0); got != DefaultRetryBackoff[0] {
		t.Fatalf("default delay = %v", got)
	}
}
