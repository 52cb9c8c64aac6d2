package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

// DefaultRetryBackoff spaces out redelivery of a message whose handler failed.
var DefaultRetryBackoff = []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}

type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	logger  *slog.Logger
	// Backoff is used between attempts of the same message; the last step repeats.
	Backoff []time.Duration
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler, logger *slog.Logger) (*Consumer, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	g, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	return &Consumer{group: g, handler: handler, logger: logger}, nil
}

func (c *Consumer) Run(ctx context.Context, topics []string) error {
	for {
		if err := c.group.Consume(ctx, topics, consumerGroupHandler{handler: c.handler, logger: c.logger, backoff: c.Backoff}); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type consumerGroupHandler struct {
	handler MessageHandler
	logger  *slog.Logger
	backoff []time.Duration
}

func (h consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim marks a message only once its handler succeeds. A failing message
// is retried in place so later offsets are never committed past it; when the
// session ends first the offset stays uncommitted and the message is redelivered.
func (h consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for message := range claim.Messages() {
		if !h.deliver(ctx, message) {
			return nil
		}
		sess.MarkMessage(message, "")
	}
	return nil
}

func (h consumerGroupHandler) deliver(ctx context.Context, message *sarama.ConsumerMessage) bool {
	for attempt := 0; ; attempt++ {
		err := h.handler.Handle(ctx, message)
		if err == nil {
			return true
		}
		delay := h.delay(attempt)
		if h.logger != nil {
			h.logger.Warn("kafka message not processed, retrying",
				"topic", message.Topic, "partition", message.Partition, "offset", message.Offset,
				"attempt", attempt+1, "retry_in", delay, "error", err)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

func (h consumerGroupHandler) delay(attempt int) time.Duration {
	backoff := h.backoff
	if len(backoff) == 0 {
		backoff = DefaultRetryBackoff
	}
	if attempt >= len(backoff) {
		return backoff[len(backoff)-1]
	}
	return backoff[attempt]
}
