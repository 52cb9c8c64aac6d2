package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IBM/sarama"

	"stayhub/internal/app/commands"
	"stayhub/internal/app/dto"
	blocksapp "stayhub/internal/app/handlers/blocks"
	"stayhub/internal/domain/occupancy"
	"stayhub/internal/domain/property"
	"stayhub/internal/domain/shared/daterange"
)

const (
	ActionUpsert  = "upsert"
	ActionRelease = "release"
)

var ErrMalformedMessage = errors.New("kafka: malformed channel message")

// ChannelMessage is a hold reported by another sales channel.
type ChannelMessage struct {
	Action      string `json:"action"`
	BlockID     int64  `json:"block_id"`
	PropertyID  int64  `json:"property_id"`
	RoomCode    string `json:"room_code"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Source      string `json:"source"`
	BedsBlocked int    `json:"beds_blocked"`
}

// ChannelBlockHandler turns channel messages into block commands. Reservations
// taken elsewhere already happened, so upserts never fail on capacity.
type ChannelBlockHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

func (h ChannelBlockHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	cmd, err := DecodeChannelMessage(msg.Value, deliveryKey(msg))
	if err != nil {
		h.log().Warn("skipping channel message", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		return nil
	}
	switch c := cmd.(type) {
	case blocksapp.PlaceBlockCommand:
		res, err := commands.Dispatch[blocksapp.PlaceBlockCommand, *dto.PlaceBlockResult](ctx, h.Commands, c)
		if err != nil {
			return h.settle(err, "channel block rejected", c.PropertyID, c.BlockID)
		}
		if res != nil && res.Overbooked {
			h.log().Warn("channel block overbooks property", "property_id", res.PropertyID, "block_id", res.BlockID, "source", res.Source)
		}
	case blocksapp.ReleaseBlockCommand:
		if _, err := commands.Dispatch[blocksapp.ReleaseBlockCommand, *dto.ReleaseBlockResult](ctx, h.Commands, c); err != nil {
			return h.settle(err, "channel release rejected", c.PropertyID, c.BlockID)
		}
	}
	return nil
}

// settle drops messages that can never succeed. Other failures are returned so the
// consumer retries the same delivery; they are not recorded under its idempotency key.
func (h ChannelBlockHandler) settle(err error, msg string, propertyID, blockID int64) error {
	if isPermanent(err) {
		h.log().Warn(msg, "property_id", propertyID, "block_id", blockID, "error", err)
		return nil
	}
	return err
}

func isPermanent(err error) bool {
	return errors.Is(err, occupancy.ErrBlockNotFound) ||
		errors.Is(err, occupancy.ErrInvalidBeds) ||
		errors.Is(err, occupancy.ErrPropertyMissing) ||
		errors.Is(err, property.ErrPropertyNotFound) ||
		errors.Is(err, daterange.ErrInvalidRange)
}

func (h ChannelBlockHandler) log() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// DecodeChannelMessage maps a channel payload onto a block command.
func DecodeChannelMessage(data []byte, idempotencyKey string) (commands.Command, error) {
	var m ChannelMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if m.PropertyID <= 0 {
		return nil, fmt.Errorf("%w: property_id is required", ErrMalformedMessage)
	}
	switch strings.ToLower(strings.TrimSpace(m.Action)) {
	case ActionUpsert, "":
		start, err := daterange.ParseDate(m.StartDate)
		if err != nil {
			return nil, fmt.Errorf("%w: start_date: %v", ErrMalformedMessage, err)
		}
		end, err := daterange.ParseDate(m.EndDate)
		if err != nil {
			return nil, fmt.Errorf("%w: end_date: %v", ErrMalformedMessage, err)
		}
		return blocksapp.PlaceBlockCommand{
			PropertyID:      m.PropertyID,
			BlockID:         m.BlockID,
			RoomCode:        strings.TrimSpace(m.RoomCode),
			StartDate:       start,
			EndDate:         end,
			Source:          m.Source,
			BedsBlocked:     m.BedsBlocked,
			AllowOverbook:   true,
			IdempotencyKeyV: idempotencyKey,
		}, nil
	case ActionRelease:
		if m.BlockID <= 0 {
			return nil, fmt.Errorf("%w: block_id is required to release", ErrMalformedMessage)
		}
		return blocksapp.ReleaseBlockCommand{
			PropertyID:      m.PropertyID,
			BlockID:         m.BlockID,
			IdempotencyKeyV: idempotencyKey,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrMalformedMessage, m.Action)
	}
}

// deliveryKey identifies a record so redeliveries replay instead of re-applying.
func deliveryKey(msg *sarama.ConsumerMessage) string {
	return fmt.Sprintf("kafka:%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
}

var _ MessageHandler = ChannelBlockHandler{}
