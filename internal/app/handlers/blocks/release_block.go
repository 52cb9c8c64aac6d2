package blocks

import (
	"context"
	"time"

	"stayhub/internal/app/commands"
	"stayhub/internal/app/dto"
	"stayhub/internal/app/middleware"
	"stayhub/internal/app/outbox"
	"stayhub/internal/app/uow"
	"stayhub/internal/domain/property"
)

const releaseBlockKey = "blocks.release"

type ReleaseBlockCommand struct {
	PropertyID      int64
	BlockID         int64
	IdempotencyKeyV string
}

func (c ReleaseBlockCommand) Key() string { return releaseBlockKey }

func (c ReleaseBlockCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c ReleaseBlockCommand) ResultPrototype() any { return &dto.ReleaseBlockResult{} }

type ReleaseBlockHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
}

func (h *ReleaseBlockHandler) Handle(ctx context.Context, cmd ReleaseBlockCommand) (*dto.ReleaseBlockResult, error) {
	unit, ctx, finish, err := acquireUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer finish.rollback(ctx)

	block, err := ownedBlock(ctx, unit, property.ID(cmd.PropertyID), cmd.BlockID)
	if err != nil {
		return nil, err
	}
	if err := unit.Blocks().Delete(ctx, block.ID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if h.Now != nil {
		now = h.Now().UTC()
	}
	block.Release(now)
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, block.Drain()); err != nil {
		return nil, err
	}
	if err := finish.commit(ctx); err != nil {
		return nil, err
	}
	return &dto.ReleaseBlockResult{BlockID: block.ID, Released: true}, nil
}

var _ commands.Handler[ReleaseBlockCommand, *dto.ReleaseBlockResult] = (*ReleaseBlockHandler)(nil)
var _ middleware.IdempotentCommand = ReleaseBlockCommand{}
