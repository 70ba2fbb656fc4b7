package services

import (
	"context"
	"log/slog"

	"bookkeeper/internal/notify"
)

// publishChange emits a change event after a committed write. The event is
// advisory: a publish failure is logged and swallowed, never surfaced to the
// caller whose write already succeeded.
func publishChange(ctx context.Context, p notify.Publisher, owner, entity, op string, ids ...string) {
	if p == nil {
		return
	}
	if err := p.PublishChange(ctx, notify.NewChangeEvent(owner, entity, op, ids...)); err != nil {
		slog.WarnContext(ctx, "Failed to publish change event",
			"error", err, "entity", entity, "op", op)
	}
}
