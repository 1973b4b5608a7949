package services

import (
	"context"
	"log/slog"
	"time"

	"linkly/internal/events"
)

const publishTimeout = 2 * time.Second

// publish sends event without letting a slow or absent broker affect the
// caller. The request context may already be done by the time it runs.
func publish(ctx context.Context, p events.Publisher, logger *slog.Logger, event events.Event) {
	if p == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.Publish(ctx, event); err != nil {
		logger.WarnContext(ctx, "event publish failed", "type", event.Type, "error", err)
	}
}
