package service

import (
    "context"
    "log/slog"
    "time"

    "github.com/iliyamo/kmerpro-marketplace/internal/queue"
)

// EventPublisher receives committed lifecycle events.  *queue.Publisher
// implements it.
type EventPublisher interface {
    Publish(ctx context.Context, ev queue.LifecycleEvent) error
}

// Clock returns the current time.  Tests replace it to pin timestamps.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

// publish sends ev if a publisher is configured.  Failures are logged
// only; the transition they describe has already been committed.
func publish(ctx context.Context, events EventPublisher, ev queue.LifecycleEvent) {
    if events == nil {
        return
    }
    if err := events.Publish(ctx, ev); err != nil {
        slog.Warn("lifecycle event not published", "kind", ev.Kind, "entity_id", ev.EntityID, "error", err)
    }
}
