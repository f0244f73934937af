package services

import (
	"context"
	"log/slog"

	"gastos/internal/storage"
)

// ChangePublisher forwards committed changes to other processes.
type ChangePublisher interface {
	PublishChange(ctx context.Context, c storage.Change) error
}

// RelayChanges publishes every change read from changes until ctx ends or
// the channel is closed. A failed publish is logged and never reaches the
// writer: the change is already committed.
func RelayChanges(ctx context.Context, changes <-chan storage.Change, pub ChangePublisher) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			if err := pub.PublishChange(ctx, c); err != nil {
				slog.ErrorContext(ctx, "Failed to publish change",
					"entity", c.Entity,
					"op", c.Op,
					"id", c.ID,
					"error", err)
			}
		}
	}
}
