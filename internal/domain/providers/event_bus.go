package providers

import (
	"context"

	"github.com/zatekoja/facilitycollector/internal/domain/entities"
)

// EventBus defines the interface for publishing reload events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.ReloadEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.ReloadEvent, error)

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannelReloads is the channel reload outcomes are published on
const EventChannelReloads = "facilities:reloads"
