package port

import (
	"context"

	"github.com/rl1809/cart-allocation/internal/core/domain"
)

type EventPublisher interface {
	// Publish hands the event to downstream consumers; delivery is best effort
	Publish(ctx context.Context, event domain.Event) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.Event) error { return nil }
