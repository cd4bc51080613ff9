package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/cart-allocation/internal/core/domain"
)

const (
	DefaultEventStream    = "cartpick:events"
	DefaultEventStreamLen = 10000
)

type eventPayload struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	PickerID      int64     `json:"picker_id"`
	AssignmentIDs []int64   `json:"assignment_ids"`
	ShipmentIDs   []int64   `json:"shipment_ids"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// RedisAdapter publishes allocation events to a capped Redis stream.
type RedisAdapter struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisAdapter(client *redis.Client, stream string, maxLen int64) *RedisAdapter {
	if stream == "" {
		stream = DefaultEventStream
	}
	if maxLen <= 0 {
		maxLen = DefaultEventStreamLen
	}
	return &RedisAdapter{client: client, stream: stream, maxLen: maxLen}
}

func (r *RedisAdapter) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(eventPayload{
		ID:            event.ID,
		Type:          string(event.Type),
		PickerID:      event.PickerID,
		AssignmentIDs: event.AssignmentIDs,
		ShipmentIDs:   event.ShipmentIDs,
		OccurredAt:    event.OccurredAt,
	})
	if err != nil {
		return err
	}

	return r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: r.maxLen,
		Approx: true,
		Values: map[string]any{
			"type":    string(event.Type),
			"payload": payload,
		},
	}).Err()
}
