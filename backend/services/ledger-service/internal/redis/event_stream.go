package redisstore

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"evledger/backend/services/ledger-service/internal/ledger"
)

// DefaultStreamKey is the stream committed ledger events are appended to.
const DefaultStreamKey = "ledger:events"

// EventStream mirrors committed events into a Redis stream for downstream consumers.
type EventStream struct {
	client redis.Cmdable
	key    string
	maxLen int64
}

// NewEventStream returns redis-backed stream publisher. maxLen <= 0 keeps the stream unbounded.
func NewEventStream(client redis.Cmdable, key string, maxLen int64) *EventStream {
	if key == "" {
		key = DefaultStreamKey
	}
	return &EventStream{client: client, key: key, maxLen: maxLen}
}

// Publish appends events in order, one stream entry each, in one MULTI/EXEC block.
func (s *EventStream) Publish(ctx context.Context, events []ledger.Event) error {
	if len(events) == 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	for _, event := range events {
		args, err := s.entry(event)
		if err != nil {
			return err
		}
		pipe.XAdd(ctx, args)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *EventStream) entry(event ledger.Event) (*redis.XAddArgs, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	args := &redis.XAddArgs{
		Stream: s.key,
		Values: map[string]interface{}{
			"type":    string(event.Type),
			"payload": string(payload),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	return args, nil
}
