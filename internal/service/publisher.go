package service

import (
	"context"

	commonredis "wisefido-hydration/internal/common/redis"

	"github.com/go-redis/redis/v8"
)

// StreamPublisher 将决策事件写入 Redis Stream
type StreamPublisher struct {
	client *redis.Client
	stream string
}

func NewStreamPublisher(client *redis.Client, stream string) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream}
}

func (p *StreamPublisher) PublishDecision(ctx context.Context, event DecisionEvent) error {
	_, err := commonredis.PublishJSONToStream(ctx, p.client, p.stream, event, event.At)
	return err
}
