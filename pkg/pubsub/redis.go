package pubsub

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisPublisher publishes over Redis PUBLISH.
type RedisPublisher struct {
	rdb *redis.Client
}

// NewRedisPublisher wraps an existing client. The client is owned by the caller.
func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

// Publish sends payload to channel. A nil client is a no-op.
func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	if p.rdb == nil {
		return nil
	}
	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}

// Close is a no-op; the shared client is closed by its owner.
func (p *RedisPublisher) Close() error { return nil }

// MessageHandler consumes one message.
type MessageHandler func(ctx context.Context, channel string, payload []byte)

// RedisSubscriber fans Redis pub/sub messages into a handler.
type RedisSubscriber struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewRedisSubscriber constructs a subscriber over rdb.
func NewRedisSubscriber(rdb *redis.Client, logger *zap.Logger) *RedisSubscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSubscriber{rdb: rdb, logger: logger}
}

// Subscribe listens on channels until ctx is cancelled. The subscription is
// confirmed before Subscribe returns, so messages published afterwards are
// delivered. Handler panics are logged and the loop keeps running.
func (s *RedisSubscriber) Subscribe(ctx context.Context, handler MessageHandler, channels ...string) error {
	if s.rdb == nil {
		return nil
	}
	sub := s.rdb.Subscribe(ctx, channels...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe %v: %w", channels, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				s.dispatch(ctx, handler, msg)
			}
		}
	}()

	return nil
}

func (s *RedisSubscriber) dispatch(ctx context.Context, handler MessageHandler, msg *redis.Message) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("subscriber handler panic",
				zap.String("channel", msg.Channel),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()
	handler(ctx, msg.Channel, []byte(msg.Payload))
}
