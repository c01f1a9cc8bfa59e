// Package pubsub moves small JSON events between processes. Publishers are
// fire-and-forget; receivers must tolerate duplicates.
package pubsub

import (
	"context"

	"go.uber.org/zap"
)

// Publisher delivers a payload to every subscriber of a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Close() error
}

// LogPublisher only logs payloads. It backs the "log" distribution backend.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher constructs a LogPublisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

// Publish writes the event at info level.
func (p *LogPublisher) Publish(_ context.Context, channel string, payload []byte) error {
	p.logger.Info("event published", zap.String("channel", channel), zap.ByteString("payload", payload))
	return nil
}

// Close is a no-op.
func (p *LogPublisher) Close() error { return nil }
