package service

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/statusgraph/pkg/errors"
	"github.com/noah-isme/statusgraph/pkg/pubsub"
)

// StatusEvent is emitted by the posting workflow whenever a status is
// created, edited or deleted.
type StatusEvent struct {
	Type        string `json:"type"`
	StatusID    int64  `json:"status_id"`
	InReplyToID *int64 `json:"in_reply_to_id,omitempty"`
	RootID      *int64 `json:"root_id,omitempty"`
}

type threadCacheInvalidator interface {
	InvalidateThread(ctx context.Context, statusID int64) error
	InvalidateRoot(ctx context.Context, rootID int64) error
}

type eventSubscriber interface {
	Subscribe(ctx context.Context, handler pubsub.MessageHandler, channels ...string) error
}

// ThreadInvalidator drops cached contexts of threads touched by status events.
type ThreadInvalidator struct {
	subscriber eventSubscriber
	threads    threadCacheInvalidator
	channel    string
	logger     *zap.Logger
}

// NewThreadInvalidator constructs a ThreadInvalidator.
func NewThreadInvalidator(subscriber eventSubscriber, threads threadCacheInvalidator, channel string, logger *zap.Logger) *ThreadInvalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ThreadInvalidator{subscriber: subscriber, threads: threads, channel: channel, logger: logger}
}

// Start subscribes until ctx is done.
func (t *ThreadInvalidator) Start(ctx context.Context) error {
	if t.subscriber == nil {
		return nil
	}
	t.logger.Info("thread invalidator listening", zap.String("channel", t.channel))
	return t.subscriber.Subscribe(ctx, t.Handle, t.channel)
}

// Handle processes one raw event. Deleted statuses cannot be walked, so the
// parent is used instead when the event carries one.
func (t *ThreadInvalidator) Handle(ctx context.Context, _ string, payload []byte) {
	var event StatusEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		t.logger.Warn("ignoring malformed status event", zap.Error(err))
		return
	}

	var err error
	switch {
	case event.RootID != nil:
		err = t.threads.InvalidateRoot(ctx, *event.RootID)
	case event.StatusID > 0:
		err = t.threads.InvalidateThread(ctx, event.StatusID)
		if errors.Is(err, appErrors.ErrNotFound) && event.InReplyToID != nil {
			err = t.threads.InvalidateThread(ctx, *event.InReplyToID)
		}
		if errors.Is(err, appErrors.ErrNotFound) {
			// a thread whose statuses are gone has nothing left to walk
			err = t.threads.InvalidateRoot(ctx, event.StatusID)
		}
	default:
		t.logger.Warn("status event without ids", zap.String("type", event.Type))
		return
	}
	if err != nil {
		t.logger.Warn("thread invalidation failed", zap.Int64("status_id", event.StatusID), zap.Error(err))
	}
}
