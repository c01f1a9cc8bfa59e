package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/statusgraph/internal/models"
	"github.com/noah-isme/statusgraph/pkg/jobs"
	"github.com/noah-isme/statusgraph/pkg/pubsub"
)

const (
	EventStatusUpdated = "status.updated"
	EventQuoteRevoked  = "quote.revoked"
)

// DistributionEvent is published for subscribers that redeliver statuses.
// Receivers deduplicate on EventID.
type DistributionEvent struct {
	EventID        string    `json:"event_id"`
	Type           string    `json:"type"`
	StatusID       int64     `json:"status_id"`
	AccountID      int64     `json:"account_id"`
	QuoteID        int64     `json:"quote_id,omitempty"`
	QuotedStatusID int64     `json:"quoted_status_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// DistributionService turns state changes into distribution events. Callers
// never wait for delivery: events go through the job queue, whose workers
// publish with retries.
type DistributionService struct {
	publisher pubsub.Publisher
	channel   string
	queue     jobEnqueuer
	logger    *zap.Logger
	now       func() time.Time
}

// NewDistributionService constructs the service. Without a queue events are
// published inline.
func NewDistributionService(publisher pubsub.Publisher, channel string, logger *zap.Logger) *DistributionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = pubsub.NewLogPublisher(logger)
	}
	return &DistributionService{
		publisher: publisher,
		channel:   channel,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// UseQueue routes events through queue.
func (s *DistributionService) UseQueue(queue jobEnqueuer) {
	s.queue = queue
}

// StatusUpdated announces that status must be redelivered.
func (s *DistributionService) StatusUpdated(ctx context.Context, status *models.Status) {
	s.dispatch(ctx, DistributionEvent{
		Type:      EventStatusUpdated,
		StatusID:  status.ID,
		AccountID: status.AccountID,
	})
}

// QuoteRevoked announces that the quoting status must be redelivered without
// its embedded quote.
func (s *DistributionService) QuoteRevoked(ctx context.Context, quote *models.Quote) {
	s.dispatch(ctx, DistributionEvent{
		Type:           EventQuoteRevoked,
		StatusID:       quote.StatusID,
		AccountID:      quote.AccountID,
		QuoteID:        quote.ID,
		QuotedStatusID: quote.QuotedStatusID,
	})
}

func (s *DistributionService) dispatch(ctx context.Context, event DistributionEvent) {
	event.EventID = uuid.NewString()
	event.OccurredAt = s.now()

	if s.queue == nil {
		if err := s.publish(ctx, event); err != nil {
			s.logger.Error("distribution publish failed", zap.String("event_id", event.EventID), zap.Error(err))
		}
		return
	}
	job := jobs.Job{ID: event.EventID, Type: event.Type, Payload: event}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Error("distribution enqueue failed",
			zap.String("event_id", event.EventID),
			zap.String("type", event.Type),
			zap.Int64("status_id", event.StatusID),
			zap.Error(err))
	}
}

// Handle is the job handler publishing a queued event.
func (s *DistributionService) Handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(DistributionEvent)
	if !ok {
		s.logger.Error("unexpected distribution payload", zap.String("job_id", job.ID), zap.String("type", fmt.Sprintf("%T", job.Payload)))
		return nil
	}
	return s.publish(ctx, event)
}

func (s *DistributionService) publish(ctx context.Context, event DistributionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal distribution event: %w", err)
	}
	if err := s.publisher.Publish(ctx, s.channel, payload); err != nil {
		return err
	}
	s.logger.Debug("distribution event published", zap.String("event_id", event.EventID), zap.String("type", event.Type))
	return nil
}
