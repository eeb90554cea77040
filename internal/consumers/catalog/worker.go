package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-catalog/pkg/enums"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
	"github.com/angelmondragon/storefront-catalog/pkg/metrics"
	"github.com/angelmondragon/storefront-catalog/pkg/outbox"
	"github.com/angelmondragon/storefront-catalog/pkg/outbox/idempotency"
)

const (
	consumerName = "catalog-worker"
	jobName      = "catalog_snapshot"
)

// Handler processes decoded envelopes.
type Handler interface {
	Handle(ctx context.Context, envelope Envelope) error
}

// HandlerFunc adapts functions to the Handler interface.
type HandlerFunc func(ctx context.Context, envelope Envelope) error

func (fn HandlerFunc) Handle(ctx context.Context, envelope Envelope) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, envelope)
}

type dedupeGuard interface {
	Begin(ctx context.Context, consumer string, eventID uuid.UUID) (idempotency.Outcome, error)
	Complete(ctx context.Context, consumer string, eventID uuid.UUID) error
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Service consumes catalog and stock events from Pub/Sub while honoring Redis idempotency.
type Service struct {
	subscription *gcppubsub.Subscriber
	handler      Handler
	guard        dedupeGuard
	metrics      *metrics.JobMetrics
	logg         *logger.Logger
}

func NewService(subscription *gcppubsub.Subscriber, handler Handler, guard dedupeGuard, jobs *metrics.JobMetrics, logg *logger.Logger) (*Service, error) {
	if subscription == nil {
		return nil, errors.New("catalog subscription is required")
	}
	if handler == nil {
		return nil, errors.New("catalog handler is required")
	}
	if guard == nil {
		return nil, errors.New("idempotency guard is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		subscription: subscription,
		handler:      handler,
		guard:        guard,
		metrics:      jobs,
		logg:         logg,
	}, nil
}

type processResult struct {
	nack bool
}

// Run receives messages until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if s.process(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	fields := map[string]any{"message_id": msg.ID}
	logCtx := s.logg.WithFields(ctx, fields)

	envelope, err := buildEnvelope(msg)
	if err != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "invalid catalog envelope")
		return processResult{}
	}
	fields["event_id"] = envelope.EventID
	fields["event_type"] = envelope.EventType
	fields["aggregate_type"] = envelope.AggregateType
	fields["aggregate_id"] = envelope.AggregateID
	logCtx = s.logg.WithFields(ctx, fields)

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		s.logg.Warn(logCtx, "invalid event id")
		return processResult{}
	}

	outcome, err := s.guard.Begin(logCtx, consumerName, eventID)
	if err != nil {
		s.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	switch outcome {
	case idempotency.Duplicate:
		s.logg.Info(logCtx, "event already processed")
		return processResult{}
	case idempotency.InFlight:
		s.logg.Debug(logCtx, "event claimed by another delivery")
		return processResult{nack: true}
	}

	started := time.Now()
	err = s.handler.Handle(logCtx, *envelope)
	if errors.Is(err, ErrUnsupportedEventType) {
		s.logg.Debug(logCtx, "event not handled by catalog worker")
		s.complete(logCtx, eventID)
		return processResult{}
	}
	s.metrics.ObserveDuration(jobName, time.Since(started))
	if err != nil {
		s.metrics.IncFailure(jobName)
		s.logg.Error(logCtx, "handler error", err)
		if relErr := s.guard.Release(logCtx, consumerName, eventID); relErr != nil {
			s.logg.Warn(s.logg.WithField(logCtx, "error", relErr.Error()), "idempotency release failed")
		}
		return processResult{nack: true}
	}
	s.metrics.IncSuccess(jobName)
	s.complete(logCtx, eventID)
	return processResult{}
}

// complete records the event as applied. A failure only risks one repeat of
// an idempotent snapshot rebuild, so the message is still acked.
func (s *Service) complete(ctx context.Context, eventID uuid.UUID) {
	if err := s.guard.Complete(ctx, consumerName, eventID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "idempotency completion failed")
	}
}

func buildEnvelope(msg *gcppubsub.Message) (*Envelope, error) {
	stored, err := outbox.DecodeEnvelope(msg.Data)
	if err != nil {
		return nil, err
	}

	eventType, err := enums.ParseOutboxEventType(strings.TrimSpace(msg.Attributes["event_type"]))
	if err != nil {
		return nil, fmt.Errorf("event_type: %w", err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(strings.TrimSpace(msg.Attributes["aggregate_type"]))
	if err != nil {
		return nil, fmt.Errorf("aggregate_type: %w", err)
	}
	aggregateID := strings.TrimSpace(msg.Attributes["aggregate_id"])
	if aggregateID == "" {
		return nil, errors.New("aggregate_id missing")
	}

	occurredAt := stored.OccurredAt
	if occurredAt.IsZero() {
		if created := strings.TrimSpace(msg.Attributes["occurred_at"]); created != "" {
			if parsed, err := time.Parse(time.RFC3339Nano, created); err == nil {
				occurredAt = parsed
			}
		}
	}

	eventID := strings.TrimSpace(stored.EventID)
	if eventID == "" {
		eventID = strings.TrimSpace(msg.Attributes["event_id"])
	}
	if eventID == "" {
		return nil, errors.New("event_id missing")
	}

	return &Envelope{
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		OccurredAt:    occurredAt.UTC(),
		Payload:       stored.Data,
	}, nil
}
