package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-catalog/pkg/config"
	"github.com/angelmondragon/storefront-catalog/pkg/db/models"
	"github.com/angelmondragon/storefront-catalog/pkg/enums"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
	"github.com/angelmondragon/storefront-catalog/pkg/metrics"
	"github.com/angelmondragon/storefront-catalog/pkg/outbox/registry"
)

const (
	relayJob       = "outbox_relay"
	publishTimeout = 15 * time.Second
	idleCeiling    = 10 * time.Second
	jitterWindow   = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(topic string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// topicPublisher is the slice of *pubsub.Publisher the relay needs. A failed
// ordered publish pauses its key until ResumePublish is called.
type topicPublisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
	ResumePublish(orderingKey string)
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type relayParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         dbClient
	PubSub     pubSubClient
	Repository outboxRepository
	DLQ        dlqRepository
	Registry   registryResolver
	Metrics    *metrics.JobMetrics
	// Topics overrides how topic names become publishers; tests use it.
	Topics func(topic string) topicPublisher
}

// relay moves committed outbox rows onto the catalog and order topics.
// Events of one aggregate share an ordering key: after a failed publish the
// rest of that aggregate's rows wait for the next batch.
type relay struct {
	logg        *logger.Logger
	db          dbClient
	pubsub      pubSubClient
	repo        outboxRepository
	dlq         dlqRepository
	registry    registryResolver
	metrics     *metrics.JobMetrics
	topics      func(topic string) topicPublisher
	batchSize   int
	maxAttempts int
	idle        time.Duration
}

func newRelay(p relayParams) (*relay, error) {
	switch {
	case p.Config == nil:
		return nil, errors.New("config is required")
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("database client is required")
	case p.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case p.Repository == nil || p.DLQ == nil:
		return nil, errors.New("outbox and dlq repositories are required")
	case p.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	topics := p.Topics
	if topics == nil {
		topics = func(topic string) topicPublisher {
			pub := p.PubSub.Publisher(topic)
			if pub == nil {
				return nil
			}
			return gcpTopic{pub}
		}
	}
	oc := p.Config.Outbox
	return &relay{
		logg:        p.Logger,
		db:          p.DB,
		pubsub:      p.PubSub,
		repo:        p.Repository,
		dlq:         p.DLQ,
		registry:    p.Registry,
		metrics:     p.Metrics,
		topics:      topics,
		batchSize:   positiveOr(oc.BatchSize, 50),
		maxAttempts: positiveOr(oc.MaxAttempts, 10),
		idle:        time.Duration(positiveOr(oc.PollIntervalMS, 500)) * time.Millisecond,
	}, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// Run drains batches back to back while rows keep settling, sleeps the poll
// interval when nothing is waiting and backs off exponentially while every
// row fails.
func (r *relay) Run(ctx context.Context) error {
	for _, dep := range []struct {
		name string
		ping func(context.Context) error
	}{{"database", r.db.Ping}, {"pubsub", r.pubsub.Ping}} {
		if err := dep.ping(ctx); err != nil {
			r.logg.Error(ctx, dep.name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}

	wait := r.idle
	for {
		if err := ctx.Err(); err != nil {
			r.logg.Info(ctx, "outbox relay stopping")
			return err
		}

		started := time.Now()
		batch, err := r.drain(ctx)
		if batch.rows > 0 || err != nil {
			r.metrics.ObserveDuration(relayJob, time.Since(started))
		}
		switch {
		case err != nil:
			r.metrics.IncFailure(relayJob)
			r.logg.Error(ctx, "outbox relay batch failed", err)
			wait = min(wait*2, idleCeiling)
		case batch.settled > 0:
			r.metrics.IncSuccess(relayJob)
			wait = r.idle
			continue
		case batch.rows > 0:
			r.metrics.IncFailure(relayJob)
			wait = min(wait*2, idleCeiling)
		default:
			wait = r.idle
		}
		if err := sleepCtx(ctx, wait+rand.N(jitterWindow)); err != nil {
			return err
		}
	}
}

// batchResult counts fetched rows and the ones that left the queue, either
// published or dead-lettered.
type batchResult struct {
	rows    int
	settled int
}

// drain handles one locked batch inside a transaction.
func (r *relay) drain(ctx context.Context) (batchResult, error) {
	var res batchResult
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.repo.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox batch: %w", err)
		}
		res.rows = len(rows)
		paused := map[string]struct{}{}
		for _, row := range rows {
			settled, err := r.deliver(ctx, tx, row, paused)
			if err != nil {
				return err
			}
			if settled {
				res.settled++
			}
		}
		return nil
	})
	return res, err
}

// deliver publishes one row and records the outcome. It reports whether the
// row left the queue. Only bookkeeping failures are returned; publish
// failures are recorded on the row.
func (r *relay) deliver(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, paused map[string]struct{}) (bool, error) {
	key := orderingKey(row)
	logCtx := r.logg.WithFields(ctx, map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    row.EventType,
		"aggregate_id":  row.AggregateID.String(),
		"ordering_key":  key,
		"attempt_count": row.AttemptCount,
	})
	if _, ok := paused[key]; ok {
		r.logg.Debug(logCtx, "outbox row deferred behind a failed publish")
		return false, nil
	}

	resolved, err := r.registry.Resolve(row)
	if err != nil {
		return true, r.deadLetter(logCtx, tx, row, enums.OutboxDLQReasonNonRetryable, err)
	}
	logCtx = r.logg.WithField(logCtx, "topic", resolved.Descriptor.Topic)

	err = r.publish(ctx, row, resolved, key)
	var permanent registry.NonRetryableError
	switch {
	case err == nil:
		if err := r.repo.MarkPublishedTx(tx, row.ID); err != nil {
			return false, fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		r.logg.Info(logCtx, "outbox event published")
		return true, nil
	case errors.As(err, &permanent):
		return true, r.deadLetter(logCtx, tx, row, enums.OutboxDLQReasonNonRetryable, err)
	case row.AttemptCount+1 >= r.maxAttempts:
		return true, r.deadLetter(logCtx, tx, row, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("gave up after %d attempts: %w", row.AttemptCount+1, err))
	}

	paused[key] = struct{}{}
	r.logg.Warn(r.logg.WithField(logCtx, "error", err.Error()), "outbox publish failed, will retry")
	if err := r.repo.MarkFailedTx(tx, row.ID, err); err != nil {
		return false, fmt.Errorf("mark failed %s: %w", row.ID, err)
	}
	return false, nil
}

func (r *relay) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent, key string) error {
	topic := resolved.Descriptor.Topic
	pub := r.topics(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", topic))
	}

	eventID := resolved.Envelope.EventID
	if eventID == "" {
		eventID = row.ID.String()
	}
	occurred := resolved.Envelope.OccurredAt
	if occurred.IsZero() {
		occurred = row.CreatedAt
	}
	msg := &gcppubsub.Message{
		Data:        row.Payload,
		OrderingKey: key,
		Attributes: map[string]string{
			"event_id":       eventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"occurred_at":    occurred.UTC().Format(time.RFC3339Nano),
		},
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	res := pub.Publish(pubCtx, msg)
	if res == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher for %s returned no result", topic))
	}
	if _, err := res.Get(pubCtx); err != nil {
		pub.ResumePublish(key)
		return err
	}
	return nil
}

func (r *relay) deadLetter(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	msg := cause.Error()
	r.logg.Warn(r.logg.WithFields(ctx, map[string]any{"error_reason": reason, "error": msg}), "outbox event dead-lettered")
	entry := models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  row.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := r.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", row.ID, err)
	}
	if err := r.repo.MarkTerminalTx(tx, row.ID, cause, r.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	return nil
}

// orderingKey groups events that consumers must see in commit order. Catalog
// changes form one stream; each order and each item has its own.
func orderingKey(row models.OutboxEvent) string {
	if row.AggregateType == enums.AggregateCatalog {
		return string(enums.AggregateCatalog)
	}
	return string(row.AggregateType) + ":" + row.AggregateID.String()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type gcpTopic struct {
	p *gcppubsub.Publisher
}

func (g gcpTopic) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return g.p.Publish(ctx, msg)
}

func (g gcpTopic) ResumePublish(key string) {
	g.p.ResumePublish(key)
}
