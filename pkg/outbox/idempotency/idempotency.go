// Package idempotency keeps Pub/Sub consumers from applying an event twice.
//
// Each (consumer, event id) pair moves through two states in redis. Begin
// claims it as "processing" for a short lease; Complete marks it "done" for
// the long retention window; Release drops the claim after a failed attempt.
// A worker that dies mid-event leaves only the lease behind, so redelivery
// after the lease expires is processed normally.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultLease covers a single snapshot rebuild with room to spare.
const DefaultLease = 2 * time.Minute

const (
	stateProcessing = "processing"
	stateDone       = "done"
)

// Outcome tells the consumer what to do with a delivery.
type Outcome int

const (
	// Fresh means this delivery holds the claim and should be handled.
	Fresh Outcome = iota
	// Duplicate means the event was already applied; ack it.
	Duplicate
	// InFlight means another delivery holds the claim; nack to retry later.
	InFlight
)

func (o Outcome) String() string {
	switch o {
	case Fresh:
		return "fresh"
	case Duplicate:
		return "duplicate"
	case InFlight:
		return "in_flight"
	}
	return "unknown"
}

// Store is the redis surface the guard needs.
type Store interface {
	Get(context.Context, string) (string, error)
	Set(context.Context, string, any, time.Duration) error
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	Del(context.Context, ...string) error
	IdempotencyKey(scope, id string) string
}

// Guard tracks processed event ids per consumer. Keys follow
// sf:idempotency:evt:<consumer>:<event_id>.
type Guard struct {
	store     Store
	retention time.Duration
	lease     time.Duration
}

// NewGuard remembers completed events for retention. A non-positive lease
// falls back to DefaultLease.
func NewGuard(store Store, retention, lease time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if retention <= 0 {
		return nil, errors.New("retention must be positive")
	}
	if lease <= 0 {
		lease = DefaultLease
	}
	if lease > retention {
		return nil, fmt.Errorf("lease %s exceeds retention %s", lease, retention)
	}
	return &Guard{store: store, retention: retention, lease: lease}, nil
}

// Begin claims the event for consumer.
func (g *Guard) Begin(ctx context.Context, consumer string, eventID uuid.UUID) (Outcome, error) {
	key, err := g.key(consumer, eventID)
	if err != nil {
		return Fresh, err
	}
	claimed, err := g.store.SetNX(ctx, key, stateProcessing, g.lease)
	if err != nil {
		return Fresh, fmt.Errorf("claim %s: %w", key, err)
	}
	if claimed {
		return Fresh, nil
	}

	state, err := g.store.Get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil):
		// the lease lapsed between the two calls; let the redelivery claim it
		return InFlight, nil
	case err != nil:
		return Fresh, fmt.Errorf("read %s: %w", key, err)
	case state == stateDone:
		return Duplicate, nil
	}
	return InFlight, nil
}

// Complete records the event as applied for the retention window.
func (g *Guard) Complete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := g.key(consumer, eventID)
	if err != nil {
		return err
	}
	return g.store.Set(ctx, key, stateDone, g.retention)
}

// Release drops the claim so the next delivery is handled again.
func (g *Guard) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := g.key(consumer, eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *Guard) key(consumer string, eventID uuid.UUID) (string, error) {
	consumer = strings.TrimSpace(consumer)
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey("evt:"+consumer, eventID.String()), nil
}
