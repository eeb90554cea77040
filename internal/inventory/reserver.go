// Package inventory performs the authoritative stock decrement at sale time.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-catalog/pkg/errors"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
	"github.com/angelmondragon/storefront-catalog/pkg/metrics"
)

const defaultMaxRetries = 5

var ErrNotFound = errors.New("item not found")

// Level is the stock counter of one item as read from the store.
type Level struct {
	Stock       int
	TracksStock bool
}

// StockStore is the authoritative counter. CompareAndSwap writes next only
// while the stored value still equals expected and reports whether it did.
type StockStore interface {
	Load(ctx context.Context, itemID uuid.UUID) (Level, error)
	CompareAndSwap(ctx context.Context, itemID uuid.UUID, expected, next int) (bool, error)
}

// Result describes a successful reservation.
type Result struct {
	ItemID    uuid.UUID
	Quantity  int
	Remaining int
	Tracked   bool
	Attempts  int
}

// Reserver decrements stock with optimistic retries. Reservations against one
// item behave as if applied one after another; a reservation either takes the
// full quantity or fails without writing.
type Reserver struct {
	store      StockStore
	maxRetries int
	metrics    *metrics.ReservationMetrics
	logg       *logger.Logger
}

func NewReserver(store StockStore, maxRetries int, m *metrics.ReservationMetrics, logg *logger.Logger) (*Reserver, error) {
	if store == nil {
		return nil, fmt.Errorf("stock store required")
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Reserver{store: store, maxRetries: maxRetries, metrics: m, logg: logg}, nil
}

// WithStore returns a reserver sharing settings but bound to another store,
// typically one scoped to a transaction.
func (r *Reserver) WithStore(store StockStore) *Reserver {
	clone := *r
	clone.store = store
	return &clone
}

func (r *Reserver) Reserve(ctx context.Context, itemID uuid.UUID, qty int) (Result, error) {
	started := time.Now()
	res, outcome, err := r.reserve(ctx, itemID, qty)
	r.metrics.Observe(outcome, time.Since(started))
	if err != nil && r.logg != nil && outcome == metrics.ReservationOutcomeExhausted {
		logCtx := r.logg.WithFields(ctx, map[string]any{"item_id": itemID.String(), "quantity": qty})
		r.logg.Warn(logCtx, "stock reservation gave up after repeated conflicts")
	}
	return res, err
}

func (r *Reserver) reserve(ctx context.Context, itemID uuid.UUID, qty int) (Result, string, error) {
	if qty <= 0 {
		return Result{}, metrics.ReservationOutcomeError, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{}, metrics.ReservationOutcomeError, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stock reservation interrupted")
		}
		level, err := r.store.Load(ctx, itemID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return Result{}, metrics.ReservationOutcomeError, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "item not found").
					WithDetails(map[string]any{"itemId": itemID})
			}
			return Result{}, metrics.ReservationOutcomeError, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
		}
		if !level.TracksStock {
			return Result{ItemID: itemID, Quantity: qty, Remaining: level.Stock, Attempts: attempt}, metrics.ReservationOutcomeReserved, nil
		}
		if level.Stock <= 0 {
			return Result{}, metrics.ReservationOutcomeOutOfStock, pkgerrors.New(pkgerrors.CodeOutOfStock, "item is out of stock").
				WithDetails(map[string]any{"itemId": itemID})
		}
		if level.Stock < qty {
			return Result{}, metrics.ReservationOutcomeQuantityExceedsStock, pkgerrors.New(pkgerrors.CodeQuantityExceedsStock, "requested quantity exceeds stock").
				WithDetails(map[string]any{"itemId": itemID, "requested": qty, "available": level.Stock})
		}
		next := level.Stock - qty
		if next < 0 {
			next = 0
		}
		swapped, err := r.store.CompareAndSwap(ctx, itemID, level.Stock, next)
		if err != nil {
			return Result{}, metrics.ReservationOutcomeError, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write stock")
		}
		if swapped {
			return Result{ItemID: itemID, Quantity: qty, Remaining: next, Tracked: true, Attempts: attempt}, metrics.ReservationOutcomeReserved, nil
		}
		r.metrics.IncConflict()
	}
	return Result{}, metrics.ReservationOutcomeExhausted, pkgerrors.New(pkgerrors.CodeConflict, "stock changed concurrently, try again").
		WithDetails(map[string]any{"itemId": itemID, "attempts": r.maxRetries})
}
