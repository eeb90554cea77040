// Package orders backs the owner's order dashboard.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-catalog/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-catalog/pkg/errors"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
	"github.com/angelmondragon/storefront-catalog/pkg/outbox"
	"github.com/angelmondragon/storefront-catalog/pkg/outbox/payloads"
	pkgpagination "github.com/angelmondragon/storefront-catalog/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service lists orders by status and moves them through fulfilment.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Get(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	ToggleStatus(ctx context.Context, actor outbox.ActorRef, id uuid.UUID) (*OrderDTO, error)
	Pickup(ctx context.Context, actor outbox.ActorRef, id uuid.UUID) error
}

type service struct {
	repo    *Repository
	tx      txRunner
	emitter outbox.Emitter
	logg    *logger.Logger
}

func NewService(repo *Repository, tx txRunner, emitter outbox.Emitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{repo: repo, tx: tx, emitter: emitter, logg: logg}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	status := params.Status
	if status == "" {
		status = enums.OrderStatusPending
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	query := listQuery{status: status, limit: pkgpagination.LimitWithBuffer(params.Limit)}
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}

	rows, more := pkgpagination.Trim(rows, params.Limit)
	nextCursor := ""
	if more {
		last := rows[len(rows)-1]
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	out := make([]OrderDTO, len(rows))
	for i, row := range rows {
		out[i] = FromModel(row)
	}
	for _, st := range []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusDone} {
		if _, ok := counts[st]; !ok {
			counts[st] = 0
		}
	}
	return &ListResult{Orders: out, Cursor: nextCursor, Counts: counts}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "load order")
	}
	dto := FromModel(*order)
	return &dto, nil
}

// ToggleStatus flips pending to done and back.
func (s *service) ToggleStatus(ctx context.Context, actor outbox.ActorRef, id uuid.UUID) (*OrderDTO, error) {
	var updated OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		from := order.Status
		to := from.Toggled()
		if err := repo.UpdateStatus(ctx, id, from, to); err != nil {
			return err
		}
		order.Status = to
		updated = FromModel(*order)
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   id,
			Actor:         &actor,
			Data:          payloads.OrderStatusChangedEvent{OrderID: id, From: from, To: to},
		})
	})
	if err != nil {
		return nil, mapRepoError(err, "toggle order status")
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"order_id": id.String(), "status": updated.Status})
		s.logg.Info(logCtx, "order status changed")
	}
	return &updated, nil
}

// Pickup removes a collected order from the dashboard.
func (s *service) Pickup(ctx context.Context, actor outbox.ActorRef, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Delete(ctx, id); err != nil {
			return err
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPickedUp,
			AggregateType: enums.AggregateOrder,
			AggregateID:   id,
			Actor:         &actor,
			Data:          payloads.OrderPickedUpEvent{OrderID: id, PickedUpAt: time.Now().UTC()},
		})
	})
	if err != nil {
		return mapRepoError(err, "pick up order")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "order_id", id.String()), "order picked up")
	}
	return nil
}

func mapRepoError(err error, msg string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
	case errors.Is(err, ErrStatusChanged):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order status changed, reload and retry")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
	}
}
