package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/angelmondragon/storefront-catalog/internal/catalog"
	"github.com/angelmondragon/storefront-catalog/pkg/enums"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
	"github.com/angelmondragon/storefront-catalog/pkg/outbox/payloads"
)

// ErrUnsupportedEventType is returned for events the snapshot worker ignores.
var ErrUnsupportedEventType = errors.New("unsupported event type")

// Snapshot is the part of the catalog snapshot cache the worker drives.
type Snapshot interface {
	Invalidate(ctx context.Context) error
	Rebuild(ctx context.Context) ([]domain.Item, error)
}

// Router keeps the cached catalog snapshot in step with catalog and stock events.
type Router struct {
	snapshot Snapshot
	logg     *logger.Logger
}

func NewRouter(snapshot Snapshot, logg *logger.Logger) (*Router, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("snapshot required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Router{snapshot: snapshot, logg: logg}, nil
}

// Handle rebuilds the snapshot on catalog_changed and drops it on stock_reserved.
func (r *Router) Handle(ctx context.Context, envelope Envelope) error {
	switch envelope.EventType {
	case enums.EventCatalogChanged:
		var event payloads.CatalogChangedEvent
		if err := json.Unmarshal(envelope.Payload, &event); err != nil {
			return fmt.Errorf("decode catalog_changed: %w", err)
		}
		ctx = r.logg.WithFields(ctx, map[string]any{
			"created": len(event.Created),
			"updated": len(event.Updated),
			"deleted": len(event.Deleted),
		})
		items, err := r.snapshot.Rebuild(ctx)
		if err != nil {
			return fmt.Errorf("rebuild snapshot: %w", err)
		}
		r.logg.Info(r.logg.WithField(ctx, "items", len(items)), "catalog snapshot rebuilt")
		return nil
	case enums.EventStockReserved:
		var event payloads.StockReservedEvent
		if err := json.Unmarshal(envelope.Payload, &event); err != nil {
			return fmt.Errorf("decode stock_reserved: %w", err)
		}
		ctx = r.logg.WithFields(ctx, map[string]any{
			"item_id":   event.ItemID.String(),
			"remaining": event.Remaining,
		})
		if err := r.snapshot.Invalidate(ctx); err != nil {
			return fmt.Errorf("invalidate snapshot: %w", err)
		}
		r.logg.Debug(ctx, "catalog snapshot invalidated")
		return nil
	default:
		return ErrUnsupportedEventType
	}
}
