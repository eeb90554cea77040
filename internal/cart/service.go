package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-catalog/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront-catalog/pkg/errors"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
	"github.com/angelmondragon/storefront-catalog/pkg/redis"
)

// Store persists serialized carts.
type Store interface {
	redis.KV
	CartKey(cartID string) string
}

// ItemReader returns the live item so quantities can be checked against stock.
type ItemReader interface {
	Get(ctx context.Context, id uuid.UUID) (catalog.Item, error)
}

type Service interface {
	Create(ctx context.Context) (*Cart, error)
	Get(ctx context.Context, cartID string) (*Cart, error)
	AddLine(ctx context.Context, cartID string, line catalog.CartLine) (*Cart, error)
	UpdateQuantity(ctx context.Context, cartID, lineID string, qty int) (*Cart, error)
	RemoveLine(ctx context.Context, cartID, lineID string) (*Cart, error)
	Clear(ctx context.Context, cartID string) error
}

type service struct {
	store Store
	items ItemReader
	ttl   time.Duration
	logg  *logger.Logger
}

func NewService(store Store, items ItemReader, ttl time.Duration, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if items == nil {
		return nil, fmt.Errorf("item reader required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cart ttl must be positive")
	}
	return &service{store: store, items: items, ttl: ttl, logg: logg}, nil
}

func (s *service) Create(ctx context.Context) (*Cart, error) {
	c := &Cart{ID: uuid.NewString(), Lines: []Line{}}
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) Get(ctx context.Context, cartID string) (*Cart, error) {
	return s.load(ctx, cartID)
}

// AddLine merges into an existing line for the same item and selections,
// otherwise appends a new line.
func (s *service) AddLine(ctx context.Context, cartID string, line catalog.CartLine) (*Cart, error) {
	if line.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if line.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	c, err := s.load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if line.SelectedOptions == nil {
		line.SelectedOptions = map[string]string{}
	}

	idx := c.matching(line)
	if err := s.checkStock(ctx, line.ItemID, c.QuantityFor(line)+line.Quantity); err != nil {
		return nil, err
	}
	if idx >= 0 {
		c.Lines[idx].Quantity += line.Quantity
	} else {
		c.Lines = append(c.Lines, Line{ID: uuid.NewString(), CartLine: line})
	}
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithCartID(ctx, c.ID), map[string]any{"item_id": line.ItemID.String(), "quantity": line.Quantity})
		s.logg.Info(logCtx, "cart line added")
	}
	return c, nil
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
func (s *service) UpdateQuantity(ctx context.Context, cartID, lineID string, qty int) (*Cart, error) {
	c, err := s.load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	idx := c.find(lineID)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found").
			WithDetails(map[string]any{"lineId": lineID})
	}
	if qty <= 0 {
		c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
	} else {
		line := c.Lines[idx]
		others := c.QuantityFor(line.CartLine) - line.Quantity
		if err := s.checkStock(ctx, line.ItemID, others+qty); err != nil {
			return nil, err
		}
		c.Lines[idx].Quantity = qty
	}
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) RemoveLine(ctx context.Context, cartID, lineID string) (*Cart, error) {
	return s.UpdateQuantity(ctx, cartID, lineID, 0)
}

func (s *service) Clear(ctx context.Context, cartID string) error {
	if err := s.store.Del(ctx, s.store.CartKey(cartID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) checkStock(ctx context.Context, itemID uuid.UUID, wanted int) error {
	it, err := s.items.Get(ctx, itemID)
	if err != nil {
		return err
	}
	if !it.TracksStock {
		return nil
	}
	if it.Stock <= 0 {
		return pkgerrors.New(pkgerrors.CodeOutOfStock, "item is out of stock").
			WithDetails(map[string]any{"itemId": itemID})
	}
	if wanted > it.Stock {
		return pkgerrors.New(pkgerrors.CodeQuantityExceedsStock, "requested quantity exceeds stock").
			WithDetails(map[string]any{"itemId": itemID, "requested": wanted, "available": it.Stock})
	}
	return nil
}

func (s *service) load(ctx context.Context, cartID string) (*Cart, error) {
	cartID = strings.TrimSpace(cartID)
	if _, err := uuid.Parse(cartID); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cart id")
	}
	raw, err := s.store.Get(ctx, s.store.CartKey(cartID))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	var c Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cart")
	}
	if c.Lines == nil {
		c.Lines = []Line{}
	}
	return &c, nil
}

func (s *service) save(ctx context.Context, c *Cart) error {
	c.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(c)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	if err := s.store.Set(ctx, s.store.CartKey(c.ID), string(raw), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return nil
}
