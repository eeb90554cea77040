// Package checkout turns a cart into an order, reserving stock for every
// distinct item inside the same transaction that writes the order.
package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-catalog/internal/cart"
	"github.com/angelmondragon/storefront-catalog/internal/inventory"
	"github.com/angelmondragon/storefront-catalog/internal/orders"
	"github.com/angelmondragon/storefront-catalog/pkg/db/models"
	"github.com/angelmondragon/storefront-catalog/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-catalog/pkg/errors"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
	"github.com/angelmondragon/storefront-catalog/pkg/outbox"
	"github.com/angelmondragon/storefront-catalog/pkg/outbox/payloads"
)

const (
	defaultEmail        = "N/A"
	defaultInstructions = "None"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartStore interface {
	Get(ctx context.Context, cartID string) (*cart.Cart, error)
	Clear(ctx context.Context, cartID string) error
}

// Customer identifies who collects the order.
type Customer struct {
	Name         string
	Phone        string
	Email        string
	Instructions string
}

// Payment is the outcome reported by the payment provider. Only whether it
// was authorized matters here.
type Payment struct {
	Method        enums.PaymentMethod
	Authorized    bool
	TransactionID string
}

type Input struct {
	CartID   string
	Customer Customer
	Payment  Payment
}

type Service interface {
	PlaceOrder(ctx context.Context, input Input) (*orders.OrderDTO, error)
}

type service struct {
	tx       txRunner
	carts    cartStore
	orders   *orders.Repository
	reserver *inventory.Reserver
	stock    *inventory.GormStockStore
	emitter  outbox.Emitter
	logg     *logger.Logger
}

func NewService(
	tx txRunner,
	carts cartStore,
	ordersRepo *orders.Repository,
	reserver *inventory.Reserver,
	stock *inventory.GormStockStore,
	emitter outbox.Emitter,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if reserver == nil {
		return nil, fmt.Errorf("stock reserver required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock store required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		tx:       tx,
		carts:    carts,
		orders:   ordersRepo,
		reserver: reserver,
		stock:    stock,
		emitter:  emitter,
		logg:     logg,
	}, nil
}

// reservation is the summed quantity of one item across cart lines.
type reservation struct {
	itemID uuid.UUID
	qty    int
}

// PlaceOrder reserves stock and writes the order in one transaction. Any
// reservation failure rolls the whole order back. The cart is cleared only
// after the transaction commits.
func (s *service) PlaceOrder(ctx context.Context, input Input) (*orders.OrderDTO, error) {
	customer, err := normalizeCustomer(input.Customer)
	if err != nil {
		return nil, err
	}
	if err := checkPayment(input.Payment); err != nil {
		return nil, err
	}

	c, err := s.carts.Get(ctx, input.CartID)
	if err != nil {
		return nil, err
	}
	if len(c.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	order := buildOrder(c, customer, input.Payment)
	reservations := distinctItems(c)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		reserver := s.reserver.WithStore(s.stock.WithTx(tx))
		results := make([]inventory.Result, 0, len(reservations))
		for _, r := range reservations {
			res, err := reserver.Reserve(ctx, r.itemID, r.qty)
			if err != nil {
				return err
			}
			results = append(results, res)
		}

		if _, err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}
		if err := s.emitter.Emit(ctx, tx, orderPlacedEvent(order)); err != nil {
			return err
		}
		for _, res := range results {
			if !res.Tracked {
				continue
			}
			if err := s.emitter.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventStockReserved,
				AggregateType: enums.AggregateItem,
				AggregateID:   res.ItemID,
				Data: payloads.StockReservedEvent{
					ItemID:    res.ItemID,
					OrderID:   order.ID,
					Quantity:  res.Quantity,
					Remaining: res.Remaining,
				},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.failure(ctx, input, err)
	}

	if err := s.carts.Clear(ctx, c.ID); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithCartID(ctx, c.ID), "failed to clear cart after checkout", err)
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithCartID(ctx, c.ID), map[string]any{
			"order_id":       order.ID.String(),
			"payment_method": order.PaymentMethod,
			"total":          order.TotalAmount.StringFixed(2),
		})
		s.logg.Info(logCtx, "order placed")
	}
	dto := orders.FromModel(*order)
	return &dto, nil
}

// failure keeps domain errors as they are. Anything else after a card
// authorization means money moved without stock being taken.
func (s *service) failure(ctx context.Context, input Input, err error) error {
	if typed := pkgerrors.As(err); typed != nil && typed.Code() != pkgerrors.CodeDependency && typed.Code() != pkgerrors.CodeInternal {
		return err
	}
	if input.Payment.Method == enums.PaymentMethodCard {
		if s.logg != nil {
			logCtx := s.logg.WithFields(s.logg.WithCartID(ctx, input.CartID), map[string]any{
				"transaction_id": input.Payment.TransactionID,
			})
			s.logg.Error(logCtx, "payment succeeded but stock update failed", err)
		}
		return pkgerrors.Wrap(pkgerrors.CodePaymentStockAnomaly, err, "payment succeeded but stock update failed").
			WithDetails(map[string]any{"transactionId": input.Payment.TransactionID})
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "place order")
}

func normalizeCustomer(c Customer) (Customer, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Email = strings.TrimSpace(c.Email)
	c.Instructions = strings.TrimSpace(c.Instructions)
	missing := []string{}
	if c.Name == "" {
		missing = append(missing, "name")
	}
	if c.Phone == "" {
		missing = append(missing, "phone")
	}
	if len(missing) > 0 {
		return c, pkgerrors.New(pkgerrors.CodeValidation, "customer details are incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	if c.Email == "" {
		c.Email = defaultEmail
	}
	if c.Instructions == "" {
		c.Instructions = defaultInstructions
	}
	return c, nil
}

// checkPayment enforces that reservations only run after authorization.
// Cash on pickup is committed by placing the order.
func checkPayment(p Payment) error {
	switch p.Method {
	case enums.PaymentMethodCashPickup:
		return nil
	case enums.PaymentMethodCard:
		if !p.Authorized || strings.TrimSpace(p.TransactionID) == "" {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "card payment has not been authorized")
		}
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}
}

func distinctItems(c *cart.Cart) []reservation {
	out := []reservation{}
	index := map[uuid.UUID]int{}
	for _, l := range c.Lines {
		if i, ok := index[l.ItemID]; ok {
			out[i].qty += l.Quantity
			continue
		}
		index[l.ItemID] = len(out)
		out = append(out, reservation{itemID: l.ItemID, qty: l.Quantity})
	}
	return out
}

func buildOrder(c *cart.Cart, customer Customer, payment Payment) *models.Order {
	order := &models.Order{
		ID:            uuid.New(),
		CustomerName:  customer.Name,
		CustomerPhone: customer.Phone,
		CustomerEmail: customer.Email,
		Instructions:  customer.Instructions,
		Status:        enums.OrderStatusPending,
		PaymentMethod: payment.Method,
		TotalAmount:   decimal.Zero,
	}
	if ref := strings.TrimSpace(payment.TransactionID); ref != "" {
		order.PaymentReference = &ref
	}
	for _, l := range c.Lines {
		subtotal := l.Subtotal()
		order.TotalAmount = order.TotalAmount.Add(subtotal)
		order.Lines = append(order.Lines, models.OrderLine{
			OrderID:         order.ID,
			ItemID:          l.ItemID,
			Name:            l.Name,
			UnitPrice:       l.UnitPrice,
			Quantity:        l.Quantity,
			Subtotal:        subtotal,
			SelectedOptions: l.SelectedOptions.Clone(),
			TracksStock:     l.TracksStock,
		})
	}
	return order
}

func orderPlacedEvent(order *models.Order) outbox.DomainEvent {
	lines := make([]payloads.OrderPlacedLine, 0, len(order.Lines))
	for _, l := range order.Lines {
		lines = append(lines, payloads.OrderPlacedLine{
			ItemID:   l.ItemID,
			Name:     l.Name,
			Quantity: l.Quantity,
			Subtotal: l.Subtotal.StringFixed(2),
			Options:  l.SelectedOptions,
		})
	}
	return outbox.DomainEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderPlacedEvent{
			OrderID:       order.ID,
			CustomerName:  order.CustomerName,
			PaymentMethod: order.PaymentMethod,
			TotalAmount:   order.TotalAmount.StringFixed(2),
			Lines:         lines,
		},
	}
}
