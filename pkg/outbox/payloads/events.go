package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-catalog/pkg/enums"
)

// CatalogChangedEvent is emitted when a draft commit changes the item set.
type CatalogChangedEvent struct {
	Created []uuid.UUID `json:"created"`
	Updated []uuid.UUID `json:"updated"`
	Deleted []uuid.UUID `json:"deleted"`
}

// StockReservedEvent records a successful reservation made during checkout.
type StockReservedEvent struct {
	ItemID    uuid.UUID `json:"item_id"`
	OrderID   uuid.UUID `json:"order_id"`
	Quantity  int       `json:"quantity"`
	Remaining int       `json:"remaining"`
}

type OrderPlacedLine struct {
	ItemID   uuid.UUID         `json:"item_id"`
	Name     string            `json:"name"`
	Quantity int               `json:"quantity"`
	Subtotal string            `json:"subtotal"`
	Options  map[string]string `json:"options,omitempty"`
}

// OrderPlacedEvent is emitted once an order and all its reservations commit.
type OrderPlacedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	CustomerName  string              `json:"customer_name"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	TotalAmount   string              `json:"total_amount"`
	Lines         []OrderPlacedLine   `json:"lines"`
}

// OrderStatusChangedEvent is emitted when the owner toggles an order.
type OrderStatusChangedEvent struct {
	OrderID uuid.UUID         `json:"order_id"`
	From    enums.OrderStatus `json:"from"`
	To      enums.OrderStatus `json:"to"`
}

// OrderPickedUpEvent is emitted when a collected order is removed.
type OrderPickedUpEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	PickedUpAt time.Time `json:"picked_up_at"`
}
