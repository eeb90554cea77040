package enums

// OrderStatus is where an order sits on the owner dashboard. Owners toggle it
// between the two values; pickup removes the order.
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusDone    OrderStatus = "done"
)

var orderStatuses = newClosedSet("order status", OrderStatusPending, OrderStatusDone)

func (o OrderStatus) String() string { return string(o) }

func (o OrderStatus) IsValid() bool { return orderStatuses.has(o) }

// Toggled returns the other status.
func (o OrderStatus) Toggled() OrderStatus {
	if o == OrderStatusDone {
		return OrderStatusPending
	}
	return OrderStatusDone
}

func ParseOrderStatus(value string) (OrderStatus, error) { return orderStatuses.parse(value) }
