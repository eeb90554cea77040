package enums

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateCatalog OutboxAggregateType = "catalog"
	AggregateItem    OutboxAggregateType = "item"
	AggregateOrder   OutboxAggregateType = "order"
)

var aggregateTypes = newClosedSet("aggregate type", AggregateCatalog, AggregateItem, AggregateOrder)

func (a OutboxAggregateType) IsValid() bool { return aggregateTypes.has(a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return aggregateTypes.parse(value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventCatalogChanged     OutboxEventType = "catalog_changed"
	EventStockReserved      OutboxEventType = "stock_reserved"
	EventOrderPlaced        OutboxEventType = "order_placed"
	EventOrderStatusChanged OutboxEventType = "order_status_changed"
	EventOrderPickedUp      OutboxEventType = "order_picked_up"
)

var eventTypes = newClosedSet("event type",
	EventCatalogChanged,
	EventStockReserved,
	EventOrderPlaced,
	EventOrderStatusChanged,
	EventOrderPickedUp,
)

func (e OutboxEventType) IsValid() bool { return eventTypes.has(e) }

func ParseOutboxEventType(value string) (OutboxEventType, error) { return eventTypes.parse(value) }
