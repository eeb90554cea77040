package catalog

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/storefront-catalog/pkg/enums"
)

// Envelope is the decoded form of a Pub/Sub message published from the outbox.
type Envelope struct {
	EventID       string
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	OccurredAt    time.Time
	Payload       json.RawMessage
}
