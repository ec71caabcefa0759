package orders

import (
	"encoding/json"
	"strconv"
	"time"
)

const (
	TopicOrderEvents = "order.events"

	EventOrderConfirmed = "OrderConfirmed"
	EventOrderDeleted   = "OrderDeleted"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type EventItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type OrderConfirmedPayload struct {
	OrderID     int64       `json:"order_id"`
	UserID      int64       `json:"user_id"`
	TotalAmount string      `json:"total_amount"`
	Items       []EventItem `json:"items"`
}

type OrderDeletedPayload struct {
	OrderID   int64       `json:"order_id"`
	Restocked []EventItem `json:"restocked"`
}

// Partition key = order_id so all events for one order keep their order.
func PartitionKey(orderID int64) []byte {
	return []byte(strconv.FormatInt(orderID, 10))
}
