// Package queue defines the order event payload and moves it over the
// configured broker: RabbitMQ, Kafka or nowhere at all.
package queue

// Event types carried in OrderEvent.Type.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent is published whenever an order is created or its status
// changes. It carries enough for downstream consumers to log, notify or
// feed analytics without querying the primary database. Money is a
// two-decimal string so no precision is lost on the wire.
type OrderEvent struct {
	EventID        string `json:"event_id"`
	Type           string `json:"type"`
	OrderID        uint64 `json:"order_id"`
	OrderNumber    string `json:"order_number"`
	UserID         uint64 `json:"user_id"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status,omitempty"`
	TotalPrice     string `json:"total_price"`
	ItemCount      int    `json:"item_count"`
	Actor          string `json:"actor"`
	Reason         string `json:"reason,omitempty"`
	OccurredAt     string `json:"occurred_at"`
}

// Key partitions events by order so consumers see each order's events in
// publish order.
func (e OrderEvent) Key() string { return e.OrderNumber }
