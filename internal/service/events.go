package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/shopease-api/internal/metrics"
	"github.com/iliyamo/shopease-api/internal/model"
	"github.com/iliyamo/shopease-api/internal/queue"
)

// Actors recorded on status change events.
const (
	ActorCustomer = "customer"
	ActorAdmin    = "admin"
)

// eventSink publishes order events and counts order activity. Publishing
// is best effort: failures are logged and counted, never returned.
type eventSink struct {
	pub     queue.Publisher
	metrics *metrics.Metrics
	now     func() time.Time
}

func newEventSink(pub queue.Publisher, m *metrics.Metrics) eventSink {
	if pub == nil {
		pub = queue.NopPublisher{}
	}
	return eventSink{pub: pub, metrics: m, now: time.Now}
}

func (s eventSink) publish(ctx context.Context, ev queue.OrderEvent) {
	ev.EventID = uuid.NewString()
	ev.OccurredAt = s.now().UTC().Format(time.RFC3339)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.pub.Publish(ctx, ev); err != nil {
		log.Printf("events: publish %s for %s failed: %v", ev.Type, ev.OrderNumber, err)
		if s.metrics != nil {
			s.metrics.EventFailures.Inc()
		}
	}
}

func (s eventSink) orderCreated(ctx context.Context, o model.Order) {
	if s.metrics != nil {
		s.metrics.OrdersCreated.WithLabelValues(string(o.PaymentMethod)).Inc()
	}
	s.publish(ctx, queue.OrderEvent{
		Type:        queue.EventOrderCreated,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Status:      string(o.Status),
		TotalPrice:  o.TotalPrice.StringFixed(2),
		ItemCount:   len(o.Items),
		Actor:       ActorCustomer,
	})
}

func (s eventSink) statusChanged(ctx context.Context, o model.Order, prev model.OrderStatus, actor, reason string) {
	if s.metrics != nil {
		s.metrics.StatusChanges.WithLabelValues(string(o.Status)).Inc()
	}
	s.publish(ctx, queue.OrderEvent{
		Type:           queue.EventOrderStatusChanged,
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		UserID:         o.UserID,
		Status:         string(o.Status),
		PreviousStatus: string(prev),
		TotalPrice:     o.TotalPrice.StringFixed(2),
		ItemCount:      len(o.Items),
		Actor:          actor,
		Reason:         reason,
	})
}
