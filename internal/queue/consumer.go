package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
)

// EventLog appends one human readable line per order event to a file,
// creating the parent directory on first use.
type EventLog struct {
	Path string
}

// Append decodes body and writes its log line.
func (l EventLog) Append(body []byte) error {
	var ev OrderEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.Path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(l.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders ev as a single newline terminated line.
func FormatLine(ev OrderEvent) string {
	switch ev.Type {
	case EventOrderCreated:
		return fmt.Sprintf("[%s] Order created | order_id=%d | order_number=%s | user_id=%d | status=%s | total=%s | items=%d\n",
			ev.OccurredAt, ev.OrderID, ev.OrderNumber, ev.UserID, ev.Status, ev.TotalPrice, ev.ItemCount)
	default:
		line := fmt.Sprintf("[%s] Order status changed | order_id=%d | order_number=%s | %s -> %s | by=%s",
			ev.OccurredAt, ev.OrderID, ev.OrderNumber, ev.PreviousStatus, ev.Status, ev.Actor)
		if ev.Reason != "" {
			line += fmt.Sprintf(" | reason=%q", ev.Reason)
		}
		return line + "\n"
	}
}

// ConsumeRabbit declares the durable queue and appends every delivery to
// sink. It reconnects with backoff until ctx is cancelled.
func ConsumeRabbit(ctx context.Context, url, queue string, sink EventLog) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("order-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = rabbitLoop(ctx, conn, queue, sink)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("order-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func rabbitLoop(ctx context.Context, conn *amqp.Connection, queue string, sink EventLog) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("order-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := sink.Append(d.Body); err != nil {
				log.Printf("order-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// ConsumeKafka reads the topic as part of groupID and appends every
// message to sink, committing offsets after each write.
func ConsumeKafka(ctx context.Context, brokersCSV, topic, groupID string, sink EventLog) error {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  ParseBrokers(brokersCSV),
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	defer r.Close()

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("order-consumer: fetch failed: %v", err)
			if !sleep(ctx, time.Second) {
				return ctx.Err()
			}
			continue
		}
		if err := sink.Append(m.Value); err != nil {
			log.Printf("order-consumer: handle message failed: %v", err)
		}
		if err := r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			log.Printf("order-consumer: commit failed: %v", err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
