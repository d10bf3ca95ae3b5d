// Command order-consumer reads order events from the configured broker
// and appends one line per event to an audit log.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/shopease-api/internal/config"
	"github.com/iliyamo/shopease-api/internal/queue"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	sink := queue.EventLog{Path: envOr("ORDER_EVENTS_LOG", "logs/orders.log")}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cfg.Broker {
	case config.BrokerKafka:
		log.Printf("order-consumer: kafka topic %s -> %s", cfg.OrderEventsTopic, sink.Path)
		err = queue.ConsumeKafka(ctx, cfg.KafkaBrokers, cfg.OrderEventsTopic, envOr("KAFKA_GROUP_ID", "order-consumer"), sink)
	default:
		log.Printf("order-consumer: rabbitmq queue %s -> %s", cfg.OrderEventsTopic, sink.Path)
		err = queue.ConsumeRabbit(ctx, cfg.RabbitURL, cfg.OrderEventsTopic, sink)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("order-consumer: %v", err)
	}
	log.Printf("order-consumer: stopped")
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
