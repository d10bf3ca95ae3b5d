// Package app builds the explicit application context shared by the HTTP
// handlers: configuration, storage, Redis, the cart locker, the event
// publisher, metrics and the services on top of them. main owns its
// lifetime through New and Close.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/shopease-api/internal/config"
	"github.com/iliyamo/shopease-api/internal/database"
	"github.com/iliyamo/shopease-api/internal/lock"
	"github.com/iliyamo/shopease-api/internal/metrics"
	"github.com/iliyamo/shopease-api/internal/queue"
	"github.com/iliyamo/shopease-api/internal/repository"
	"github.com/iliyamo/shopease-api/internal/repository/memstore"
	"github.com/iliyamo/shopease-api/internal/service"
	"github.com/iliyamo/shopease-api/internal/utils"
)

// eventBuffer is the number of order events held in memory while the
// broker catches up.
const eventBuffer = 1024

type App struct {
	Config    config.Config
	Redis     *redis.Client
	Locker    lock.Locker
	Publisher queue.Publisher
	Metrics   *metrics.Metrics
	Tokens    *utils.TokenIssuer

	Auth    *service.AuthService
	Catalog *service.CatalogService
	Cart    *service.CartService
	Orders  *service.OrderService
	Admin   *service.AdminService

	closers []func() error
}

// New wires the services. rdb may be nil; pub may be nil for no events.
func New(cfg config.Config, stores service.Stores, rdb *redis.Client, pub queue.Publisher, m *metrics.Metrics) *App {
	if pub == nil {
		pub = queue.NopPublisher{}
	}
	if m == nil {
		m = metrics.New("api")
	}
	a := &App{
		Config:    cfg,
		Redis:     rdb,
		Locker:    lock.New(rdb, "shopease:lock"),
		Publisher: pub,
		Metrics:   m,
		Tokens:    utils.NewTokenIssuer(cfg.JWTSecret, cfg.UserTokenTTL, cfg.AdminTokenTTL),
	}
	a.Auth = service.NewAuthService(stores.Users, stores.Admins, a.Tokens, cfg.BcryptCost)
	a.Catalog = service.NewCatalogService(stores.Products)
	a.Cart = service.NewCartService(stores.Carts, a.Catalog, a.Locker)
	a.Orders = service.NewOrderService(stores.Orders, a.Catalog, a.Cart, pub, m)
	a.Admin = service.NewAdminService(stores.Orders, pub, m, cfg.ReportTZ)
	a.closers = append(a.closers, pub.Close)
	if rdb != nil {
		a.closers = append(a.closers, rdb.Close)
	}
	return a
}

// OnClose registers fn to run on Close, after the publisher and Redis.
func (a *App) OnClose(fn func() error) { a.closers = append(a.closers, fn) }

// Close releases everything the App owns. The publisher goes first so
// buffered events are flushed before the process exits.
func (a *App) Close() error {
	var errs []error
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenStores returns the store set selected by STORAGE together with a
// function that releases it. For MySQL the embedded schema is applied
// first when DB_AUTO_MIGRATE is set.
func OpenStores(ctx context.Context, cfg config.Config) (service.Stores, func() error, error) {
	if cfg.Storage == config.StorageMemory {
		st := memstore.New()
		return service.Stores{Users: st, Admins: st, Products: st, Carts: st, Orders: st}, func() error { return nil }, nil
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return service.Stores{}, nil, fmt.Errorf("open mysql: %w", err)
	}
	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return service.Stores{}, nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return service.Stores{
		Users:    repository.NewUserRepo(db),
		Admins:   repository.NewAdminRepo(db),
		Products: repository.NewProductRepo(db),
		Carts:    repository.NewCartRepo(db),
		Orders:   repository.NewOrderRepo(db),
	}, db.Close, nil
}

// NewPublisher returns the broker publisher selected by BROKER, wrapped
// so request handlers never wait on the broker.
func NewPublisher(cfg config.Config) queue.Publisher {
	var next queue.Publisher
	switch cfg.Broker {
	case config.BrokerRabbitMQ:
		next = queue.NewRabbitPublisher(cfg.RabbitURL, cfg.OrderEventsTopic)
	case config.BrokerKafka:
		next = queue.NewKafkaPublisher(cfg.KafkaBrokers, cfg.OrderEventsTopic)
	default:
		return queue.NopPublisher{}
	}
	log.Printf("publishing order events to %s (%s)", cfg.Broker, cfg.OrderEventsTopic)
	return queue.NewAsyncPublisher(next, eventBuffer)
}
