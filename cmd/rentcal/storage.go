package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rentcal/internal/app/middleware"
	appoutbox "rentcal/internal/app/outbox"
	"rentcal/internal/app/uow"
	"rentcal/internal/infra/broker/kafka"
	"rentcal/internal/infra/config"
	mongostore "rentcal/internal/infra/db/mongo"
	"rentcal/internal/infra/outbox"
	"rentcal/internal/infra/sqlstore"
	"rentcal/internal/infra/storage/memory"
)

// backend bundles the adapters chosen by the storage mode.
type backend struct {
	factory     uow.UoWFactory
	outbox      appoutbox.Outbox
	idempotency middleware.IdempotencyStore
	relay       *outbox.Worker
	ready       func(ctx context.Context) error
	closers     []func()
}

func (b *backend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	switch cfg.Storage {
	case config.StorageMongo:
		return openMongo(ctx, cfg, logger)
	case config.StoragePostgres:
		return openSQL(sqlstore.DriverPostgres, cfg.PostgresDSN, cfg, logger)
	case config.StorageSQLite:
		return openSQL(sqlstore.DriverSQLite, cfg.SQLitePath, cfg, logger)
	default:
		b := &backend{
			factory:     memory.Factory{OccupancyRepo: memory.NewOccupancyRepository()},
			outbox:      localOutbox(logger),
			idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
			ready:       func(context.Context) error { return nil },
		}
		warnRelayUnavailable(cfg, logger)
		return b, nil
	}
}

func openMongo(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	b := &backend{
		closers: []func(){func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Close(closeCtx)
		}},
	}
	store := outbox.NewMongoStore(ctx, client.DB)
	b.factory = mongostore.Factory{DB: client.DB, OccupancyRepo: mongostore.NewOccupancyRepository(ctx, client.DB)}
	b.outbox = store
	b.idempotency = mongostore.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
	b.ready = client.Ping

	if cfg.RelayEnabled() {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, "rentcal", nil)
		if err != nil {
			b.close()
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		b.closers = append(b.closers, func() { _ = producer.Close() })
		b.relay = &outbox.Worker{
			Store:       store,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Source:      cfg.EventSource,
			Backoff:     cfg.RetryBackoff,
			Logger:      logger.With("component", "outbox"),
		}
	}
	return b, nil
}

func openSQL(driver, dsn string, cfg config.Config, logger *slog.Logger) (*backend, error) {
	db, err := sqlstore.Open(driver, dsn, cfg.SQLDebug)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	warnRelayUnavailable(cfg, logger)
	return &backend{
		factory:     sqlstore.Factory{DB: db},
		outbox:      localOutbox(logger),
		idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
		ready:       sqlDB.PingContext,
		closers:     []func(){func() { _ = sqlDB.Close() }},
	}, nil
}

// localOutbox drops flushed records after logging them.
func localOutbox(logger *slog.Logger) *memory.Outbox {
	box := memory.NewOutbox()
	box.Sink = func(ctx context.Context, records []appoutbox.EventRecord) {
		for _, rec := range records {
			logger.DebugContext(ctx, "domain event", "event", rec.Name, "aggregate", rec.Aggregate, "id", rec.ID)
		}
	}
	return box
}

func warnRelayUnavailable(cfg config.Config, logger *slog.Logger) {
	if cfg.RelayEnabled() {
		logger.Warn("kafka brokers configured but the outbox relay needs mongo storage; events will not be published",
			"storage", cfg.Storage)
	}
}
