package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"stayhub/internal/app/commands"
	"stayhub/internal/app/dto"
	availabilityapp "stayhub/internal/app/handlers/availability"
	blocksapp "stayhub/internal/app/handlers/blocks"
	"stayhub/internal/app/middleware"
	appoutbox "stayhub/internal/app/outbox"
	"stayhub/internal/app/queries"
	"stayhub/internal/app/uow"
	"stayhub/internal/infra/broker/kafka"
	"stayhub/internal/infra/config"
	mongodb "stayhub/internal/infra/db/mongo"
	"stayhub/internal/infra/db/postgres"
	ginserver "stayhub/internal/infra/http/gin"
	infraoutbox "stayhub/internal/infra/outbox"
	"stayhub/internal/infra/storage/memory"
	"stayhub/internal/infra/storage/s3"
)

// outboxStore is written by command handlers and drained by the relay worker.
type outboxStore interface {
	appoutbox.Outbox
	infraoutbox.Store
}

// storage is the driver-specific part of the application.
type storage struct {
	factory     uow.UoWFactory
	outbox      outboxStore
	idempotency middleware.IdempotencyStore
	ready       func(ctx context.Context) error
	close       func(ctx context.Context) error
}

type application struct {
	handlers   ginserver.Handlers
	ready      func(ctx context.Context) error
	background []func(ctx context.Context) error
	closers    []func(ctx context.Context) error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app := &application{ready: store.ready}
	if store.close != nil {
		app.closers = append(app.closers, store.close)
	}

	commandBus := commands.NewInMemoryBus()
	commands.Register[blocksapp.PlaceBlockCommand, *dto.PlaceBlockResult](commandBus, &blocksapp.PlaceBlockHandler{
		UoWFactory:   store.factory,
		Availability: availabilityapp.Evaluator{UoWFactory: store.factory},
		Outbox:       store.outbox,
		Encoder:      appoutbox.JSONEventEncoder{},
	})
	commands.Register[blocksapp.ReleaseBlockCommand, *dto.ReleaseBlockResult](commandBus, &blocksapp.ReleaseBlockHandler{
		UoWFactory: store.factory,
		Outbox:     store.outbox,
		Encoder:    appoutbox.JSONEventEncoder{},
	})

	queryBus := queries.NewInMemoryBus()
	queries.Register[availabilityapp.GetAvailabilityQuery, dto.AvailabilityReport](queryBus, &availabilityapp.GetAvailabilityHandler{
		UoWFactory: store.factory,
	})

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.LogCommands(logger),
		middleware.Idempotency(store.idempotency, nil, ginserver.KnownErrors()...),
		middleware.Transaction(store.factory, nil),
		middleware.OutboxFlush(store.outbox),
	)
	queryBusWithMiddleware := middleware.ChainQueries(queryBus, middleware.LogQueries(logger))

	app.handlers = ginserver.Handlers{
		Availability: ginserver.AvailabilityHandler{Queries: queryBusWithMiddleware},
		Blocks:       ginserver.BlockHandler{Commands: commandBusWithMiddleware},
	}

	if cfg.S3Enabled() {
		client, err := s3.NewClient(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicEndpoint, logger)
		if err != nil {
			app.close(logger)
			return nil, err
		}
		app.handlers.Snapshots = ginserver.SnapshotHandler{
			Queries: queryBusWithMiddleware,
			Archive: s3.SnapshotArchive{Store: client},
		}
	} else {
		logger.Info("S3 not configured, availability snapshots disabled")
	}

	if cfg.KafkaEnabled() {
		if err := app.wireKafka(cfg, store.outbox, commandBusWithMiddleware, logger); err != nil {
			app.close(logger)
			return nil, err
		}
	} else {
		logger.Info("Kafka not configured, outbox relay and channel ingest disabled")
	}
	return app, nil
}

func (a *application) wireKafka(cfg config.Config, box infraoutbox.Store, bus commands.Bus, logger *slog.Logger) error {
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return producer.Close() })
	worker := &infraoutbox.Worker{
		Store:       box,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}
	a.background = append(a.background, worker.Run)

	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, nil, kafka.ChannelBlockHandler{
		Commands: bus,
		Logger:   logger,
	}, logger)
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.Backoff = cfg.RetryBackoff
	a.closers = append(a.closers, func(context.Context) error { return consumer.Close() })
	a.background = append(a.background, func(ctx context.Context) error {
		return consumer.Run(ctx, []string{cfg.KafkaChannelTopic})
	})
	return nil
}

func (a *application) close(logger *slog.Logger) {
	ctx := context.Background()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		return openMongo(ctx, cfg)
	case config.DriverPostgres:
		return openPostgres(ctx, cfg)
	default:
		return openMemory(ctx, cfg, logger)
	}
}

func openMemory(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	props := memory.NewPropertyRepository()
	bookings := memory.NewBookingRepository()
	blocks := memory.NewBlockRepository()

	path := cfg.PropertyFixtures
	if path == "" {
		path = defaultFixturesPath()
	}
	if err := loadFixtures(ctx, path, fixtureTargets{properties: props, bookings: bookings, blocks: blocks}, logger); err != nil {
		logger.Warn("property fixtures load failed", "error", err, "path", path)
	}

	return storage{
		factory:     memory.Factory{PropertiesRepo: props, BookingsRepo: bookings, BlocksRepo: blocks},
		outbox:      memory.NewOutbox(),
		idempotency: memory.NewIdempotencyStore(),
		ready:       func(context.Context) error { return nil },
	}, nil
}

func openMongo(ctx context.Context, cfg config.Config) (storage, error) {
	client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return storage{}, fmt.Errorf("mongo connect: %w", err)
	}
	box, err := infraoutbox.NewMongoStore(ctx, client.DB)
	if err != nil {
		_ = client.Close(ctx)
		return storage{}, fmt.Errorf("mongo outbox: %w", err)
	}
	idem, err := mongodb.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
	if err != nil {
		_ = client.Close(ctx)
		return storage{}, fmt.Errorf("mongo idempotency: %w", err)
	}
	return storage{
		factory: mongodb.Factory{
			DB:             client.DB,
			PropertiesRepo: mongodb.NewPropertyRepository(client.DB),
			BookingsRepo:   mongodb.NewBookingRepository(client.DB),
			BlocksRepo:     mongodb.NewBlockRepository(client.DB),
		},
		outbox:      box,
		idempotency: idem,
		ready:       client.Ping,
		close:       client.Close,
	}, nil
}

func openPostgres(ctx context.Context, cfg config.Config) (storage, error) {
	pool, err := postgres.NewClient(ctx, cfg.DatabaseURL)
	if err != nil {
		return storage{}, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return storage{}, err
	}
	return storage{
		factory:     postgres.Factory{Pool: pool},
		outbox:      postgres.OutboxStore{Pool: pool},
		idempotency: postgres.IdempotencyStore{Pool: pool},
		ready:       pool.Ping,
		close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}, nil
}

func defaultFixturesPath() string {
	candidates := []string{"data/fixtures.json", "../../data/fixtures.json"}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}
