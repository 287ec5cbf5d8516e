package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Abinashmotract/labour-backend-sub000/internal/applications"
	"github.com/Abinashmotract/labour-backend-sub000/internal/audit"
	"github.com/Abinashmotract/labour-backend-sub000/internal/availability"
	"github.com/Abinashmotract/labour-backend-sub000/internal/clock"
	"github.com/Abinashmotract/labour-backend-sub000/internal/config"
	"github.com/Abinashmotract/labour-backend-sub000/internal/database"
	"github.com/Abinashmotract/labour-backend-sub000/internal/events"
	"github.com/Abinashmotract/labour-backend-sub000/internal/geo"
	"github.com/Abinashmotract/labour-backend-sub000/internal/geo/redisgeo"
	"github.com/Abinashmotract/labour-backend-sub000/internal/jobs"
	"github.com/Abinashmotract/labour-backend-sub000/internal/match"
	"github.com/Abinashmotract/labour-backend-sub000/internal/notify"
	"github.com/Abinashmotract/labour-backend-sub000/internal/reminder"
	"github.com/Abinashmotract/labour-backend-sub000/internal/skills"
	"github.com/Abinashmotract/labour-backend-sub000/internal/storage"
	"github.com/Abinashmotract/labour-backend-sub000/internal/storage/redisstore"
	"github.com/Abinashmotract/labour-backend-sub000/internal/telemetry"
)

func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()
	return config.LoadConfig()
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return zap.NewProduction()
}

func newClock() clock.Clock {
	return clock.System()
}

func newRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func newNATSConnection(cfg *config.Config) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Timeout(cfg.NATSConnTimeout),
		nats.Name("matcher-service"),
		nats.RetryOnFailedConnect(true),
	}
	return nats.Connect(cfg.NATSURL, opts...)
}

func newClickHouseConnection(cfg *config.Config, logger *zap.Logger) (clickhouse.Conn, error) {
	db, err := database.New(context.Background(), database.Options{
		DSN:             cfg.ClickHouseDSN,
		MaxOpenConns:    cfg.ClickHouseMaxOpenConns,
		MaxIdleConns:    cfg.ClickHouseMaxIdleConns,
		ConnMaxLifetime: cfg.ClickHouseConnMaxLife,
		Username:        cfg.ClickHouseUsername,
		Password:        cfg.ClickHousePassword,
		Database:        cfg.ClickHouseDatabase,
	}, logger)
	if err != nil {
		return nil, err
	}
	return db.Conn(), nil
}

func newAuditSink(conn clickhouse.Conn, logger *zap.Logger) audit.Sink {
	return audit.NewClickHouseSink(conn, logger)
}

func newJobStore(client *redis.Client, logger *zap.Logger) storage.JobStore {
	return redisstore.NewJobs(client, logger)
}

func newAvailabilityStore(client *redis.Client, logger *zap.Logger) storage.AvailabilityStore {
	return redisstore.NewAvailability(client, logger)
}

func newApplicationStore(client *redis.Client, logger *zap.Logger) storage.ApplicationStore {
	return redisstore.NewApplications(client, logger)
}

func newTokenDirectory(client *redis.Client) storage.TokenDirectory {
	return redisstore.NewTokens(client)
}

func newReminderLedger(client *redis.Client, cfg *config.Config) storage.ReminderLedger {
	return redisstore.NewReminders(client, cfg.ReminderTTL)
}

func newGeoIndex(client *redis.Client) geo.Index {
	return redisgeo.New(client)
}

func newSkillCatalog(client *redis.Client) skills.Catalog {
	return skills.NewRedisCatalog(client)
}

func newPublisher(nc *nats.Conn, logger *zap.Logger) events.Publisher {
	return events.NewPublisherWithConn(nc, logger)
}

func newFanout(logger *zap.Logger, cfg *config.Config) notify.Fanout {
	return notify.NewPushClient(logger, cfg)
}

func newJobRegistry(
	store storage.JobStore,
	catalog skills.Catalog,
	geoIndex geo.Index,
	publisher events.Publisher,
	clk clock.Clock,
	logger *zap.Logger,
	cfg *config.Config,
) *jobs.Registry {
	return jobs.NewRegistry(store, catalog, geoIndex, publisher, clk, logger, cfg.DefaultRadiusMeters)
}

func newMatchDispatcher(
	jobStore storage.JobStore,
	availabilityStore storage.AvailabilityStore,
	geoIndex geo.Index,
	tokens storage.TokenDirectory,
	fanout notify.Fanout,
	sink audit.Sink,
	clk clock.Clock,
	logger *zap.Logger,
	cfg *config.Config,
) *match.Dispatcher {
	return match.NewDispatcher(jobStore, availabilityStore, geoIndex, tokens, fanout, sink, clk, logger, cfg.MatchQueryLimit)
}

func initTelemetry(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) {
	if cfg.OTELCollectorURL == "" {
		return
	}
	shutdown, err := telemetry.InitTracer(context.Background(), "matcher-service", cfg.OTELCollectorURL)
	if err != nil {
		logger.Warn("failed to initialize tracing", zap.Error(err))
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			shutdown()
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			loadConfig,
			newLogger,
			newClock,
			newRedisClient,
			newNATSConnection,
			newClickHouseConnection,
			newAuditSink,
			newJobStore,
			newAvailabilityStore,
			newApplicationStore,
			newTokenDirectory,
			newReminderLedger,
			newGeoIndex,
			newSkillCatalog,
			newPublisher,
			newFanout,
			newJobRegistry,
			availability.NewRegistry,
			applications.NewMachine,
			newMatchDispatcher,
			match.NewHandler,
			notify.NewDispatcher,
			reminder.NewScheduler,
		),
		fx.Invoke(
			initTelemetry,
			func(handler *match.Handler, lc fx.Lifecycle) error {
				return handler.RegisterSubscriptions(lc)
			},
			func(dispatcher *notify.Dispatcher, lc fx.Lifecycle) error {
				return dispatcher.RegisterSubscriptions(lc)
			},
			func(scheduler *reminder.Scheduler, lc fx.Lifecycle, cfg *config.Config) error {
				return scheduler.Register(lc, cfg)
			},
			// The state machine has no subscription of its own; referencing it
			// here keeps the whole application path constructed and validated
			// at startup.
			func(machine *applications.Machine) {},
		),
	)

	startCtx := context.Background()
	if err := app.Start(startCtx); err != nil {
		log.Fatal(err)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	stopCtx := context.Background()
	if err := app.Stop(stopCtx); err != nil {
		log.Fatal(err)
	}
}
