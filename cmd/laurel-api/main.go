package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/huandu/go-sqlbuilder"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/laurel/config"
	"github.com/Ramsey-B/laurel/internal/database"
	"github.com/Ramsey-B/laurel/internal/logging"
	"github.com/Ramsey-B/laurel/internal/middleware"
	"github.com/Ramsey-B/laurel/internal/startup"
	"github.com/Ramsey-B/laurel/internal/tracing"
	"github.com/Ramsey-B/laurel/pkg/graph"
	"github.com/Ramsey-B/laurel/pkg/kafka"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/resolver"
	"github.com/Ramsey-B/laurel/pkg/routes"
	"github.com/Ramsey-B/laurel/pkg/routes/health"
	"github.com/Ramsey-B/laurel/pkg/signals"
	"github.com/Ramsey-B/laurel/pkg/store"
)

const version = "0.1.0"

const startupMaxAttempts = 5

type application struct {
	cfg       *config.Config
	logger    ectologger.Logger
	container ectocontainer.DIContainer

	db              database.DB
	resolver        *resolver.Resolver
	tracingShutdown func(context.Context) error
	graph           *graph.Client
	producer        *kafka.Producer
	consumer        *kafka.Consumer
	server          *echo.Echo
	health          *health.Checker
}

func main() {
	_ = godotenv.Load()

	cfg := &config.Config{}
	if err := ectoenv.BindEnv(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, zapLogger, err := logging.New(cfg.LogLevel, cfg.PrettyLogs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zapLogger.Sync() }()

	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		logger.WithError(err).Error("Failed to create DI container")
		os.Exit(1)
	}
	if err := ectoinject.RegisterInstance[ectologger.Logger](container, logger); err != nil {
		logger.WithError(err).Error("Failed to register logger")
		os.Exit(1)
	}

	app := &application{cfg: cfg, logger: logger, container: container}

	sequencer := startup.NewSequencer(logger, startupMaxAttempts)
	if cfg.TracingEnabled {
		sequencer.Add(&tracingDependency{app})
	}
	sequencer.Add(&databaseDependency{app})
	if cfg.GraphEnabled {
		sequencer.Add(&graphDependency{app})
	}
	if cfg.KafkaProducerEnabled {
		sequencer.Add(&producerDependency{app})
	}
	if cfg.KafkaConsumerEnabled {
		sequencer.Add(&consumerDependency{app})
	}
	sequencer.Add(&serverDependency{app})

	ctx := context.Background()
	if err := sequencer.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}

	if app.health != nil {
		app.health.SetReady(true)
	}
	logger.WithField("port", cfg.Port).Infof("%s started on port %d", cfg.AppName, cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutdown signal received")
	if app.health != nil {
		app.health.SetReady(false)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sequencer.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

// tracingDependency stands up the global tracer provider so spans from the
// store, resolver, and handlers are exported.
type tracingDependency struct {
	app *application
}

func (d *tracingDependency) GetName() string     { return "tracing" }
func (d *tracingDependency) DependsOn() []string { return nil }

func (d *tracingDependency) Start(ctx context.Context) error {
	shutdown, err := tracing.InitProvider(ctx, tracing.ProviderConfig{
		ServiceName: d.app.cfg.AppName,
		Endpoint:    d.app.cfg.TracingOTLPEndpoint,
		Insecure:    d.app.cfg.TracingOTLPInsecure,
	})
	if err != nil {
		return err
	}
	d.app.tracingShutdown = shutdown
	return nil
}

func (d *tracingDependency) Stop(ctx context.Context) error {
	if d.app.tracingShutdown == nil {
		return nil
	}
	return d.app.tracingShutdown(ctx)
}

// databaseDependency opens the store backend, runs migrations, and builds the
// resolver the rest of the service hangs off of.
type databaseDependency struct {
	app *application
}

func (d *databaseDependency) GetName() string     { return "database" }
func (d *databaseDependency) DependsOn() []string { return nil }

func (d *databaseDependency) Start(ctx context.Context) error {
	app := d.app
	cfg := app.cfg

	var flavor sqlbuilder.Flavor
	switch cfg.DatabaseDriver {
	case "sqlite3":
		db, err := store.OpenSQLite(ctx, cfg.DatabaseSQLitePath, app.logger)
		if err != nil {
			return err
		}
		app.db = db
		flavor = sqlbuilder.SQLite
	default:
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode)
		sqlxDB, err := sqlx.Open("postgres", dsn)
		if err != nil {
			return err
		}
		sqlxDB.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
		sqlxDB.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
		sqlxDB.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

		if err := sqlxDB.PingContext(ctx); err != nil {
			return err
		}

		driver, err := migratepg.WithInstance(sqlxDB.DB, &migratepg.Config{})
		if err != nil {
			return err
		}
		migrations := database.NewMigrationService(app.logger, &database.MigrationConfig{
			MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
			Version:             uint(cfg.DatabaseMigrationVersion),
			Force:               cfg.DatabaseMigrationForce,
			AutoRollback:        cfg.DatabaseMigrationAutoRollback,
		})
		if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
			return err
		}

		app.db = database.NewDatabaseInstance(sqlxDB, app.logger)
		flavor = sqlbuilder.PostgreSQL
	}

	app.resolver = resolver.New(store.New(app.db, flavor, app.logger), app.logger)

	if err := ectoinject.RegisterInstance[database.DB](app.container, app.db); err != nil {
		return err
	}
	return ectoinject.RegisterInstance[*resolver.Resolver](app.container, app.resolver)
}

func (d *databaseDependency) Stop(ctx context.Context) error {
	if d.app.db == nil {
		return nil
	}
	return d.app.db.Close()
}

// graphDependency connects the optional Neo4j lineage projection and replays
// the merge ledger so the graph catches up with the store.
type graphDependency struct {
	app *application
}

func (d *graphDependency) GetName() string     { return "graph" }
func (d *graphDependency) DependsOn() []string { return []string{"database"} }

func (d *graphDependency) Start(ctx context.Context) error {
	app := d.app
	client, err := graph.NewClient(graph.Config{
		Host:     app.cfg.GraphDBHost,
		Port:     app.cfg.GraphDBPort,
		Username: app.cfg.GraphDBUser,
		Password: app.cfg.GraphDBPassword,
	}, app.logger)
	if err != nil {
		return err
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		return err
	}
	app.graph = client

	records, err := app.resolver.MergeHistory(ctx)
	if err != nil {
		return err
	}
	if err := client.ProjectMergeHistory(ctx, records); err != nil {
		return err
	}

	return ectoinject.RegisterInstance[*graph.Client](app.container, client)
}

func (d *graphDependency) Stop(ctx context.Context) error {
	if d.app.graph == nil {
		return nil
	}
	return d.app.graph.Close(ctx)
}

type producerDependency struct {
	app *application
}

func (d *producerDependency) GetName() string     { return "kafka-producer" }
func (d *producerDependency) DependsOn() []string { return nil }

func (d *producerDependency) Start(ctx context.Context) error {
	app := d.app
	app.producer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      app.cfg.KafkaBrokers,
		Topic:        app.cfg.KafkaOutputTopic,
		BatchSize:    app.cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(app.cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: app.cfg.KafkaRequiredAcks,
		Compression:  app.cfg.KafkaCompression,
	}, app.logger)
	return ectoinject.RegisterInstance[*kafka.Producer](app.container, app.producer)
}

func (d *producerDependency) Stop(ctx context.Context) error {
	if d.app.producer == nil {
		return nil
	}
	return d.app.producer.Close()
}

// consumerDependency ingests normalized signals from Kafka and resolves each
// one. Events emitted by a signal are published downstream when the producer
// is enabled.
type consumerDependency struct {
	app *application
}

func (d *consumerDependency) GetName() string { return "kafka-consumer" }

func (d *consumerDependency) DependsOn() []string {
	deps := []string{"database"}
	if d.app.cfg.KafkaProducerEnabled {
		deps = append(deps, "kafka-producer")
	}
	return deps
}

func (d *consumerDependency) Start(ctx context.Context) error {
	app := d.app

	handler := func(ctx context.Context, msg *kafka.IncomingMessage) error {
		result, err := signals.Resolve(ctx, app.resolver, *msg.Envelope, models.EntityTypePerson, "signal-ingestion")
		if err != nil {
			return err
		}
		if app.producer != nil && len(result.EmittedEvents) > 0 {
			if err := app.producer.PublishResolutionEvents(ctx, result.EmittedEvents); err != nil {
				return err
			}
		}
		return nil
	}

	app.consumer = kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:       app.cfg.KafkaBrokers,
		Topic:         app.cfg.KafkaInputTopic,
		ConsumerGroup: app.cfg.KafkaConsumerGroup,
	}, app.logger, handler)

	return app.consumer.Start(ctx)
}

func (d *consumerDependency) Stop(ctx context.Context) error {
	if d.app.consumer == nil {
		return nil
	}
	return d.app.consumer.Stop()
}

// serverDependency runs the echo HTTP API.
type serverDependency struct {
	app *application
}

func (d *serverDependency) GetName() string     { return "http-server" }
func (d *serverDependency) DependsOn() []string { return []string{"database"} }

func (d *serverDependency) Start(ctx context.Context) error {
	app := d.app
	cfg := app.cfg

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(app.logger))
	e.HTTPErrorHandler = middleware.Error(app.logger)

	routes.Register(e)

	app.health = health.NewChecker(app.db, app.graph, version)
	app.health.RegisterRoutes(e)

	app.server = e

	go func() {
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
			app.logger.WithError(err).Error("HTTP server stopped unexpectedly")
		}
	}()

	return nil
}

func (d *serverDependency) Stop(ctx context.Context) error {
	if d.app.server == nil {
		return nil
	}
	return d.app.server.Shutdown(ctx)
}
