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
	"github.com/go-playground/validator/v10"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/sage/config"
	"github.com/Ramsey-B/sage/internal/repositories/document"
	"github.com/Ramsey-B/sage/internal/repositories/lease"
	"github.com/Ramsey-B/sage/pkg/clients/directory"
	"github.com/Ramsey-B/sage/pkg/clients/places"
	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/docstore"
	"github.com/Ramsey-B/sage/pkg/events"
	"github.com/Ramsey-B/sage/pkg/graph"
	"github.com/Ramsey-B/sage/pkg/httpclient"
	"github.com/Ramsey-B/sage/pkg/kafka"
	"github.com/Ramsey-B/sage/pkg/logging"
	"github.com/Ramsey-B/sage/pkg/matching"
	"github.com/Ramsey-B/sage/pkg/middleware"
	"github.com/Ramsey-B/sage/pkg/ratelimit"
	"github.com/Ramsey-B/sage/pkg/routes/dish"
	"github.com/Ramsey-B/sage/pkg/routes/health"
	"github.com/Ramsey-B/sage/pkg/routes/restaurant"
	"github.com/Ramsey-B/sage/pkg/routes/review"
	"github.com/Ramsey-B/sage/pkg/startup"
	"github.com/Ramsey-B/sage/pkg/stats"
	catalogsync "github.com/Ramsey-B/sage/pkg/sync"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

const version = "0.1.0"

func main() {
	_ = godotenv.Load()

	cfg := &config.Config{}
	if err := ectoenv.BindEnv(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, flush := logging.New(cfg.AppName, cfg.PrettyLogs)
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := tracing.Init(ctx, tracing.Options{
			ServiceName: cfg.AppName,
			Exporter:    cfg.TracingExporter,
			Endpoint:    cfg.TracingEndpoint,
			Protocol:    cfg.TracingProtocol,
		})
		if err != nil {
			logger.WithError(err).Error("Failed to initialize tracing")
			os.Exit(1)
		}
		defer shutdown(context.Background())
	}

	sqlxDB, err := database.Open(database.ConnectionOptions{
		Host:            cfg.DatabaseHost,
		Port:            cfg.DatabasePort,
		UserName:        cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		DatabaseName:    cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	defer sqlxDB.Close()

	db := database.NewDatabaseInstance(sqlxDB, logger)

	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "migrate":
		if err := runMigrations(cfg, logger, sqlxDB); err != nil {
			os.Exit(1)
		}
	case "sync":
		target := "all"
		if len(os.Args) > 2 {
			target = os.Args[2]
		}
		if err := runSync(ctx, cfg, logger, db, target); err != nil {
			os.Exit(1)
		}
	case "serve":
		if err := runMigrations(cfg, logger, sqlxDB); err != nil {
			os.Exit(1)
		}
		if err := serve(ctx, cfg, logger, db); err != nil {
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (expected serve, sync, or migrate)\n", command)
		os.Exit(1)
	}
}

func runMigrations(cfg *config.Config, logger ectologger.Logger, sqlxDB *sqlx.DB) error {
	driver, err := postgres.WithInstance(sqlxDB.DB, &postgres.Config{})
	if err != nil {
		logger.WithError(err).Error("Failed to create migration driver")
		return err
	}

	svc := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
	})
	return svc.Migrate(cfg.DatabaseName, driver)
}

// leaseManager adapts the lease repository to the orchestrator's interface.
type leaseManager struct {
	repo *lease.Repository
}

func (m *leaseManager) Acquire(ctx context.Context, collection string, ttl time.Duration) (catalogsync.Releaser, error) {
	return m.repo.Acquire(ctx, collection, ttl)
}

// pipeline bundles the sync collaborators and their teardown.
type pipeline struct {
	orchestrator *catalogsync.Orchestrator
	store        docstore.Store
	runner       *startup.Runner
}

func buildPipeline(cfg *config.Config, logger ectologger.Logger, db database.DB) *pipeline {
	store := document.NewRepository(db, logger)
	coordinator := catalogsync.NewCoordinator(store, logger, cfg.SyncDeleteBatchSize)

	httpClient := httpclient.NewClient(httpclient.Config{
		Timeout:         time.Duration(cfg.HttpClientTimeoutSeconds) * time.Second,
		MaxIdleConns:    100,
		IdleConnTimeout: 90 * time.Second,
		RetryAttempts:   cfg.HttpClientRetryAttempts,
		RetryDelay:      cfg.HttpClientRetryDelay,
	}, logger)

	// each source gets its own gate so one source's delay never stalls the other
	directoryClient := directory.NewClient(directory.Config{
		BaseURL: cfg.DirectoryBaseURL,
		APIKey:  cfg.DirectoryAPIKey,
	}, httpClient, ratelimit.NewGate(cfg.SyncCallDelay), logger)

	placesClient := places.NewClient(places.Config{
		BaseURL: cfg.PlacesBaseURL,
		APIKey:  cfg.PlacesAPIKey,
	}, httpClient, ratelimit.NewGate(cfg.SyncCallDelay), logger)

	matcher := matching.NewMatcher(placesClient, logger)

	runner := startup.NewRunner(logger, 5)
	runner.Add(startup.Dependency{
		Name: "database",
		Start: func(ctx context.Context) error {
			return db.PingContext(ctx)
		},
	})

	deps := catalogsync.Dependencies{
		Store:       store,
		Coordinator: coordinator,
		Directory:   directoryClient,
		Matcher:     matcher,
		Places:      placesClient,
		Leases:      &leaseManager{repo: lease.NewRepository(db, logger)},
		Logger:      logger,
	}

	if cfg.KafkaEnabled {
		producer := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
		}, logger)
		deps.Events = events.NewEmitter(producer, logger)
		runner.Add(startup.Dependency{
			Name: "kafka",
			Stop: func(ctx context.Context) error {
				return producer.Close()
			},
		})
	}

	if cfg.GraphEnabled {
		graphClient, err := graph.NewClient(graph.Config{
			Host:     cfg.GraphDBHost,
			Port:     cfg.GraphDBPort,
			Username: cfg.GraphDBUser,
			Password: cfg.GraphDBPassword,
		}, logger)
		if err != nil {
			logger.WithError(err).Error("Failed to create graph client, projection disabled")
		} else {
			deps.Graph = graph.NewProjector(graphClient, logger)
			runner.Add(startup.Dependency{
				Name:  "graph",
				Start: graphClient.VerifyConnectivity,
				Stop:  graphClient.Close,
			})
		}
	}

	orchestrator := catalogsync.NewOrchestrator(catalogsync.Options{
		Location:             cfg.DirectoryLocation,
		Term:                 cfg.DirectoryTerm,
		Radius:               cfg.DirectoryRadius,
		PageSize:             cfg.DirectoryPageSize,
		MaxReviews:           cfg.SyncMaxPlaceReviews,
		PageDelay:            cfg.SyncPageDelay,
		LeaseTTL:             cfg.SyncLeaseTTL,
		RestaurantCollection: cfg.RestaurantCollection,
		ReviewCollection:     cfg.ReviewCollection,
		DishCollection:       cfg.DishCollection,
	}, deps)

	return &pipeline{
		orchestrator: orchestrator,
		store:        store,
		runner:       runner,
	}
}

func runSync(ctx context.Context, cfg *config.Config, logger ectologger.Logger, db database.DB, target string) error {
	p := buildPipeline(cfg, logger, db)

	if err := p.runner.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start sync dependencies")
		return err
	}
	defer p.runner.Stop(context.Background())

	type pass struct {
		name string
		run  func(context.Context) (*catalogsync.PassResult, error)
	}

	var passes []pass
	switch target {
	case catalogsync.PassRestaurants:
		passes = []pass{{catalogsync.PassRestaurants, p.orchestrator.SyncRestaurants}}
	case catalogsync.PassReviews:
		passes = []pass{{catalogsync.PassReviews, p.orchestrator.SyncReviews}}
	case catalogsync.PassDishes:
		passes = []pass{{catalogsync.PassDishes, p.orchestrator.SyncDishes}}
	case "all":
		passes = []pass{
			{catalogsync.PassRestaurants, p.orchestrator.SyncRestaurants},
			{catalogsync.PassReviews, p.orchestrator.SyncReviews},
			{catalogsync.PassDishes, p.orchestrator.SyncDishes},
		}
	default:
		return fmt.Errorf("unknown sync target %q (expected restaurants, reviews, dishes, or all)", target)
	}

	for _, pass := range passes {
		if _, err := pass.run(ctx); err != nil {
			logger.WithError(err).Errorf("Sync pass %s failed", pass.name)
			return err
		}
	}
	return nil
}

func serve(ctx context.Context, cfg *config.Config, logger ectologger.Logger, db database.DB) error {
	p := buildPipeline(cfg, logger, db)

	if err := p.runner.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start dependencies")
		return err
	}
	defer p.runner.Stop(context.Background())

	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		logger.WithError(err).Error("Failed to create DI container")
		return err
	}

	statsService := stats.NewService(p.store, stats.Options{
		RestaurantCollection: cfg.RestaurantCollection,
		ReviewCollection:     cfg.ReviewCollection,
		DishCollection:       cfg.DishCollection,
	}, logger)

	if err := registerInstances(container, cfg, logger, p.store, statsService); err != nil {
		logger.WithError(err).Error("Failed to register dependencies")
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)

	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(echomiddleware.Recover())

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	checker := health.NewChecker(db, version)
	checker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	restaurant.Register(api.Group("/restaurants"))
	dish.Register(api.Group("/dishes"))
	review.Register(api.Group("/reviews"))

	serverErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.WithField("addr", addr).Info("Starting HTTP server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	checker.SetReady(true)

	select {
	case err := <-serverErr:
		logger.WithError(err).Error("HTTP server failed")
		return err
	case <-ctx.Done():
	}

	checker.SetReady(false)
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shut down HTTP server cleanly")
		return err
	}
	return nil
}

func registerInstances(container ectocontainer.DIContainer, cfg *config.Config, logger ectologger.Logger, store docstore.Store, statsService *stats.Service) error {
	if err := ectoinject.RegisterInstance[*config.Config](container, cfg); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[ectologger.Logger](container, logger); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[docstore.Store](container, store); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*stats.Service](container, statsService); err != nil {
		return err
	}
	return ectoinject.RegisterInstance[*validator.Validate](container, validator.New())
}
