package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/zap"

	"github.com/syed-c/standzon-sub002/config"
	"github.com/syed-c/standzon-sub002/internal/repositories/builder"
	"github.com/syed-c/standzon-sub002/internal/repositories/resolution"
	"github.com/syed-c/standzon-sub002/pkg/database"
	"github.com/syed-c/standzon-sub002/pkg/di"
	"github.com/syed-c/standzon-sub002/pkg/events"
	"github.com/syed-c/standzon-sub002/pkg/extractor"
	"github.com/syed-c/standzon-sub002/pkg/graph"
	"github.com/syed-c/standzon-sub002/pkg/health"
	"github.com/syed-c/standzon-sub002/pkg/kafka"
	"github.com/syed-c/standzon-sub002/pkg/middleware"
	"github.com/syed-c/standzon-sub002/pkg/redis"
	buildersroutes "github.com/syed-c/standzon-sub002/pkg/routes/builders"
	duplicatesroutes "github.com/syed-c/standzon-sub002/pkg/routes/duplicates"
	"github.com/syed-c/standzon-sub002/pkg/services/duplicates"
	"github.com/syed-c/standzon-sub002/pkg/startup"
	"github.com/syed-c/standzon-sub002/pkg/tracing"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	zapLogger, err := newZapLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer zapLogger.Sync() //nolint:errcheck
	logger := zapadapter.NewZapEctoLogger(zapLogger, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdownTracing, err := tracing.Init(ctx, tracing.Config{
			ServiceName: cfg.AppName,
			Endpoint:    cfg.TracingEndpoint,
			Insecure:    cfg.TracingInsecure,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.WithError(err).Warn("Failed to flush traces")
			}
		}()
	}

	deps := &dependencies{}
	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	registerDependencies(boot, deps, cfg, logger)

	if err := boot.Start(ctx); err != nil {
		return fmt.Errorf("failed to start dependencies: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
		defer cancel()
		if err := boot.Stop(stopCtx); err != nil {
			logger.WithError(err).Warn("Failed to stop dependencies")
		}
	}()

	checker := newHealthChecker(deps)
	if err := registerServices(cfg, logger, deps); err != nil {
		return fmt.Errorf("failed to register services: %w", err)
	}
	e := newServer(cfg, logger, checker)
	checker.SetReady(true)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           e,
		ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("HTTP server listening on %s", server.Addr)
		if err := e.StartServer(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	checker.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newZapLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = level
	zapCfg.InitialFields = map[string]any{"service": cfg.AppName, "version": version}

	return zapCfg.Build()
}

// dependencies holds the clients brought up at startup. Optional clients stay nil when disabled.
type dependencies struct {
	db       database.DB
	redis    *redis.Client
	graph    *graph.Client
	producer *kafka.Producer
}

func registerDependencies(boot *startup.Startup, deps *dependencies, cfg *config.Config, logger ectologger.Logger) {
	boot.AddDependency(&startup.Func{
		Name: "postgres",
		StartFunc: func(ctx context.Context) error {
			db, err := database.Connect(ctx, database.ConnectionConfig{
				Driver:          cfg.DatabaseDriver,
				Host:            cfg.DatabaseHost,
				Port:            cfg.DatabasePort,
				User:            cfg.DatabaseUserName,
				Password:        cfg.DatabasePassword,
				Name:            cfg.DatabaseName,
				SSLMode:         cfg.DatabaseSSLMode,
				MaxOpenConns:    cfg.DatabaseMaxOpenConns,
				MaxIdleConns:    cfg.DatabaseMaxIdleConns,
				ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
			}, logger)
			if err != nil {
				return err
			}

			migrations := database.NewMigrationService(logger, &database.MigrationConfig{
				DatabaseName:        cfg.DatabaseName,
				MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
				Version:             uint(cfg.DatabaseMigrationVersion),
				Force:               cfg.DatabaseMigrationForce,
				AutoRollback:        cfg.DatabaseMigrationAutoRollback,
			})
			if err := migrations.Migrate(db); err != nil {
				_ = db.Close()
				return err
			}

			deps.db = db
			return nil
		},
		StopFunc: func(context.Context) error {
			return deps.db.Close()
		},
	})

	boot.AddDependency(&startup.Func{
		Name: "redis",
		StartFunc: func(ctx context.Context) error {
			client, err := redis.NewClient(ctx, redis.Config{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			}, logger)
			if err != nil {
				return err
			}
			deps.redis = client
			return nil
		},
		StopFunc: func(context.Context) error {
			return deps.redis.Close()
		},
	})

	if cfg.GraphEnabled {
		boot.AddDependency(&startup.Func{
			Name: "graph",
			StartFunc: func(ctx context.Context) error {
				client, err := graph.NewClient(graph.Config{
					Host:     cfg.GraphDBHost,
					Port:     cfg.GraphDBPort,
					Username: cfg.GraphDBUser,
					Password: cfg.GraphDBPassword,
				}, logger)
				if err != nil {
					return err
				}
				if err := client.VerifyConnectivity(ctx); err != nil {
					_ = client.Close(ctx)
					return err
				}
				deps.graph = client
				return nil
			},
			StopFunc: func(ctx context.Context) error {
				return deps.graph.Close(ctx)
			},
		})
	}

	if cfg.KafkaEnabled {
		boot.AddDependency(&startup.Func{
			Name: "kafka",
			StartFunc: func(context.Context) error {
				deps.producer = kafka.NewProducer(kafka.ProducerConfig{
					Brokers:      cfg.KafkaBrokers,
					Topic:        cfg.KafkaOutputTopic,
					BatchSize:    cfg.KafkaBatchSize,
					BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
					RequiredAcks: cfg.KafkaRequiredAcks,
					Compression:  cfg.KafkaCompression,
				}, logger)
				return nil
			},
			StopFunc: func(context.Context) error {
				return deps.producer.Close()
			},
		})
	}
}

func newHealthChecker(deps *dependencies) *health.Checker {
	checker := health.NewChecker(version)
	checker.AddCheck("database", deps.db.PingContext, true)
	checker.AddCheck("redis", deps.redis.Ping, true)
	if deps.graph != nil {
		checker.AddCheck("graph", deps.graph.VerifyConnectivity, false)
	}
	return checker
}

// containerID names the dependency container the HTTP handlers resolve their services from
const containerID = "standzon-dedup"

// registerServices builds the repositories and services and registers them in the container.
// Services backed by a disabled optional client are left unregistered.
func registerServices(cfg *config.Config, logger ectologger.Logger, deps *dependencies) error {
	container, err := di.NewContainer(containerID, logger)
	if err != nil {
		return err
	}

	builderRepo := builder.NewRepository(deps.db, logger)
	resolutionRepo := resolution.NewRepository(deps.db, logger)

	// interfaces stay nil when the optional client is disabled
	var emitter duplicates.EventEmitter
	if deps.producer != nil {
		emitter = events.NewEmitter(deps.producer, logger)
	}
	var lineage *graph.LineageService
	var lineageRecorder duplicates.LineageRecorder
	if deps.graph != nil {
		lineage = graph.NewLineageService(deps.graph, logger)
		lineageRecorder = lineage
	}

	svc := duplicates.NewService(duplicates.Config{
		MaxRecords:          cfg.DedupMaxRecords,
		LockTTL:             cfg.DedupLockTTL,
		PhoneMinDigits:      cfg.DedupPhoneMinDigits,
		ResolutionListLimit: cfg.DedupResolutionLimit,
	}, logger, deps.db, builderRepo, resolutionRepo, redis.NewLocker(deps.redis, "lock:"), emitter, lineageRecorder)

	return errors.Join(
		di.Register[buildersroutes.Store](container, builderRepo),
		di.Register(container, extractor.NewBuilderMapper(extractor.DefaultPaths())),
		di.Register[buildersroutes.LineageReader](container, lineage),
		di.Register[duplicatesroutes.Service](container, svc),
	)
}

func newServer(cfg *config.Config, logger ectologger.Logger, checker *health.Checker) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)

	e.Use(echomw.Recover())
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Container(containerID))
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderXRequestID, middleware.HeaderTenantID, middleware.HeaderUserID},
	}))

	checker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	buildersroutes.Register(e.Group("/api/v1/builders", middleware.RequireTenant()))
	duplicatesroutes.Register(e.Group("/api/v1/duplicates", middleware.RequireTenant()))

	return e
}
