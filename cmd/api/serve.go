package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/coverage-service/internal/api/http"
	"github.com/spec-kit/coverage-service/internal/api/http/handlers"
	"github.com/spec-kit/coverage-service/internal/auth"
	"github.com/spec-kit/coverage-service/internal/cache"
	"github.com/spec-kit/coverage-service/internal/config"
	"github.com/spec-kit/coverage-service/internal/events"
	"github.com/spec-kit/coverage-service/internal/notify"
	"github.com/spec-kit/coverage-service/internal/observability"
	"github.com/spec-kit/coverage-service/internal/persistence"
	"github.com/spec-kit/coverage-service/internal/repository"
	"github.com/spec-kit/coverage-service/internal/service"
	"github.com/spec-kit/coverage-service/internal/worker"
	"github.com/spec-kit/coverage-service/migrations"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func serve(parent context.Context, cfg *config.Config, logger *zap.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()
	pool := pg.PoolHandle()
	if pool == nil {
		return errors.New("POSTGRES_DSN is required to serve")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, migrations.Files, logger); err != nil {
			return err
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	dispatcher := events.NewInMemoryDispatcher()
	if cfg.Kafka.Enabled() {
		publisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.TopicPrefix, logger, metrics)
		if err != nil {
			return err
		}
		defer publisher.Close() //nolint:errcheck
		stream := worker.NewNotificationWorker(worker.NotifierFunc(publisher.Handle), logger, 0)
		stream.Register(dispatcher, events.AllEventTypes()...)
		stream.Start(ctx)
		defer func() {
			cancel()
			stream.Wait()
		}()
		logger.Info("kafka publishing enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	var sender notify.Sender = notify.NopSender{}
	if cfg.Mail.Enabled() {
		sender = notify.NewSMTPSender(cfg.Mail, logger)
	}

	escalationRepo := repository.NewEscalationRepository()
	historyRepo := repository.NewEscalationHistoryRepository()
	changeLogRepo := repository.NewChangeLogRepository()
	productRepo := repository.NewProductRepository()
	watchlistRepo := repository.NewWatchlistRepository()
	etlRepo := repository.NewEtlStatusRepository()

	escalationService := service.NewEscalationService(service.EscalationDependencies{
		DB:                 pool,
		EscalationRepo:     escalationRepo,
		HistoryRepo:        historyRepo,
		ChangeLogRepo:      changeLogRepo,
		ProductRepo:        productRepo,
		HistoryCache:       cache.NewRedisHistoryCache(redis.Client, cfg.Cache.HistoryTTL()),
		Dispatcher:         dispatcher,
		Metrics:            metrics,
		Logger:             logger,
		EnforceTransitions: cfg.Escalation.EnforceTransitions,
	})
	watchlistService := service.NewWatchlistService(pool, watchlistRepo, productRepo, logger)
	catalogService := service.NewCatalogService(pool, productRepo, etlRepo, logger)
	notificationService := service.NewNotificationService(pool, watchlistRepo, sender, metrics, logger)

	notifications := worker.NewNotificationWorker(notificationService, logger, 0)
	notifications.Register(dispatcher, service.NotifiedEvents()...)
	notifications.Start(ctx)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	readiness := map[string]handlers.Pinger{"postgres": pg}
	if redis.Enabled() {
		readiness["redis"] = redis
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness),
		Escalations:    handlers.NewEscalationsHandler(escalationService),
		Watchlist:      handlers.NewWatchlistHandler(watchlistService),
		Catalog:        handlers.NewCatalogHandler(catalogService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Metrics:        adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		errCh <- app.Listen(cfg.App.Addr())
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("fiber listen", zap.Error(err))
			cancel()
			notifications.Wait()
			return err
		}
	case <-ctx.Done():
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	notifications.Wait()
	return nil
}
