package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/relaycrm/relaycrm/pkg/action"
	"github.com/relaycrm/relaycrm/pkg/config"
	"github.com/relaycrm/relaycrm/pkg/engine"
	"github.com/relaycrm/relaycrm/pkg/eventbus"
	"github.com/relaycrm/relaycrm/pkg/model"
	"github.com/relaycrm/relaycrm/pkg/store/postgres"
	redisclient "github.com/relaycrm/relaycrm/pkg/store/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	db, err := postgres.NewStore(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	redis, err := redisclient.NewClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redis.Close()

	executionRepo := postgres.NewExecutionRepository(db.DB(), cfg.Engine.LeaseTimeout)
	definitionRepo := postgres.NewDefinitionRepository(db.DB())
	tenantRepo := postgres.NewTenantRepository(db.DB())
	crmRepo := postgres.NewCRMRepository(db.DB())
	recordRepo := postgres.NewRecordRepository(db.DB())

	smsProvider := action.NewHTTPProvider(cfg.Providers.SmsURL, cfg.Providers.APIKey)
	emailProvider := action.NewHTTPEmailProvider(cfg.Providers.EmailURL, cfg.Providers.APIKey)
	dispatcher := action.NewDispatcher(smsProvider, emailProvider, crmRepo, recordRepo, logger)

	executor := engine.NewExecutor(executionRepo, tenantRepo, dispatcher, logger, cfg.Engine.RetryLimit, cfg.Engine.RetryBackoffSecs)
	router := engine.NewRouter(definitionRepo, executionRepo, tenantRepo, executor, logger)
	scheduler := engine.NewScheduler(executionRepo, executor, logger, cfg.Engine.PollInterval, cfg.Engine.PollBatchSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go scheduler.Run(ctx)

	bus := eventbus.NewBus(redis.Client())
	events := bus.Subscribe(ctx, eventbus.ChannelDomain)
	go func() {
		for event := range events {
			var domainEvent eventbus.DomainEvent
			if err := json.Unmarshal(event.Data, &domainEvent); err != nil {
				logger.Warn("failed to decode domain event", zap.Error(err))
				continue
			}
			tenantID, err := uuid.Parse(domainEvent.TenantID)
			if err != nil {
				logger.Warn("domain event carries invalid tenant id", zap.String("tenant_id", domainEvent.TenantID))
				continue
			}
			router.Route(ctx, tenantID, model.TriggerType(domainEvent.EventType), domainEvent.Payload)
		}
	}()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: metricsMux,
	}
	go func() {
		logger.Info("serving engine metrics", zap.Int("port", cfg.Server.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	logger.Info("engine started",
		zap.Duration("poll_interval", cfg.Engine.PollInterval),
		zap.Int("retry_limit", cfg.Engine.RetryLimit),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("engine shutting down")
	cancel()
	_ = metricsServer.Close()
}
