package main

import (
	"context"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/minicrm/backend/api/handler"
	"github.com/minicrm/backend/internal/config"
	"github.com/minicrm/backend/internal/infrastructure/metrics"
	"github.com/minicrm/backend/internal/infrastructure/monitor"
	pgInfra "github.com/minicrm/backend/internal/infrastructure/postgres"
	redisInfra "github.com/minicrm/backend/internal/infrastructure/redis"
	"github.com/minicrm/backend/internal/router"
	"github.com/minicrm/backend/internal/services"
	"github.com/minicrm/backend/internal/services/lifecycle"
	"github.com/minicrm/backend/internal/stream"
	"github.com/minicrm/backend/internal/vendorapi"
	"github.com/minicrm/backend/pkg/httpcontext"
	"github.com/minicrm/backend/pkg/logger"
	"github.com/minicrm/backend/repository/postgres"
	campaignUC "github.com/minicrm/backend/usecase/campaign"
	catalogUC "github.com/minicrm/backend/usecase/catalog"
	ordersUC "github.com/minicrm/backend/usecase/orders"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if cfg.Migrations.Enabled {
		if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
			zapLogger.Fatal("migrations failed", zap.Error(err))
		}
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	mon := monitor.New(pool, redisClient, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	pipelineMetrics := metrics.New(prometheus.DefaultRegisterer)

	customerRepo := postgres.NewCustomerRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	segmentRepo := postgres.NewSegmentRepository(pool)
	campaignRepo := postgres.NewCampaignRepository(pool)
	deliveryRepo := postgres.NewDeliveryRepository(pool)
	queueRepo := postgres.NewQueueRepository(pool)
	batchRepo := postgres.NewBatchRepository(pool)

	aggregator := services.NewBatchAggregator(
		batchRepo,
		deliveryRepo,
		campaignRepo,
		pipelineMetrics,
		zapLogger,
		services.AggregatorConfig{
			Interval:   cfg.Batch.PollInterval,
			ClaimLimit: cfg.Batch.ClaimLimit,
			Capacity:   cfg.Batch.Capacity,
		},
	)
	aggregator.Start()
	manager.Register("batch_aggregator", func(ctx context.Context) error {
		aggregator.Stop()
		return nil
	})

	vendor := vendorapi.NewSimulator(cfg.Vendor, zapLogger)

	processor := services.NewQueueProcessor(
		queueRepo,
		deliveryRepo,
		customerRepo,
		vendor,
		vendor,
		aggregator,
		pipelineMetrics,
		zapLogger,
		services.ProcessorConfig{
			Interval:        cfg.Delivery.PollInterval,
			BatchSize:       cfg.Delivery.BatchSize,
			MaxAttempts:     cfg.Delivery.MaxAttempts,
			ProcessingLease: cfg.Delivery.ProcessingLease,
		},
	)
	processor.Start()
	manager.Register("queue_processor", func(ctx context.Context) error {
		processor.Stop()
		return nil
	})

	producer := services.NewDeliveryProducer(campaignRepo, segmentRepo, customerRepo, deliveryRepo, zapLogger)
	publisher := stream.NewPublisher(redisClient, cfg.Stream.Key, zapLogger)

	ordersUseCase := ordersUC.New(customerRepo, productRepo, orderRepo, publisher, zapLogger)
	catalogUseCase := catalogUC.New(customerRepo, productRepo, segmentRepo, zapLogger)
	campaignUseCase := campaignUC.New(campaignRepo, segmentRepo, deliveryRepo, producer, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Order:    apiHandler.NewOrderHandler(ordersUseCase, ctxAdapter, zapLogger),
		Catalog:  apiHandler.NewCatalogHandler(catalogUseCase, ctxAdapter, zapLogger),
		Campaign: apiHandler.NewCampaignHandler(campaignUseCase, ctxAdapter, zapLogger),
		Receipt:  apiHandler.NewReceiptHandler(aggregator, deliveryRepo, ctxAdapter, zapLogger),
		Health:   apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	r := router.New(handlers)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
