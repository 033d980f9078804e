package main

import (
	"context"
	"log"

	fhrouter "github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/minicrm/backend/internal/config"
	"github.com/minicrm/backend/internal/infrastructure/metrics"
	pgInfra "github.com/minicrm/backend/internal/infrastructure/postgres"
	redisInfra "github.com/minicrm/backend/internal/infrastructure/redis"
	"github.com/minicrm/backend/internal/services/lifecycle"
	"github.com/minicrm/backend/internal/stream"
	"github.com/minicrm/backend/pkg/logger"
	"github.com/minicrm/backend/repository/postgres"
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

	pipelineMetrics := metrics.New(prometheus.DefaultRegisterer)

	metricsRouter := fhrouter.New()
	metricsRouter.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()))
	metricsServer := &fasthttp.Server{
		Handler: metricsRouter.Handler,
		Name:    cfg.AppName,
	}
	go func() {
		zapLogger.Info("metrics listener started", zap.String("address", cfg.Metrics.Address))
		if err := metricsServer.ListenAndServe(cfg.Metrics.Address); err != nil {
			zapLogger.Error("metrics listener stopped", zap.Error(err))
		}
	}()
	manager.Register("metrics_server", func(ctx context.Context) error {
		return metricsServer.Shutdown()
	})

	orderRepo := postgres.NewOrderRepository(pool)
	productRepo := postgres.NewProductRepository(pool)

	consumer := stream.NewConsumer(redisClient, orderRepo, productRepo, cfg.Stream, pipelineMetrics, zapLogger)
	if err := consumer.Start(appCtx); err != nil {
		zapLogger.Fatal("consumer start failed", zap.Error(err))
	}
	manager.Register("stream_consumer", func(ctx context.Context) error {
		consumer.Wait()
		return nil
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
