package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/shorts-radar/shorts-discovery-go/internal/config"
	"github.com/shorts-radar/shorts-discovery-go/internal/db"
	"github.com/shorts-radar/shorts-discovery-go/internal/db/repository"
	"github.com/shorts-radar/shorts-discovery-go/internal/handler"
	"github.com/shorts-radar/shorts-discovery-go/internal/metrics"
	"github.com/shorts-radar/shorts-discovery-go/internal/middleware"
	"github.com/shorts-radar/shorts-discovery-go/internal/queue"
	"github.com/shorts-radar/shorts-discovery-go/internal/service"
	"github.com/shorts-radar/shorts-discovery-go/internal/youtube"
	"github.com/shorts-radar/shorts-discovery-go/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	provider := metrics.NewProvider(cfg.Metrics.Enabled)

	client, err := youtube.NewClient(ctx, cfg.YouTube.APIKeys, cfg.YouTube.CallTimeout, provider)
	if err != nil {
		logger.Log.Fatal("failed to initialize YouTube client", zap.Error(err))
	}

	channelRepo := repository.NewChannelRepository(pool)
	videoRepo := repository.NewVideoRepository(pool)
	snapshotRepo := repository.NewSnapshotRepository(pool)
	runRepo := repository.NewDiscoveryRunRepository(pool)
	metricsRepo := repository.NewMetricsRepository(pool)
	rankRepo := repository.NewRankRepository(pool)

	var publisher service.RunEventPublisher
	if cfg.RabbitMQ.Enabled {
		mp, err := service.NewMessagePublisher(&cfg.RabbitMQ)
		if err != nil {
			logger.Log.Warn("run events disabled: RabbitMQ unavailable", zap.Error(err))
		} else {
			publisher = mp
			defer func() { _ = mp.Close() }()
		}
	}

	classifier := youtube.Classifier{
		MinSeconds: cfg.Shorts.MinSeconds,
		MaxSeconds: cfg.Shorts.MaxSeconds,
	}

	discovery := service.NewDiscoveryService(
		client, channelRepo, videoRepo, snapshotRepo, runRepo,
		publisher, classifier, cfg.Discovery, provider,
	)
	metricsEngine := service.NewMetricsEngine(videoRepo, metricsRepo, cfg.Windows.RecentDays)
	eligibility := service.NewEligibilityEngine(videoRepo, cfg.Windows.ShortActivityDays, cfg.Windows.LongAbsenceDays)

	discoverHandler := handler.NewDiscoverHandler(discovery, metricsEngine, cfg.Shorts.MinSeconds, cfg.Shorts.MaxSeconds)
	if cfg.Redis.URL != "" {
		queueClient, err := queue.NewClient(cfg.Redis.URL)
		if err != nil {
			logger.Log.Warn("async triggers disabled: invalid redis URL", zap.Error(err))
		} else {
			discoverHandler.SetEnqueuer(queueClient)
			defer func() { _ = queueClient.Close() }()
		}
	}
	channelsHandler := handler.NewChannelsHandler(rankRepo, eligibility, runRepo, cfg.Query.MaxResults)
	healthHandler := handler.NewHealthHandler(pool)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", healthHandler.Health)
	if cfg.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := router.Group("/api/v1")
	api.GET("/channels", channelsHandler.ListChannels)

	ops := api.Group("", middleware.OperatorAuth(cfg.Operator.Secret))
	ops.POST("/discover", discoverHandler.TriggerDiscovery)
	ops.POST("/metrics/recompute", discoverHandler.RecomputeMetrics)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Log.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.Strings("regions", cfg.Discovery.Regions),
		)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Log.Fatal("server error", zap.Error(err))
	case sig := <-shutdown:
		logger.Log.Info("shutdown signal received", zap.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("graceful shutdown failed", zap.Error(err))
			_ = server.Close()
			os.Exit(1)
		}

		logger.Log.Info("server stopped gracefully")
	}
}
