package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/shorts-radar/shorts-discovery-go/internal/config"
	"github.com/shorts-radar/shorts-discovery-go/internal/db"
	"github.com/shorts-radar/shorts-discovery-go/internal/db/repository"
	"github.com/shorts-radar/shorts-discovery-go/internal/metrics"
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

	redisOpt, err := queue.ParseRedisURL(cfg.Redis.URL)
	if err != nil {
		logger.Log.Fatal("invalid redis URL", zap.Error(err))
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
		Queues: map[string]int{
			"discovery": 2,
			"metrics":   1,
		},
	})

	mux := asynq.NewServeMux()
	queue.NewTaskHandler(discovery, metricsEngine).Register(mux)

	scheduler := asynq.NewScheduler(redisOpt, nil)
	registerSchedule(scheduler, cfg.Worker.ChartSchedule, asynq.NewTask(queue.TypeDiscoveryChart, nil), asynq.Queue("discovery"))
	registerSchedule(scheduler, cfg.Worker.RecomputeSchedule, asynq.NewTask(queue.TypeMetricsRecompute, nil), asynq.Queue("metrics"))

	if cfg.Worker.SearchSchedule != "" {
		payload, err := queue.NewDiscoverySearchTask(cfg.Worker.SearchNovelty, map[string]interface{}{
			"source": "scheduler",
		}).Marshal()
		if err != nil {
			logger.Log.Fatal("failed to build search task payload", zap.Error(err))
		}
		registerSchedule(scheduler, cfg.Worker.SearchSchedule, asynq.NewTask(queue.TypeDiscoverySearch, payload), asynq.Queue("discovery"))
	}

	if err := scheduler.Start(); err != nil {
		logger.Log.Fatal("failed to start scheduler", zap.Error(err))
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Log.Info("worker starting",
			zap.Int("concurrency", cfg.Worker.Concurrency),
			zap.String("chartSchedule", cfg.Worker.ChartSchedule),
			zap.String("searchSchedule", cfg.Worker.SearchSchedule),
			zap.String("recomputeSchedule", cfg.Worker.RecomputeSchedule),
		)
		serverErrors <- srv.Run(mux)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		scheduler.Shutdown()
		logger.Log.Fatal("worker error", zap.Error(err))
	case sig := <-shutdown:
		logger.Log.Info("shutdown signal received", zap.String("signal", sig.String()))
		scheduler.Shutdown()
		srv.Shutdown()
		logger.Log.Info("worker stopped gracefully")
	}
}

func registerSchedule(scheduler *asynq.Scheduler, spec string, task *asynq.Task, opts ...asynq.Option) {
	if spec == "" {
		return
	}
	if _, err := scheduler.Register(spec, task, opts...); err != nil {
		logger.Log.Fatal("failed to register schedule",
			zap.String("task", task.Type()),
			zap.String("spec", spec),
			zap.Error(err),
		)
	}
}
