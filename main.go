package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"go.uber.org/zap"

	"github.com/caarlos0/env/v11"
	"github.com/gofiber/fiber/v2"

	"upscaler/config"
	fiberprometheus "upscaler/middlewares/prometheus"
	"upscaler/metrics"
	"upscaler/model"
	"upscaler/pipeline"
	"upscaler/pool"
	"upscaler/resample"
	"upscaler/routes"
	"upscaler/storage"

	"github.com/dgraph-io/ristretto/v2"
)

var logger *zap.Logger

func main() {
	logger, _ = zap.NewProduction()
	defer func(logger *zap.Logger) {
		err := logger.Sync()
		if err != nil {
			log.Fatal(err)
		}
	}(logger)

	config, err := env.ParseAs[config.Config]()
	if err != nil {
		logger.Fatal(err.Error())
	}

	if config.Metrics == nil {
		metrics := true
		config.Metrics = &metrics
	}

	cacheConfig := &ristretto.Config[string, storage.CacheValue]{
		NumCounters: 1e7,     // number of keys to track frequency of (10M).
		MaxCost:     1 << 30, // maximum cost of cache (1GB).
		BufferItems: 64,      // number of keys per Get buffer.
	}

	if config.CacheBufferItems > 0 {
		cacheConfig.BufferItems = config.CacheBufferItems
	}

	if config.CacheMaxCost > 0 {
		cacheConfig.MaxCost = config.CacheMaxCost
	}

	if config.CacheNumCounters > 0 {
		cacheConfig.NumCounters = config.CacheNumCounters
	}

	if config.CacheTTL == 0 {
		config.CacheTTL = 1800 // 30 minutes
	}

	cache, err := ristretto.NewCache(cacheConfig)
	if err != nil {
		logger.Fatal(err.Error())
	}

	policy, err := pipeline.ParsePolicy(config.ScalePolicy)
	if err != nil {
		logger.Fatal("invalid scale policy", zap.Error(err))
	}

	prometheusModule := fiberprometheus.New("upscaler")
	prometheusRegistry := prometheusModule.GetRegistry()
	counters := metrics.InitializeMetrics(prometheusRegistry, prometheusModule.GetConstLabels())
	performance := metrics.InitializePerformanceMetrics(prometheusRegistry, prometheusModule.GetConstLabels())

	pipelines, err := pool.NewPipelines(config.Workers, func() (*pipeline.Pipeline, error) {
		m, err := model.New(logger, &config)
		if err != nil {
			return nil, err
		}
		return pipeline.New(
			performance.InstrumentModel(config.ModelBackend, m),
			config.ModelBaseScale,
			performance.InstrumentResizer(resample.New()),
			pipeline.WithPolicy(policy),
			pipeline.WithLogger(logger.Named("pipeline")),
		), nil
	})
	if err != nil {
		logger.Fatal("failed to build pipelines", zap.Error(err))
	}

	s3cache, err := storage.NewS3Cache(context.Background(), logger, &config)
	if err != nil {
		logger.Fatal("failed to initialize S3 cache", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		Prefork:               config.Prefork,

		// room for multipart framing around an upload of MaxSourceBytes
		BodyLimit: int(config.MaxSourceBytes) + 1<<20,
	})

	prometheusModule.RegisterAt(app, "/metrics")

	if *config.Metrics {
		app.Use(prometheusModule.Middleware)
	}

	app.Use(healthcheck.New())
	app.Use(compress.New())

	upscaler := &routes.Upscaler{
		Logger:      logger,
		Config:      &config,
		Cache:       cache,
		S3Cache:     s3cache,
		Pipelines:   pipelines,
		Origins:     pool.NewOriginMatcher(logger, config.AllowedOrigins),
		Counters:    counters,
		Performance: performance,
	}

	if config.RateLimit > 0 {
		limiterStorage, err := storage.NewRistrettoStorage()
		if err != nil {
			logger.Fatal("failed to initialize rate limiter storage", zap.Error(err))
		}
		upscaler.LimiterStorage = limiterStorage
	}

	routes.RegisterUpscaleRoutes(app, upscaler)

	address := config.Address
	if address == "" {
		address = ":3000"
	}

	logger.Info("server starting",
		zap.String("address", address),
		zap.String("model_backend", config.ModelBackend),
		zap.Float64("model_base_scale", config.ModelBaseScale),
		zap.Stringer("policy", policy),
		zap.Int("workers", pipelines.Size()))

	log.Fatal(app.Listen(address))
}
