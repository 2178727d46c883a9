package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/backend"
	"expensetracker/internal/cache"
	"expensetracker/internal/cli"
	apphttp "expensetracker/internal/http"
	"expensetracker/internal/log"
	"expensetracker/internal/ports"
	"expensetracker/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	result, err := backend.NewFactory(logger).CreateBackend(startupCtx, backendCfg)
	cancelStartup()
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	// Audit events are optional; exports work without a broker.
	var publisher services.EventPublisher
	var amqpPublisher *amqp.Publisher
	if cfg.AMQPURL != "" {
		amqpCtx, cancelAMQP := context.WithTimeout(context.Background(), 30*time.Second)
		amqpPublisher, err = amqp.NewPublisher(amqpCtx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		cancelAMQP()
		if err != nil {
			logger.Warn("AMQP unavailable, export events disabled", log.FieldError, err)
		} else {
			publisher = amqpPublisher
			logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	store := result.Backend

	var categories ports.CategoryLister = store
	cacheManager := cache.NewManager(logger)
	if cfg.CategoryCacheTTL > 0 {
		catCache := cache.NewCategoryCache(store, cfg.CategoryCacheTTL)
		cacheManager.Register(catCache)
		cacheManager.StartCleanup(cfg.CategoryCacheTTL)
		categories = catCache
	}

	reports := services.NewReportService(store, store, cfg.DefaultCurrency, logger.WithComponent(log.ComponentReport))
	exports := services.NewExportService(store, store, categories, publisher, services.ExportConfig{
		Timeout:         cfg.ExportTimeout,
		FlushRows:       cfg.ExportFlushRows,
		ProgressRows:    cfg.ExportProgressRows,
		MaxRows:         cfg.ExportMaxRows,
		RepeatHeader:    cfg.PDFRepeatHeader,
		DefaultCurrency: cfg.DefaultCurrency,
	}, logger.WithComponent(log.ComponentExport))

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		JWTSecret:          cfg.JWTSecret,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		ExportBufferBytes:  cfg.ExportBufferBytes,
		// Leave room for the final flush after the export deadline.
		ExportWriteTimeout: cfg.ExportTimeout + 30*time.Second,
	}, apphttp.Dependencies{
		Reports:    reports,
		Exports:    exports,
		Categories: categories,
		Health:     store,
		Logger:     logger,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
		if amqpPublisher != nil {
			if err := amqpPublisher.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := result.Close(); err != nil {
			logger.Warn("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting expensetracker server",
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
