package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/surenab/real-estate-scrapers/internal/config"
	"github.com/surenab/real-estate-scrapers/internal/fetch"
	"github.com/surenab/real-estate-scrapers/internal/geocode"
	"github.com/surenab/real-estate-scrapers/internal/publisher"
	"github.com/surenab/real-estate-scrapers/internal/scheduler"
	"github.com/surenab/real-estate-scrapers/internal/scrape"
	"github.com/surenab/real-estate-scrapers/internal/service"
	"github.com/surenab/real-estate-scrapers/internal/source/daft"
	"github.com/surenab/real-estate-scrapers/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	var pub service.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		pub = rabbitMQ
	}

	proxies, err := fetch.NewProxyRotator(cfg.Fetch.Proxies)
	if err != nil {
		logger.Error("failed to configure proxies", "error", err)
		os.Exit(1)
	}

	throttle := fetch.NewIntervalThrottle(cfg.Fetch.MinInterval, cfg.Fetch.MaxInterval)
	client := fetch.NewClient(fetch.Config{
		Headers: daft.DefaultHeaders(),
		Timeout: cfg.Fetch.Timeout,
	}, throttle, proxies, logger)

	source := daft.New(logger)
	paginator := scrape.NewPaginator(source, client, scrape.RetryPolicy{
		Cooldown:    cfg.Fetch.RetryCooldown,
		MaxAttempts: cfg.Fetch.MaxAttempts,
	}, logger)

	var geocoder service.Geocoder
	if cfg.Geocode.Enabled {
		geocoder = geocode.NewClient(geocode.Config{
			CacheFile: cfg.Geocode.CacheFile,
			UserAgent: cfg.Geocode.UserAgent,
		}, logger)
	}

	listingStore := postgres.NewListingStore(db)
	txManager := postgres.NewTransactionManager(db)

	harvestService := service.NewHarvestService(
		source.ID(),
		daft.Origin,
		paginator,
		func() service.Normalizer { return daft.NewNormalizer(logger) },
		listingStore,
		txManager,
		pub,
		geocoder,
		logger,
		cfg.Harvest,
	)

	sched := scheduler.NewScheduler(harvestService, cfg.Harvest.Interval, cfg.Harvest.RunTimeout, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting harvester",
		"source", source.Name(),
		"interval", cfg.Harvest.Interval,
		"categories", cfg.Harvest.Categories,
	)

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
