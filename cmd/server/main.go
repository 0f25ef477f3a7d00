package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/gold-price-alerts/internal/alerting"
	"github.com/trogers1052/gold-price-alerts/internal/api"
	"github.com/trogers1052/gold-price-alerts/internal/config"
	"github.com/trogers1052/gold-price-alerts/internal/database"
	"github.com/trogers1052/gold-price-alerts/internal/fxrate"
	"github.com/trogers1052/gold-price-alerts/internal/kafka"
	"github.com/trogers1052/gold-price-alerts/internal/livecache"
	"github.com/trogers1052/gold-price-alerts/internal/logger"
	"github.com/trogers1052/gold-price-alerts/internal/metrics"
	"github.com/trogers1052/gold-price-alerts/internal/notify"
	"github.com/trogers1052/gold-price-alerts/internal/pricefeed"
	"github.com/trogers1052/gold-price-alerts/internal/pricing"
	"github.com/trogers1052/gold-price-alerts/internal/tracker"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New("gold-price-server", cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.Migrate(cfg.Database.MigrationsDir); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}
	log.Info("database ready")

	m := metrics.New()

	// Price sources
	sourceCfgs := pricefeed.DefaultSources()
	if cfg.Pricing.SourcesFile != "" {
		sourceCfgs, err = pricefeed.LoadSources(cfg.Pricing.SourcesFile)
		if err != nil {
			log.Fatal("failed to load price sources", zap.Error(err))
		}
	}
	sources, err := pricefeed.BuildSources(sourceCfgs, &http.Client{})
	if err != nil {
		log.Fatal("failed to build price sources", zap.Error(err))
	}
	chain := pricefeed.NewChain(log, m, sources...)
	log.Info("price sources configured", zap.Strings("sources", chain.Names()))

	// Conversion
	rates := fxrate.NewCache(
		fxrate.NewHTTPProvider(cfg.Pricing.RateURL, &http.Client{}),
		cfg.Pricing.RateTTL,
		map[string]float64{fxrate.PairKey("USD", cfg.Pricing.Currency): cfg.Pricing.DefaultUSDRate},
		log, m,
	)
	converter := pricing.NewConverter(cfg.Pricing.Currency,
		map[string]decimal.Decimal{"INR": decimal.NewFromFloat(cfg.Pricing.Premium)},
		rates,
	)

	// Live price
	live := livecache.New()
	if ok, err := live.Hydrate(ctx, db, cfg.Pricing.Metal, cfg.Pricing.Currency); err != nil {
		log.Warn("failed to hydrate live price", zap.Error(err))
	} else if ok {
		log.Info("live price hydrated from snapshot")
	}

	hub := api.NewHub(log.Named("stream"))
	trackerOpts := []tracker.Option{
		tracker.WithInterval(cfg.Pricing.FetchInterval),
		tracker.WithMetrics(m),
		tracker.WithPublisher("stream", hub.PublishPrice),
	}

	var closers []func() error

	if cfg.Redis.Addr != "" {
		mirror, err := livecache.NewRedisMirror(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		if err != nil {
			log.Warn("redis mirror disabled", zap.Error(err))
		} else {
			trackerOpts = append(trackerOpts, tracker.WithPublisher("redis", mirror.PublishPrice))
			closers = append(closers, mirror.Close)
		}
	}

	var producer *kafka.Producer
	engineOpts := []alerting.Option{
		alerting.WithNotifyTimeout(cfg.Notify.Timeout),
		alerting.WithMetrics(m),
	}
	if cfg.KafkaEnabled() {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		trackerOpts = append(trackerOpts, tracker.WithPublisher("kafka", producer.PublishPriceUpdated))
		engineOpts = append(engineOpts, alerting.WithEvents(producer))
		closers = append(closers, producer.Close)
		log.Info("kafka producer configured", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	var relay notify.PushPublisher
	if producer != nil {
		relay = producer.Push(cfg.Kafka.PushTopic)
	}
	notifier, err := notify.FromConfig(cfg.Notify, relay, log)
	if err != nil {
		log.Fatal("failed to configure notifier", zap.Error(err))
	}

	engine := alerting.NewEngine(db, notifier, cfg.Pricing.Metal, log.Named("alerting"), engineOpts...)
	t := tracker.New(cfg.Pricing.Metal, chain, converter, db, live, engine, log, trackerOpts...)

	// HTTP
	alerts := alerting.NewService(db, live, cfg.Pricing.Metal)
	handler := api.NewHandler(db, alerts, live, hub, cfg.Pricing.Metal, cfg.Pricing.Currency, log.Named("api"))
	srv := &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           api.SetupRoutes(handler, m.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go t.Run(ctx)

	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	errs := srv.Shutdown(shutdownCtx)
	hub.Close()
	for _, c := range closers {
		errs = multierr.Append(errs, c())
	}
	errs = multierr.Append(errs, db.Close())
	if errs != nil {
		log.Error("errors during shutdown", zap.Error(errs))
		os.Exit(1)
	}
	log.Info("stopped")
}
