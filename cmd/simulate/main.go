// Command simulate evaluates pending alerts at a given price without
// fetching from any source. Matching alerts are triggered for real and
// notified through the configured NOTIFY_BACKEND.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/gold-price-alerts/internal/alerting"
	"github.com/trogers1052/gold-price-alerts/internal/config"
	"github.com/trogers1052/gold-price-alerts/internal/database"
	"github.com/trogers1052/gold-price-alerts/internal/kafka"
	"github.com/trogers1052/gold-price-alerts/internal/logger"
	"github.com/trogers1052/gold-price-alerts/internal/models"
	"github.com/trogers1052/gold-price-alerts/internal/notify"
	"go.uber.org/zap"
)

func main() {
	priceFlag := flag.String("price", "", "price to evaluate alerts against, e.g. 7512.30")
	record := flag.Bool("record", false, "also store the price as a snapshot")
	flag.Parse()

	price, err := decimal.NewFromString(*priceFlag)
	if err != nil || !price.IsPositive() {
		fmt.Fprintln(os.Stderr, "usage: simulate -price <positive number> [-record]")
		os.Exit(2)
	}

	cfg := config.Load()
	cfg.Log.Console = true
	log, err := logger.New("gold-simulate", cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	if *record {
		snap := &models.PriceSnapshot{Metal: cfg.Pricing.Metal, Price: price.Round(2)}
		if err := db.CreatePriceSnapshot(ctx, snap); err != nil {
			log.Fatal("failed to record snapshot", zap.Error(err))
		}
	}

	var relay notify.PushPublisher
	engineOpts := []alerting.Option{alerting.WithNotifyTimeout(cfg.Notify.Timeout)}
	if cfg.KafkaEnabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		relay = producer.Push(cfg.Kafka.PushTopic)
		engineOpts = append(engineOpts, alerting.WithEvents(producer))
	}

	notifier, err := notify.FromConfig(cfg.Notify, relay, log)
	if err != nil {
		log.Fatal("failed to configure notifier", zap.Error(err))
	}

	engine := alerting.NewEngine(db, notifier, cfg.Pricing.Metal, log, engineOpts...)
	triggered, err := engine.Evaluate(ctx, price)
	if err != nil {
		log.Fatal("evaluation failed", zap.Error(err))
	}
	fmt.Printf("%d alert(s) triggered at %s\n", triggered, price.StringFixed(2))
}
