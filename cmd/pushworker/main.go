package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/trogers1052/gold-price-alerts/internal/config"
	"github.com/trogers1052/gold-price-alerts/internal/kafka"
	"github.com/trogers1052/gold-price-alerts/internal/logger"
	"github.com/trogers1052/gold-price-alerts/internal/notify"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New("gold-push-worker", cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	if !cfg.KafkaEnabled() {
		log.Fatal("push worker requires KAFKA_BROKERS")
	}

	notifier, err := notify.DirectFromConfig(cfg.Notify, log)
	if err != nil {
		log.Fatal("failed to configure notifier", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewPushConsumer(cfg.Kafka.Brokers, cfg.Kafka.PushTopic, cfg.Kafka.PushGroup, notifier, cfg.Notify.Timeout, log)
	if err := consumer.Start(ctx); err != nil {
		log.Error("push consumer stopped with error", zap.Error(err))
	}
	log.Info("push worker stopped")
}
