package notify

import (
	"errors"

	"github.com/trogers1052/gold-price-alerts/internal/config"
	"go.uber.org/zap"
)

// Notify backends
const (
	BackendLog   = "log"
	BackendAPNs  = "apns"
	BackendKafka = "kafka"
)

// ErrNoRelay is returned when the kafka backend is selected without a publisher
var ErrNoRelay = errors.New("kafka notify backend requires a push publisher")

// FromConfig builds the notifier selected by cfg.Backend. relay is only used
// by the kafka backend and may be nil otherwise.
func FromConfig(cfg config.NotifyConfig, relay PushPublisher, logger *zap.Logger) (Notifier, error) {
	switch cfg.Backend {
	case BackendAPNs:
		return NewAPNs(apnsConfig(cfg))
	case BackendKafka:
		if relay == nil {
			return nil, ErrNoRelay
		}
		return NewRelay(relay), nil
	default:
		return NewLogNotifier(logger.Named("notify")), nil
	}
}

// DirectFromConfig builds a notifier that delivers without a queue: APNs
// when a key file is configured, otherwise the log notifier.
func DirectFromConfig(cfg config.NotifyConfig, logger *zap.Logger) (Notifier, error) {
	if cfg.APNsKeyFile != "" {
		return NewAPNs(apnsConfig(cfg))
	}
	return NewLogNotifier(logger.Named("notify")), nil
}

func apnsConfig(cfg config.NotifyConfig) APNsConfig {
	return APNsConfig{
		KeyFile:    cfg.APNsKeyFile,
		KeyID:      cfg.APNsKeyID,
		TeamID:     cfg.APNsTeamID,
		Topic:      cfg.APNsTopic,
		Production: cfg.APNsProd,
	}
}
