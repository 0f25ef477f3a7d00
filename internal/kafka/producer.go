package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/gold-price-alerts/internal/models"
)

// MessageWriter is the subset of kafka.Writer used by Producer
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles publishing events to Kafka
type Producer struct {
	writer MessageWriter
	topic  string
}

// NewProducer creates a new Kafka producer. The topic is set per message so
// one writer can serve both the price and push topics.
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}

	return NewProducerWithWriter(writer, topic)
}

// NewProducerWithWriter creates a producer on top of an existing writer
func NewProducerWithWriter(w MessageWriter, topic string) *Producer {
	return &Producer{
		writer: w,
		topic:  topic,
	}
}

// PublishPriceUpdated publishes a price updated event
func (p *Producer) PublishPriceUpdated(ctx context.Context, lp models.LivePrice) error {
	event := models.PriceEvent{
		EventID:   uuid.NewString(),
		EventType: models.EventPriceUpdated,
		Metal:     lp.Metal,
		Price:     lp.Price,
		Currency:  lp.Currency,
		Timestamp: lp.UpdatedAt,
	}
	return p.publish(ctx, p.topic, lp.Metal, event)
}

// PublishAlertTriggered publishes an alert triggered event
func (p *Producer) PublishAlertTriggered(ctx context.Context, a *models.Alert, price decimal.Decimal) error {
	event := models.PriceEvent{
		EventID:   uuid.NewString(),
		EventType: models.EventAlertTriggered,
		Metal:     a.Metal,
		Price:     price,
		AlertID:   a.ID,
		Direction: a.Direction,
		Target:    a.TargetPrice,
		Timestamp: time.Now().UTC(),
	}
	return p.publish(ctx, p.topic, a.Metal, event)
}

// PushProducer publishes push requests to their own topic
type PushProducer struct {
	*Producer
}

// Push returns a producer for push requests on topic sharing p's writer
func (p *Producer) Push(topic string) *PushProducer {
	return &PushProducer{Producer: &Producer{writer: p.writer, topic: topic}}
}

// PublishPushRequest publishes a push request keyed by device token
func (p *PushProducer) PublishPushRequest(ctx context.Context, req models.PushRequest) error {
	return p.publish(ctx, p.topic, req.DeviceToken, req)
}

func (p *Producer) publish(ctx context.Context, topic, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
