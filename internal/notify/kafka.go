package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/hamed0406/isitdownchecker/internal/domain"
)

// NewKafkaProducer builds a synchronous producer that waits for all
// in-sync replicas.
func NewKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true
	p, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return p, nil
}

type statusMessage struct {
	WebsiteID      string        `json:"websiteId"`
	URL            string        `json:"url"`
	From           domain.Status `json:"from"`
	To             domain.Status `json:"to"`
	ResponseTimeMS *int          `json:"responseTime,omitempty"`
	At             time.Time     `json:"at"`
}

// Kafka publishes status changes to a topic, keyed by website id.
type Kafka struct {
	producer sarama.SyncProducer
	topic    string
	log      *zap.Logger
}

func NewKafka(producer sarama.SyncProducer, topic string, log *zap.Logger) *Kafka {
	return &Kafka{producer: producer, topic: topic, log: log}
}

func (k *Kafka) StatusChanged(ctx context.Context, ch domain.StatusChange) {
	if err := k.Publish(ctx, ch); err != nil {
		k.log.Warn("kafka_publish_error",
			zap.String("website_id", ch.Website.ID),
			zap.Error(err),
		)
	}
}

func (k *Kafka) Publish(ctx context.Context, ch domain.StatusChange) error {
	data, err := json.Marshal(statusMessage{
		WebsiteID:      ch.Website.ID,
		URL:            ch.Website.URL,
		From:           ch.From,
		To:             ch.To,
		ResponseTimeMS: ch.Website.ResponseTimeMS,
		At:             ch.At,
	})
	if err != nil {
		return fmt.Errorf("marshal status change: %w", err)
	}
	partition, offset, err := k.producer.SendMessage(&sarama.ProducerMessage{
		Topic:     k.topic,
		Key:       sarama.StringEncoder(ch.Website.ID),
		Value:     sarama.ByteEncoder(data),
		Timestamp: ch.At,
	})
	if err != nil {
		return fmt.Errorf("kafka send: %w", err)
	}
	k.log.Debug("kafka_status_published",
		zap.String("topic", k.topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

func (k *Kafka) Close() error {
	return k.producer.Close()
}
