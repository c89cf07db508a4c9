package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"solana-wallet-inspector/internal/domain"
	"solana-wallet-inspector/internal/observability"
)

// KafkaSink publishes envelopes to a Kafka topic, keyed by transfer ID so
// redeliveries of the same transfer land on the same partition.
type KafkaSink struct {
	topic    string
	producer sarama.SyncProducer
	now      func() time.Time
}

// NewKafkaConfig returns the producer configuration used by NewKafkaSink.
func NewKafkaConfig() *sarama.Config {
	cfg := sarama.NewConfig()

	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 10
	cfg.Producer.Retry.Backoff = 200 * time.Millisecond

	// SyncProducer must have Return.Successes=true
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true

	cfg.Version = sarama.V2_1_0_0
	return cfg
}

// NewKafkaSink connects a synchronous producer to brokers. A nil cfg uses NewKafkaConfig.
func NewKafkaSink(brokers []string, topic string, cfg *sarama.Config) (*KafkaSink, error) {
	if topic == "" {
		return nil, errors.New("kafka topic is empty")
	}
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers")
	}
	if cfg == nil {
		cfg = NewKafkaConfig()
	}

	p, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewKafkaSinkWithProducer(p, topic), nil
}

// NewKafkaSinkWithProducer wraps an existing producer.
func NewKafkaSinkWithProducer(p sarama.SyncProducer, topic string) *KafkaSink {
	return &KafkaSink{topic: topic, producer: p, now: time.Now}
}

var _ Sink = (*KafkaSink)(nil)

// Publish sends ev and waits for the broker acknowledgement.
func (s *KafkaSink) Publish(ctx context.Context, wallet string, ev domain.TransferEvent) error {
	// SyncProducer takes no context; honor cancellation before sending.
	if err := ctx.Err(); err != nil {
		return err
	}

	b, err := encode(wallet, ev, s.now())
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(ev.ID),
		Value: sarama.ByteEncoder(b),
	}
	if _, _, err := s.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("kafka publish %s: %w", ev.ID, err)
	}
	observability.RecordTransferPublished("kafka")
	return nil
}

// Close closes the producer.
func (s *KafkaSink) Close() error {
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}
