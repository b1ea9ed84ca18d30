package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IBM/sarama"

	"github.com/geosift/eligo/internal/observability"
)

// Publisher emits RunCompleted events. The nil-safe NopPublisher is
// used when eventing is disabled.
type Publisher interface {
	Publish(ev RunCompleted) error
	Close() error
}

type NopPublisher struct{}

func (NopPublisher) Publish(RunCompleted) error { return nil }
func (NopPublisher) Close() error               { return nil }

type syncSender interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

// KafkaPublisher publishes events through a synchronous producer so a
// delivery failure is visible at publish time.
type KafkaPublisher struct {
	log      *slog.Logger
	producer syncSender
	topic    string
}

func NewKafka(logger *slog.Logger, brokers, topic string) (*KafkaPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal

	producer, err := sarama.NewSyncProducer(splitBrokers(brokers), cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return &KafkaPublisher{log: logger, producer: producer, topic: topic}, nil
}

func (p *KafkaPublisher) Publish(ev RunCompleted) error {
	b, err := json.Marshal(ev)
	if err != nil {
		observability.IncEventPublished(err)
		return fmt.Errorf("marshal event: %w", err)
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.RunID),
		Value: sarama.ByteEncoder(b),
	})
	observability.IncEventPublished(err)
	if err != nil {
		return fmt.Errorf("publish run event: %w", err)
	}
	p.log.Debug("run event published", "run_id", ev.RunID, "topic", p.topic)
	return nil
}

func (p *KafkaPublisher) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("kafka close: %w", err)
	}
	return nil
}

func splitBrokers(brokers string) []string {
	parts := strings.Split(brokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
