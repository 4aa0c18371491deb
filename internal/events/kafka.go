package events

import (
	"encoding/json"
	"log/slog"

	"github.com/IBM/sarama"
)

type KafkaProducer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

var _ Producer = (*KafkaProducer)(nil)

func NewKafkaProducer(brokers []string, topic string, logger *slog.Logger) (*KafkaProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	logger.Info("kafka producer initialized", "brokers", brokers, "topic", topic)

	return &KafkaProducer{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}, nil
}

func (p *KafkaProducer) Publish(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal event", "error", err)
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		// Key by entity id so all events for one record land on the same
		// partition in order.
		Key:   sarama.StringEncoder(event.EntityID),
		Value: sarama.ByteEncoder(payload),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.Error("failed to publish event to kafka", "error", err)
		return err
	}

	p.logger.Info("event published to kafka", "topic", p.topic, "partition", partition, "offset", offset, "entity", event.Entity, "action", event.Action)
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.producer.Close()
}
