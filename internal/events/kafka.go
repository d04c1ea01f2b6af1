package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/cx-tal-miterani/booking-ledger/internal/logger"
)

// EventsTopic carries every booking and flight event. Messages are keyed by
// flight, so one flight's events share a partition and keep their order.
// Consumers select types with the event-type header.
const EventsTopic = "booking-events"

// KafkaPublisher writes events to EventsTopic
type KafkaPublisher struct {
	producer sarama.SyncProducer
	mockMode bool
	log      *logger.Logger
}

// NewKafkaPublisher connects a sync producer. In mock mode nothing is sent and
// events are only logged.
func NewKafkaPublisher(brokers []string, mockMode bool, log *logger.Logger) (*KafkaPublisher, error) {
	if mockMode {
		log.LogKafka("MOCK_MODE", "producer", "Running in mock mode - no actual Kafka connection")
		return &KafkaPublisher{mockMode: true, log: log}, nil
	}

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	log.LogKafka("CONNECTED", "producer", fmt.Sprintf("Connected to Kafka brokers: %v", brokers))
	return NewKafkaPublisherWithProducer(producer, log), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := EventsTopic
	if p.mockMode {
		p.log.LogKafka("MOCK_PUBLISH", topic, "Mock publishing event", "type", e.Type, "flight_id", e.FlightID)
		p.log.Debug("KAFKA", string(data))
		return nil
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(e.FlightID.String()),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(e.Type)},
			{Key: []byte("event-id"), Value: []byte(e.ID.String())},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message to %s: %w", topic, err)
	}

	p.log.LogKafka("PUBLISHED", topic, "Message sent", "partition", partition, "offset", offset, "event_id", e.ID)
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p.mockMode {
		p.log.LogKafka("MOCK_CLOSE", "producer", "Mock producer closed")
		return nil
	}
	if p.producer != nil {
		p.log.LogKafka("CLOSING", "producer", "Closing Kafka producer connection")
		return p.producer.Close()
	}
	return nil
}
