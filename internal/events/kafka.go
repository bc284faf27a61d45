package events

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Kafka writes events to a single topic keyed by session id, so one session's
// events stay ordered within a partition.
type Kafka struct {
	writer *kafka.Writer
}

// NewKafka creates a writer for topic on the given brokers.
func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
	}
}

func (k *Kafka) Publish(ctx context.Context, event Event) error {
	payload, err := encode(event)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.SessionID),
		Value: payload,
	})
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
