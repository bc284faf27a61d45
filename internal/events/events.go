// Package events publishes domain events to an optional downstream sink.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pathakanu/healthGenie/internal/config"
	"github.com/sirupsen/logrus"
)

// Event types.
const (
	TypeSymptomRecorded    = "symptom.recorded"
	TypeDocumentSummarized = "document.summarized"
)

// Event is the JSON envelope written to every sink.
type Event struct {
	Type       string    `json:"type"`
	SessionID  string    `json:"session_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data,omitempty"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// New builds the publisher selected by cfg.EventSink.
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (Publisher, error) {
	switch cfg.EventSink {
	case "", "none":
		return Nop{}, nil
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("events: KAFKA_BROKERS is required for the kafka sink")
		}
		log.Infof("events: publishing to kafka topic %s", cfg.KafkaTopic)
		return NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	case "sqs":
		log.Infof("events: publishing to sqs queue %s", cfg.SQSQueueName)
		return NewSQS(ctx, cfg.SQSQueueName)
	default:
		return nil, fmt.Errorf("events: unknown EVENT_SINK %q", cfg.EventSink)
	}
}

func encode(event Event) ([]byte, error) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	return json.Marshal(event)
}
