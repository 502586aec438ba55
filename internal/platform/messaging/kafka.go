package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"agora/contexts/sprint-governance/ceremony-engine/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

var (
	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_events_published_total",
		Help: "Events published to the broker, by topic.",
	}, []string{"topic"})
	eventPublishErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_event_publish_errors_total",
		Help: "Event publish failures, by topic.",
	}, []string{"topic"})
)

// Kafka publishes canonical envelopes through a shared segmentio writer. The
// topic comes per message, so one writer serves the whole event catalog.
type Kafka struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewKafka(brokers []string, logger *slog.Logger) (*Kafka, error) {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &Kafka{
		writer: writer,
		logger: logger,
	}, nil
}

func (k *Kafka) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = k.writer.WriteMessages(writeCtx, kafka.Message{
		Topic: topic,
		Key:   []byte(event.PartitionKey),
		Value: payload,
	})
	if err != nil {
		eventPublishErrors.WithLabelValues(topic).Inc()
		if k.logger != nil {
			k.logger.Error("event publish failed",
				"event", "kafka_publish_failed",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"topic", topic,
				"event_id", event.EventID,
				"event_type", event.EventType,
				"error", err.Error(),
			)
		}
		return err
	}

	eventsPublished.WithLabelValues(topic).Inc()
	if k.logger != nil {
		k.logger.Info("event published",
			"event", "kafka_publish",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"event_id", event.EventID,
			"event_type", event.EventType,
		)
	}
	return nil
}

// Close flushes and closes the underlying writer. Safe on nil.
func (k *Kafka) Close() error {
	if k == nil || k.writer == nil {
		return nil
	}
	return k.writer.Close()
}

var _ ports.EventPublisher = (*Kafka)(nil)
