// README: Kafka producer publishing lifecycle events for the external notifier.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// KafkaProducer publishes lifecycle events to the notifier topic. Messages are
// keyed by trip ID so per-trip ordering is preserved within a partition.
type KafkaProducer struct {
	writer *kafka.Writer
	log    *logrus.Logger
}

func NewKafkaProducer(brokers []string, topic string, log *logrus.Logger) *KafkaProducer {
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.LeastBytes{}})
	return &KafkaProducer{writer: w, log: log}
}

func (p *KafkaProducer) Emit(ctx context.Context, ev Event) {
	// Internal stream events stay in-process; the notifier only cares about
	// lifecycle transitions.
	if ev.Type == DriverLocation || ev.Type == ChatMessage {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := json.Marshal(ev)
	if err != nil {
		p.log.WithError(err).Warn("events: marshal failed")
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(ev.TripID), Value: b})
	if err != nil {
		p.log.WithError(err).WithField("trip_id", ev.TripID).Warn("events: kafka publish failed")
	}
}

func (p *KafkaProducer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
