// internal/service/auction/infrastructure/adapter/events_kafka_adapter.go
package adapter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"gavel/internal/pkg/mq"
	"gavel/internal/service/auction/domain"
)

// EventsTopic 是领域事件的出口主题，通知服务、推送网关都从这里消费。
const EventsTopic = "auction-events"

// EventEnvelope 是事件在 Kafka 上的统一外壳。
type EventEnvelope struct {
	Event      string          `json:"event"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// EventsKafkaAdapter 是 port.EventPublisher 接口的 Kafka 实现。
// 以拍卖 ID 作为分区键，保证同一场拍卖的事件在分区内有序。
type EventsKafkaAdapter struct {
	writer *kafka.Writer
}

func NewEventsKafkaAdapter(brokers []string) *EventsKafkaAdapter {
	return &EventsKafkaAdapter{writer: mq.NewKafkaWriter(brokers, EventsTopic)}
}

// Publish 实现 port.EventPublisher。
func (a *EventsKafkaAdapter) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event payload")
	}
	envelope, err := json.Marshal(EventEnvelope{
		Event:      event.EventName(),
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal event envelope")
	}
	key := []byte(event.AggregateID().String())
	return errors.Wrap(mq.ProduceMessage(ctx, a.writer, key, envelope), "failed to produce event")
}

// Close 关闭底层的 Kafka writer。
func (a *EventsKafkaAdapter) Close() error {
	return a.writer.Close()
}
