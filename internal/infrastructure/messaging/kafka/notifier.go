// Package kafka forwards domain notifications to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/event"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infra/logging"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infrastructure/eventbus"
)

// Envelope is the message value written for every notification.
type Envelope struct {
	ID         string          `json:"id"`
	Type       event.Type      `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Notifier publishes events keyed by transaction id, so every message of
// one transaction lands on the same partition.
type Notifier struct {
	Producer sarama.SyncProducer
	Topic    string
	Logger   logging.Logger
}

// NewProducer builds a synchronous producer that waits for all in-sync
// replicas.
func NewProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	return sarama.NewSyncProducer(brokers, config)
}

func (n *Notifier) Handle(_ context.Context, evt event.Event) error {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", evt.Type, err)
	}

	value, err := json.Marshal(Envelope{
		ID:         evt.ID,
		Type:       evt.Type,
		OccurredAt: evt.OccurredAt,
		Payload:    payload,
	})
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: n.Topic,
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(evt.Type)},
		},
	}
	if key := transactionKey(evt.Payload); key != "" {
		msg.Key = sarama.StringEncoder(key)
	}

	partition, offset, err := n.Producer.SendMessage(msg)
	if err != nil {
		n.logger().Error("notification not delivered", map[string]any{
			"event-id":   evt.ID,
			"event-type": evt.Type,
			"topic":      n.Topic,
			"error":      err,
		})
		return err
	}

	n.logger().Info("notification delivered", map[string]any{
		"event-id":   evt.ID,
		"event-type": evt.Type,
		"partition":  partition,
		"offset":     offset,
	})
	return nil
}

// Subscribe registers the notifier for every notification type.
func (n *Notifier) Subscribe(bus *eventbus.InMemoryBus) {
	bus.SubscribeAll(event.Notifications, n.Handle)
}

func transactionKey(payload any) string {
	switch p := payload.(type) {
	case event.OrderPlacedPayload:
		return p.TransactionID
	case event.RefundIssuedPayload:
		return p.TransactionID
	case event.ReturnIssuedPayload:
		return p.TransactionID
	case event.TransactionVoidedPayload:
		return p.TransactionID
	}
	return ""
}

func (n *Notifier) logger() logging.Logger {
	if n.Logger == nil {
		return logging.Nop{}
	}
	return n.Logger
}
