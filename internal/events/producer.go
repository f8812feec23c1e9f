package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"bijouterie-be/internal/logger"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer publishes order-lifecycle envelopes to Kafka. A nil Producer is
// valid and drops every event, so the storefront runs without a broker.
type Producer struct {
	w       *kafkago.Writer
	service string
}

func NewProducer(brokers string, topic, service string) *Producer {
	if strings.TrimSpace(brokers) == "" {
		logger.L().Info("kafka brokers not configured, order events disabled")
		return nil
	}

	addrs := strings.Split(brokers, ",")
	return &Producer{
		w: &kafkago.Writer{
			Addr:         kafkago.TCP(addrs...),
			Topic:        topic,
			Balancer:     &kafkago.Hash{},
			RequiredAcks: kafkago.RequireAll,
			Async:        true,
		},
		service: service,
	}
}

// Publish builds an envelope around payload and writes it keyed by orderID.
// Publishing is best-effort: the checkout flow never fails on broker errors.
func (p *Producer) Publish(ctx context.Context, eventType, orderID string, payload any) {
	if p == nil {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to marshal event payload",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      p.service,
		TraceID:       logger.RequestIDFrom(ctx),
		CorrelationID: orderID,
		Payload:       body,
	}

	value, err := json.Marshal(ev)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to marshal event envelope", zap.Error(err))
		return
	}

	msg := kafkago.Message{
		Key:   PartitionKey(orderID),
		Value: value,
		Time:  time.Now(),
		Headers: []kafkago.Header{
			{Key: "x-event-type", Value: []byte(eventType)},
			{Key: "x-event-version", Value: []byte("1")},
		},
	}

	if err := p.w.WriteMessages(context.Background(), msg); err != nil {
		logger.FromCtx(ctx).Warn("failed to publish order event",
			zap.String("event_type", eventType),
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
}

func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.w.Close()
}
