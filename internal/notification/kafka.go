package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/leadflow/consent-service/internal/system/config"
)

// SinkKafka selects message broker delivery
const SinkKafka = "kafka"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes the event JSON keyed by application form id
type KafkaSink struct {
	writer  messageWriter
	brokers string
	topic   string
}

// NewKafkaSink creates a synchronous producer so each delivery reports its own outcome.
func NewKafkaSink(cfg config.KafkaConfig) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: false,
		},
		brokers: strings.Join(cfg.Brokers, ","),
		topic:   cfg.Topic,
	}
}

func (k *KafkaSink) Name() string   { return SinkKafka }
func (k *KafkaSink) Target() string { return "kafka://" + k.brokers + "/" + k.topic }
func (k *KafkaSink) Close() error   { return k.writer.Close() }

func (k *KafkaSink) Deliver(ctx context.Context, key string, payload []byte) error {
	ctx, span := tracer.Start(ctx, k.topic+" publish", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination.name", k.topic),
		attribute.String("messaging.kafka.message.key", key),
	)

	msg := kafka.Message{Key: []byte(key), Value: payload}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{msg: &msg})

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to publish to %s: %w", k.topic, err)
	}
	return nil
}

// headerCarrier adapts kafka message headers to the otel TextMapCarrier.
type headerCarrier struct {
	msg *kafka.Message
}

func (c headerCarrier) Get(key string) string {
	for _, h := range c.msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range c.msg.Headers {
		if h.Key == key {
			c.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}
