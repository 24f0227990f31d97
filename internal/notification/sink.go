package notification

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"

	"github.com/leadflow/consent-service/internal/system/config"
)

const tracerName = "github.com/leadflow/consent-service/internal/notification"

var tracer = otel.Tracer(tracerName)

// Sink delivers a serialized event to an external system
type Sink interface {
	// Name labels metrics and logs, for example "webhook".
	Name() string
	// Target is recorded as SENT_TO on the notification log.
	Target() string
	Deliver(ctx context.Context, key string, payload []byte) error
	Close() error
}

// NewSink builds the sink selected by cfg.Sink. An empty selection returns a nil sink.
func NewSink(cfg config.NotificationConfig) (Sink, error) {
	switch cfg.Sink {
	case "":
		return nil, nil
	case SinkWebhook:
		return NewWebhookSink(cfg.Webhook), nil
	case SinkKafka:
		return NewKafkaSink(cfg.Kafka), nil
	default:
		return nil, fmt.Errorf("unsupported notification sink: %s", cfg.Sink)
	}
}
