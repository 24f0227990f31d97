package notification

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/leadflow/consent-service/internal/system/config"
	"github.com/leadflow/consent-service/internal/system/constants"
)

// SinkWebhook selects HTTP delivery
const SinkWebhook = "webhook"

const defaultWebhookTimeout = 10 * time.Second

// WebhookSink POSTs the event JSON to a configured URL
type WebhookSink struct {
	url        string
	token      string
	httpClient *http.Client
}

// NewWebhookSink creates a webhook sink. The per-request timeout comes from cfg.Timeout.
func NewWebhookSink(cfg config.WebhookConfig) *WebhookSink {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookSink{
		url:   cfg.URL,
		token: cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
			},
		},
	}
}

func (w *WebhookSink) Name() string   { return SinkWebhook }
func (w *WebhookSink) Target() string { return w.url }
func (w *WebhookSink) Close() error {
	w.httpClient.CloseIdleConnections()
	return nil
}

// Deliver sends payload and treats any non-2xx response as a failure.
func (w *WebhookSink) Deliver(ctx context.Context, key string, payload []byte) error {
	ctx, span := tracer.Start(ctx, "notification.webhook.deliver", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set(constants.ContentTypeHeaderName, constants.ContentTypeJSON)
	req.Header.Set(constants.EventKeyHeaderName, key)
	if w.token != "" {
		req.Header.Set(constants.AuthorizationHeaderName, constants.TokenTypeBearer+" "+w.token)
	}
	span.SetAttributes(
		attribute.String("http.url", w.url),
		attribute.String("http.method", http.MethodPost),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := w.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("webhook responded with status %d", resp.StatusCode)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
