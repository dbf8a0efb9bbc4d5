package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPClient returns an HTTP client configured for gateway calls. Outbound
// requests carry trace context so deliveries show up on the checkout span.
func HTTPClient(timeoutMs int) *http.Client {
	if timeoutMs <= 0 {
		timeoutMs = 5000
	}
	return &http.Client{
		Timeout:   time.Duration(timeoutMs) * time.Millisecond,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// SMSGateway sends text messages through an HTTP SMS provider.
type SMSGateway struct {
	Client   *http.Client
	Endpoint string
	APIKey   string
}

// Send posts the message to the provider. Non-2xx responses are errors so
// asynq retries the task with backoff.
func (g *SMSGateway) Send(ctx context.Context, phone, message string) error {
	if g == nil || g.Endpoint == "" {
		return fmt.Errorf("sms gateway not configured")
	}
	body, err := json.Marshal(map[string]string{"to": phone, "body": message})
	if err != nil {
		return fmt.Errorf("encode sms payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.APIKey)
	}
	resp, err := g.client().Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned %d", resp.StatusCode)
	}
	return nil
}

func (g *SMSGateway) client() *http.Client {
	if g.Client != nil {
		return g.Client
	}
	return http.DefaultClient
}

// PrinterGateway pushes rendered tickets to the kitchen printer bridge.
type PrinterGateway struct {
	Client   *http.Client
	Endpoint string
}

func (g *PrinterGateway) Print(ctx context.Context, ticket string) error {
	if g == nil || g.Endpoint == "" {
		return fmt.Errorf("printer gateway not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint, bytes.NewReader([]byte(ticket)))
	if err != nil {
		return fmt.Errorf("build print request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	resp, err := g.clientOrDefault().Do(req)
	if err != nil {
		return fmt.Errorf("push ticket: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("printer bridge returned %d", resp.StatusCode)
	}
	return nil
}

func (g *PrinterGateway) clientOrDefault() *http.Client {
	if g.Client != nil {
		return g.Client
	}
	return http.DefaultClient
}
