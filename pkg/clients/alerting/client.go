package alerting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/lttp/internal/config"
)

// Level grades an alert.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
)

// Message is the JSON payload posted to the alert webhook.
type Message struct {
	Source string   `json:"source"`
	Level  Level    `json:"level"`
	Title  string   `json:"title"`
	Text   string   `json:"text"`
	Lines  []string `json:"lines,omitempty"`
}

// Client delivers alerts to an operator channel.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// WebhookClient is a resty-backed implementation of Client.
type WebhookClient struct {
	httpClient *resty.Client
	url        string
}

// NewClient builds a webhook client from configuration.
func NewClient(cfg config.AlertingConfig) *WebhookClient {
	restyClient := resty.New()
	restyClient.
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)
	if cfg.Token != "" {
		restyClient.SetAuthToken(cfg.Token)
	}

	return &WebhookClient{
		httpClient: restyClient,
		url:        cfg.WebhookURL,
	}
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Send posts msg to the webhook.
func (c *WebhookClient) Send(ctx context.Context, msg Message) error {
	if msg.Source == "" {
		msg.Source = "lttp"
	}

	apiErr := new(apiError)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(msg).
		SetError(apiErr).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("send alert: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := apiErr.Message
		if message == "" {
			message = apiErr.Error
		}
		if message == "" {
			message = resp.Status()
		}
		return fmt.Errorf("alert webhook error: code=%d, message=%s", resp.StatusCode(), message)
	}

	return nil
}

// Noop discards alerts; used when no webhook is configured.
type Noop struct{}

// Send implements Client.
func (Noop) Send(context.Context, Message) error { return nil }
