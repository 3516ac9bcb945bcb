package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/portsense/portsense/internal/models"
)

// WebhookChannel posts alerts to the user's configured webhook URL as a
// Slack-compatible Block Kit payload. The destination comes from per-user
// preferences, not server configuration.
type WebhookChannel struct {
	httpClient *http.Client
}

// NewWebhookChannel creates a new webhook channel.
func NewWebhookChannel() *WebhookChannel {
	return &WebhookChannel{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name returns "webhook".
func (w *WebhookChannel) Name() string {
	return "webhook"
}

// Enabled reports true when the user has a webhook URL configured.
func (w *WebhookChannel) Enabled(prefs *models.NotificationPreferences) bool {
	return prefs.WebhookURL != ""
}

// Send posts the alert to the user's webhook.
func (w *WebhookChannel) Send(ctx context.Context, alert *models.Alert, c *models.Container, prefs *models.NotificationPreferences) error {
	payload := buildWebhookPayload(alert, c)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, prefs.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return nil
}

// webhookMessage is a Slack Block Kit compatible payload.
type webhookMessage struct {
	Text   string         `json:"text"`
	Blocks []webhookBlock `json:"blocks"`
}

// webhookBlock is a single Block Kit block.
type webhookBlock struct {
	Type     string        `json:"type"`
	Text     *webhookText  `json:"text,omitempty"`
	Fields   []webhookText `json:"fields,omitempty"`
	Elements []webhookText `json:"elements,omitempty"`
}

// webhookText is a Block Kit text object.
type webhookText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// buildWebhookPayload builds the Block Kit message for an alert.
func buildWebhookPayload(alert *models.Alert, c *models.Container) webhookMessage {
	emoji := severityEmoji(alert.Severity)
	timestamp := alert.CreatedAt.Format("2006-01-02 15:04:05 MST")

	blocks := []webhookBlock{
		{
			Type: "header",
			Text: &webhookText{
				Type:  "plain_text",
				Text:  fmt.Sprintf("%s PortSense Alert: %s", emoji, alert.Title),
				Emoji: true,
			},
		},
		{
			Type: "section",
			Fields: []webhookText{
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Severity:*\n%s %s", emoji, strings.ToUpper(string(alert.Severity))),
				},
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Time:*\n%s", timestamp),
				},
			},
		},
		{
			Type: "section",
			Text: &webhookText{
				Type: "mrkdwn",
				Text: fmt.Sprintf("*Message:*\n%s", truncate(alert.Message, 2000)),
			},
		},
		{
			Type: "section",
			Fields: []webhookText{
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Container:*\n`%s`", c.ContainerID),
				},
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Status:*\n%s", c.Status),
				},
			},
		},
	}

	contextParts := []string{fmt.Sprintf("Location: %s", orUnknown(c.CurrentLocation))}
	if c.DelayHours > 0 {
		contextParts = append(contextParts, fmt.Sprintf("Delay: %dh", c.DelayHours))
	}
	if c.Carrier != "" {
		contextParts = append(contextParts, fmt.Sprintf("Carrier: %s", c.Carrier))
	}
	blocks = append(blocks, webhookBlock{
		Type: "context",
		Elements: []webhookText{
			{
				Type: "mrkdwn",
				Text: strings.Join(contextParts, " | "),
			},
		},
	})

	return webhookMessage{
		Text:   fmt.Sprintf("PortSense Alert: %s", alert.Title),
		Blocks: blocks,
	}
}

// severityEmoji returns an emoji for the severity level.
func severityEmoji(severity models.Severity) string {
	switch severity {
	case models.SeverityHigh:
		return "\U0001F534" // red circle
	case models.SeverityMedium:
		return "\U0001F7E1" // yellow circle
	case models.SeverityLow:
		return "\U0001F7E2" // green circle
	default:
		return "\u26AA" // white circle
	}
}

// truncate truncates a string to max length with ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
