package notifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/portsense/portsense/internal/models"
)

// SMSConfig holds Twilio API credentials.
type SMSConfig struct {
	AccountSID string // Twilio account SID
	AuthToken  string // Twilio auth token
	FromNumber string // sending phone number in E.164 format
	BaseURL    string // override for tests; default Twilio API root
}

// Validate validates the SMS configuration.
func (c *SMSConfig) Validate() error {
	if c.AccountSID == "" {
		return fmt.Errorf("account SID is required")
	}
	if c.AuthToken == "" {
		return fmt.Errorf("auth token is required")
	}
	if c.FromNumber == "" {
		return fmt.Errorf("from number is required")
	}
	return nil
}

// SMSChannel sends alerts as text messages via the Twilio REST API.
type SMSChannel struct {
	config     SMSConfig
	httpClient *http.Client
}

// NewSMSChannel creates a new SMS channel.
func NewSMSChannel(config SMSConfig) (*SMSChannel, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sms config: %w", err)
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.twilio.com"
	}

	return &SMSChannel{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Name returns "sms".
func (s *SMSChannel) Name() string {
	return "sms"
}

// Enabled reports true only when the user opted in and configured a
// destination number.
func (s *SMSChannel) Enabled(prefs *models.NotificationPreferences) bool {
	return prefs.SMSAlerts && prefs.PhoneNumber != ""
}

// Send delivers the alert as a single text message.
func (s *SMSChannel) Send(ctx context.Context, alert *models.Alert, c *models.Container, prefs *models.NotificationPreferences) error {
	body := fmt.Sprintf("PortSense Alert: %s\n\n%s\n\nContainer: %s\nStatus: %s\nLocation: %s",
		alert.Title, alert.Message, c.ContainerID, c.Status, orUnknown(c.CurrentLocation))

	form := url.Values{}
	form.Set("To", prefs.PhoneNumber)
	form.Set("From", s.config.FromNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		s.config.BaseURL, url.PathEscape(s.config.AccountSID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.config.AccountSID, s.config.AuthToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("twilio API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
