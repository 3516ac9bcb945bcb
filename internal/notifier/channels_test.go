package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/portsense/portsense/internal/models"
)

func TestEmailChannelEnabled(t *testing.T) {
	channel, err := NewEmailChannel(EmailConfig{
		Host: "smtp.example.com",
		Port: 587,
		From: "PortSense <alerts@example.com>",
	})
	if err != nil {
		t.Fatalf("NewEmailChannel failed: %v", err)
	}

	tests := []struct {
		name  string
		prefs *models.NotificationPreferences
		want  bool
	}{
		{"opted in with address", &models.NotificationPreferences{EmailAlerts: true, Email: "a@example.com"}, true},
		{"opted out", &models.NotificationPreferences{EmailAlerts: false, Email: "a@example.com"}, false},
		{"no address", &models.NotificationPreferences{EmailAlerts: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := channel.Enabled(tt.prefs); got != tt.want {
				t.Errorf("Enabled = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEmailConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		config EmailConfig
		ok     bool
	}{
		{"valid", EmailConfig{Host: "smtp.example.com", Port: 587, From: "a@example.com"}, true},
		{"missing host", EmailConfig{Port: 587, From: "a@example.com"}, false},
		{"missing port", EmailConfig{Host: "smtp.example.com", From: "a@example.com"}, false},
		{"missing from", EmailConfig{Host: "smtp.example.com", Port: 587}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err == nil) != tt.ok {
				t.Errorf("Validate = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestExtractEmail(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"PortSense <alerts@example.com>", "alerts@example.com"},
		{"alerts@example.com", "alerts@example.com"},
	}
	for _, tt := range tests {
		if got := extractEmail(tt.in); got != tt.want {
			t.Errorf("extractEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEmailMIMEMessage(t *testing.T) {
	channel, err := NewEmailChannel(EmailConfig{
		Host:   "smtp.example.com",
		Port:   587,
		From:   "PortSense <alerts@example.com>",
		AppURL: "https://app.example.com",
	})
	if err != nil {
		t.Fatalf("NewEmailChannel failed: %v", err)
	}

	alert := testAlert()
	c := testDispatchContainer()
	c.DelayHours = 30

	msg := string(channel.buildMIMEMessage("bob@example.com",
		"PortSense Alert: "+alert.Title,
		channel.buildPlainBody(alert, c),
		channel.buildHTMLBody(alert, c)))

	for _, want := range []string{
		"To: bob@example.com",
		"Subject: PortSense Alert: " + alert.Title,
		"Content-Type: multipart/alternative",
		"Content-Type: text/plain",
		"Content-Type: text/html",
		"Delay: 30 hours",
		"https://app.example.com/dashboard/containers/c-1",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestSMSChannel(t *testing.T) {
	var gotPath, gotUser, gotPass string
	var gotForm map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		r.ParseForm()
		gotForm = r.PostForm
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid": "SM123"}`))
	}))
	defer server.Close()

	channel, err := NewSMSChannel(SMSConfig{
		AccountSID: "AC123",
		AuthToken:  "token",
		FromNumber: "+15550100",
		BaseURL:    server.URL,
	})
	if err != nil {
		t.Fatalf("NewSMSChannel failed: %v", err)
	}

	prefs := &models.NotificationPreferences{
		UserID:      "u-1",
		SMSAlerts:   true,
		PhoneNumber: "+15550199",
	}
	if !channel.Enabled(prefs) {
		t.Fatal("channel should be enabled")
	}
	if channel.Enabled(&models.NotificationPreferences{SMSAlerts: true}) {
		t.Error("channel enabled without a phone number")
	}

	if err := channel.Send(context.Background(), testAlert(), testDispatchContainer(), prefs); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if gotPath != "/2010-04-01/Accounts/AC123/Messages.json" {
		t.Errorf("path = %q", gotPath)
	}
	if gotUser != "AC123" || gotPass != "token" {
		t.Errorf("auth = %s:%s", gotUser, gotPass)
	}
	if got := gotForm["To"]; len(got) != 1 || got[0] != "+15550199" {
		t.Errorf("To = %v", gotForm["To"])
	}
	if got := gotForm["From"]; len(got) != 1 || got[0] != "+15550100" {
		t.Errorf("From = %v", gotForm["From"])
	}
	if got := gotForm["Body"]; len(got) != 1 || !strings.Contains(got[0], "MSKU1234567") {
		t.Errorf("Body = %v", gotForm["Body"])
	}
}

func TestSMSChannelAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code": 21211}`, http.StatusBadRequest)
	}))
	defer server.Close()

	channel, err := NewSMSChannel(SMSConfig{
		AccountSID: "AC123",
		AuthToken:  "token",
		FromNumber: "+15550100",
		BaseURL:    server.URL,
	})
	if err != nil {
		t.Fatalf("NewSMSChannel failed: %v", err)
	}

	prefs := &models.NotificationPreferences{SMSAlerts: true, PhoneNumber: "bad"}
	if err := channel.Send(context.Background(), testAlert(), testDispatchContainer(), prefs); err == nil {
		t.Error("expected error for API failure")
	}
}

func TestSMSConfigValidate(t *testing.T) {
	if _, err := NewSMSChannel(SMSConfig{AuthToken: "t", FromNumber: "+1"}); err == nil {
		t.Error("expected error for missing account SID")
	}
	if _, err := NewSMSChannel(SMSConfig{AccountSID: "AC", FromNumber: "+1"}); err == nil {
		t.Error("expected error for missing auth token")
	}
	if _, err := NewSMSChannel(SMSConfig{AccountSID: "AC", AuthToken: "t"}); err == nil {
		t.Error("expected error for missing from number")
	}
}

func TestWebhookChannel(t *testing.T) {
	var payload webhookMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	channel := NewWebhookChannel()
	prefs := &models.NotificationPreferences{UserID: "u-1", WebhookURL: server.URL}

	if !channel.Enabled(prefs) {
		t.Fatal("channel should be enabled with a URL")
	}
	if channel.Enabled(&models.NotificationPreferences{}) {
		t.Error("channel enabled without a URL")
	}

	alert := testAlert()
	c := testDispatchContainer()
	c.CurrentLocation = "Port of Singapore"
	c.DelayHours = 30

	if err := channel.Send(context.Background(), alert, c, prefs); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if !strings.Contains(payload.Text, alert.Title) {
		t.Errorf("fallback text = %q", payload.Text)
	}
	if len(payload.Blocks) == 0 || payload.Blocks[0].Type != "header" {
		t.Fatalf("blocks = %+v, want header first", payload.Blocks)
	}

	var contextLine string
	for _, block := range payload.Blocks {
		if block.Type == "context" && len(block.Elements) > 0 {
			contextLine = block.Elements[0].Text
		}
	}
	for _, want := range []string{"Port of Singapore", "Delay: 30h"} {
		if !strings.Contains(contextLine, want) {
			t.Errorf("context %q missing %q", contextLine, want)
		}
	}
}

func TestWebhookChannelErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer server.Close()

	channel := NewWebhookChannel()
	prefs := &models.NotificationPreferences{WebhookURL: server.URL}

	if err := channel.Send(context.Background(), testAlert(), testDispatchContainer(), prefs); err == nil {
		t.Error("expected error for non-2xx response")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	long := strings.Repeat("x", 20)
	got := truncate(long, 10)
	if len(got) != 10 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncate = %q, want 10 chars ending in ellipsis", got)
	}
}

func TestSeverityEmoji(t *testing.T) {
	if severityEmoji(models.SeverityHigh) == severityEmoji(models.SeverityLow) {
		t.Error("severities share an emoji")
	}
}
