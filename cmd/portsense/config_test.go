package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
tracking:
  base_url: https://api.example.com/v1
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Address != ":8080" {
		t.Errorf("address = %q, want :8080", cfg.Server.Address)
	}
	if cfg.Server.MetricsAddress != ":9090" {
		t.Errorf("metrics address = %q, want :9090", cfg.Server.MetricsAddress)
	}
	if cfg.Database.Path != "data/portsense.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if cfg.Tracking.Timeout != "15s" || cfg.Tracking.RateLimit != 2.5 || cfg.Tracking.Burst != 5 {
		t.Errorf("tracking defaults = %+v", cfg.Tracking)
	}
	if cfg.Monitor.Interval != "5m" || cfg.Monitor.SweepInterval != "1m" || cfg.Monitor.RetentionDays != 30 {
		t.Errorf("monitor defaults = %+v", cfg.Monitor)
	}
	if cfg.Notifications.MaxPerMinute != 30 {
		t.Errorf("max per minute = %d, want 30", cfg.Notifications.MaxPerMinute)
	}
	if cfg.Notifications.Email.Port != 587 {
		t.Errorf("smtp port = %d, want 587", cfg.Notifications.Email.Port)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  address: ":9000"
tracking:
  base_url: https://api.example.com/v1
  rate_limit: 1.0
monitor:
  interval: 10m
  retention_days: 7
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Address != ":9000" {
		t.Errorf("address = %q, want :9000", cfg.Server.Address)
	}
	if cfg.Tracking.RateLimit != 1.0 {
		t.Errorf("rate limit = %v, want 1.0", cfg.Tracking.RateLimit)
	}
	if cfg.Monitor.Interval != "10m" || cfg.Monitor.RetentionDays != 7 {
		t.Errorf("monitor = %+v", cfg.Monitor)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing tracking base url",
			content: "server:\n  address: ':8080'\n",
			wantErr: "tracking.base_url",
		},
		{
			name: "bad timeout",
			content: `
tracking:
  base_url: https://api.example.com/v1
  timeout: soonish
`,
			wantErr: "tracking.timeout",
		},
		{
			name: "interval too short",
			content: `
tracking:
  base_url: https://api.example.com/v1
monitor:
  interval: 10s
`,
			wantErr: "monitor.interval",
		},
		{
			name: "negative retention",
			content: `
tracking:
  base_url: https://api.example.com/v1
monitor:
  retention_days: -1
`,
			wantErr: "retention_days",
		},
		{
			name: "email enabled without host",
			content: `
tracking:
  base_url: https://api.example.com/v1
notifications:
  email:
    enabled: true
    from: alerts@example.com
`,
			wantErr: "notifications.email.host",
		},
		{
			name: "sms enabled without sid",
			content: `
tracking:
  base_url: https://api.example.com/v1
notifications:
  sms:
    enabled: true
    auth_token: tok
    from_number: "+15550100"
`,
			wantErr: "notifications.sms.account_sid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := LoadConfig(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigEnvFallbacks(t *testing.T) {
	t.Setenv("PORTSENSE_TRACKING_API_KEY", "track-key")
	t.Setenv("PORTSENSE_SMTP_PASSWORD", "smtp-pass")
	t.Setenv("PORTSENSE_TWILIO_TOKEN", "twilio-tok")

	path := writeConfig(t, `
tracking:
  base_url: https://api.example.com/v1
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Tracking.APIKey != "track-key" {
		t.Errorf("tracking key = %q", cfg.Tracking.APIKey)
	}
	if cfg.Notifications.Email.Password != "smtp-pass" {
		t.Errorf("smtp password = %q", cfg.Notifications.Email.Password)
	}
	if cfg.Notifications.SMS.AuthToken != "twilio-tok" {
		t.Errorf("twilio token = %q", cfg.Notifications.SMS.AuthToken)
	}
}

func TestLoadConfigExplicitValueBeatsEnv(t *testing.T) {
	t.Setenv("PORTSENSE_TRACKING_API_KEY", "env-key")

	path := writeConfig(t, `
tracking:
  base_url: https://api.example.com/v1
  api_key: file-key
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Tracking.APIKey != "file-key" {
		t.Errorf("tracking key = %q, want file-key", cfg.Tracking.APIKey)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("expected error for missing file")
	}
}
