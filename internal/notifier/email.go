package notifier

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/portsense/portsense/internal/models"
)

// EmailConfig holds SMTP configuration.
type EmailConfig struct {
	Host     string // SMTP server host
	Port     int    // SMTP server port (465 for implicit TLS, 587 for STARTTLS)
	Username string // SMTP username (optional)
	Password string // SMTP password (optional)
	From     string // From address, e.g. "PortSense <alerts@portsense.io>"
	AppURL   string // Base URL for dashboard links in the message body
}

// Validate validates the email configuration.
func (c *EmailConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("SMTP host is required")
	}
	if c.Port == 0 {
		return fmt.Errorf("SMTP port is required")
	}
	if c.From == "" {
		return fmt.Errorf("from address is required")
	}
	return nil
}

// EmailChannel sends alerts via email to the address in the user's
// preferences.
type EmailChannel struct {
	config EmailConfig
}

// NewEmailChannel creates a new email channel.
func NewEmailChannel(config EmailConfig) (*EmailChannel, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid email config: %w", err)
	}
	return &EmailChannel{config: config}, nil
}

// Name returns "email".
func (e *EmailChannel) Name() string {
	return "email"
}

// Enabled reports true unless the user explicitly disabled email or
// has no address on file. Email is the default channel.
func (e *EmailChannel) Enabled(prefs *models.NotificationPreferences) bool {
	return prefs.EmailAlerts && prefs.Email != ""
}

// Send delivers the alert to the user's email address.
func (e *EmailChannel) Send(ctx context.Context, alert *models.Alert, c *models.Container, prefs *models.NotificationPreferences) error {
	subject := fmt.Sprintf("PortSense Alert: %s", alert.Title)
	htmlBody := e.buildHTMLBody(alert, c)
	plainBody := e.buildPlainBody(alert, c)
	msg := e.buildMIMEMessage(prefs.Email, subject, plainBody, htmlBody)
	return e.sendMail(ctx, prefs.Email, msg)
}

// buildPlainBody renders the plain-text alternative part.
func (e *EmailChannel) buildPlainBody(alert *models.Alert, c *models.Container) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\r\n\r\n%s\r\n\r\n", alert.Title, alert.Message)
	fmt.Fprintf(&b, "Container: %s\r\n", c.ContainerID)
	fmt.Fprintf(&b, "Status: %s\r\n", c.Status)
	fmt.Fprintf(&b, "Location: %s\r\n", orUnknown(c.CurrentLocation))
	if c.Carrier != "" {
		fmt.Fprintf(&b, "Carrier: %s\r\n", c.Carrier)
	}
	if c.DelayHours > 0 {
		fmt.Fprintf(&b, "Delay: %d hours\r\n", c.DelayHours)
	}
	if e.config.AppURL != "" {
		fmt.Fprintf(&b, "\r\nView details: %s/dashboard/containers/%s\r\n", e.config.AppURL, c.ID)
	}
	return b.String()
}

// buildHTMLBody renders the HTML part.
func (e *EmailChannel) buildHTMLBody(alert *models.Alert, c *models.Container) string {
	var b strings.Builder
	b.WriteString(`<div style="max-width:600px;margin:0 auto;font-family:Arial,sans-serif">`)
	fmt.Fprintf(&b, `<h1 style="color:#1e40af">PortSense Alert</h1>`)
	fmt.Fprintf(&b, `<h2>%s</h2>`, htmlEscape(alert.Title))
	fmt.Fprintf(&b, `<p style="background:#fef3c7;padding:12px;border-radius:6px">%s</p>`, htmlEscape(alert.Message))
	b.WriteString(`<table style="width:100%;border-collapse:collapse">`)
	writeRow := func(label, value string) {
		fmt.Fprintf(&b, `<tr><td style="padding:6px 0;color:#6b7280">%s</td><td style="padding:6px 0;font-weight:500">%s</td></tr>`,
			label, htmlEscape(value))
	}
	writeRow("Container ID", c.ContainerID)
	writeRow("Status", c.Status)
	writeRow("Location", orUnknown(c.CurrentLocation))
	if c.Carrier != "" {
		writeRow("Carrier", c.Carrier)
	}
	if c.DelayHours > 0 {
		writeRow("Delay", fmt.Sprintf("%d hours", c.DelayHours))
	}
	b.WriteString(`</table>`)
	if e.config.AppURL != "" {
		fmt.Fprintf(&b, `<p><a href="%s/dashboard/containers/%s">View Container Details</a></p>`,
			e.config.AppURL, c.ID)
	}
	b.WriteString(`</div>`)
	return b.String()
}

// buildMIMEMessage builds a MIME multipart message with HTML and plain text.
func (e *EmailChannel) buildMIMEMessage(to, subject, plainBody, htmlBody string) []byte {
	boundary := fmt.Sprintf("----=_Part_%d", time.Now().UnixNano())

	var msg strings.Builder

	msg.WriteString(fmt.Sprintf("From: %s\r\n", e.config.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary))
	msg.WriteString("\r\n")

	msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(plainBody)
	msg.WriteString("\r\n")

	msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)
	msg.WriteString("\r\n")

	msg.WriteString(fmt.Sprintf("--%s--\r\n", boundary))

	return []byte(msg.String())
}

// sendMail sends the email via SMTP.
func (e *EmailChannel) sendMail(ctx context.Context, to string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)

	tlsConfig := &tls.Config{
		ServerName: e.config.Host,
	}

	var client *smtp.Client
	var err error

	if e.config.Port == 465 {
		// Implicit TLS (SMTPS)
		client, err = e.connectImplicitTLS(addr, tlsConfig)
	} else {
		// STARTTLS (port 587 or 25)
		client, err = e.connectSTARTTLS(ctx, addr, tlsConfig)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	if e.config.Username != "" && e.config.Password != "" {
		auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(extractEmail(e.config.From)); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to add recipient %s: %w", to, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data: %w", err)
	}

	return client.Quit()
}

// connectImplicitTLS connects using implicit TLS (port 465).
func (e *EmailChannel) connectImplicitTLS(addr string, tlsConfig *tls.Config) (*smtp.Client, error) {
	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return nil, err
	}
	return smtp.NewClient(conn, e.config.Host)
}

// connectSTARTTLS connects using STARTTLS (port 587 or 25).
func (e *EmailChannel) connectSTARTTLS(ctx context.Context, addr string, tlsConfig *tls.Config) (*smtp.Client, error) {
	dialer := &net.Dialer{
		Timeout: 30 * time.Second,
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	client, err := smtp.NewClient(conn, e.config.Host)
	if err != nil {
		conn.Close()
		return nil, err
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return nil, fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	return client, nil
}

// extractEmail extracts the email address from a "Name <email>" format.
func extractEmail(addr string) string {
	if start := strings.Index(addr, "<"); start != -1 {
		if end := strings.Index(addr, ">"); end != -1 {
			return addr[start+1 : end]
		}
	}
	return addr
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&#34;",
)

func htmlEscape(s string) string {
	return htmlEscaper.Replace(s)
}
