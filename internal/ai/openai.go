package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/portsense/portsense/internal/models"
)

// ErrDisabled indicates no text-generation provider is configured.
var ErrDisabled = errors.New("text generation disabled")

const defaultModel = "gpt-4o-mini"

// OpenAIConfig holds settings for the OpenAI-compatible client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string        // default https://api.openai.com/v1
	Model   string        // default gpt-4o-mini
	Timeout time.Duration // per-request timeout, default 10s
}

// Validate validates the configuration.
func (c *OpenAIConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	return nil
}

// OpenAIGenerator generates alert messages via an OpenAI-compatible
// chat completions endpoint.
type OpenAIGenerator struct {
	config     OpenAIConfig
	httpClient *http.Client
}

// NewOpenAIGenerator creates a new generator.
func NewOpenAIGenerator(config OpenAIConfig) (*OpenAIGenerator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid openai config: %w", err)
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	return &OpenAIGenerator{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// GenerateAlertMessage asks the model for a one-sentence alert message.
func (g *OpenAIGenerator) GenerateAlertMessage(ctx context.Context, c *models.Container, alertType models.AlertType) (string, error) {
	reqBody := chatRequest{
		Model: g.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a logistics assistant writing container tracking alerts."},
			{Role: "user", Content: alertPrompt(c, alertType)},
		},
		MaxTokens: 120,
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.config.BaseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.config.APIKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("openai API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("empty completion")
	}

	message := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if message == "" {
		return "", fmt.Errorf("blank completion")
	}
	return message, nil
}

func alertPrompt(c *models.Container, alertType models.AlertType) string {
	location := c.CurrentLocation
	if location == "" {
		location = "Unknown"
	}
	issues := "None"
	if len(c.Issues) > 0 {
		issues = strings.Join(c.Issues, ", ")
	}

	return fmt.Sprintf(`Generate an alert message for container %s:
- Alert Type: %s
- Status: %s
- Location: %s
- Delay: %d hours
- Issues: %s

Create a clear, actionable alert message in 1 sentence.`,
		c.ContainerID, alertType, c.Status, location, c.DelayHours, issues)
}
