package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// ClientConfig holds settings for the HTTP tracking client.
type ClientConfig struct {
	BaseURL string        // provider API root, e.g. https://api.example.com/v1
	APIKey  string        // bearer token (optional)
	Timeout time.Duration // per-request timeout, default 15s

	// RateLimit bounds outbound calls to the provider. The default of
	// 2.5 req/s with burst 5 matches the provider's documented limit
	// (historically honored by polling in batches of 5 every 2s).
	RateLimit rate.Limit
	Burst     int
}

// Validate validates the client configuration.
func (c *ClientConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	return nil
}

// Client is the HTTP implementation of Provider. A token-bucket
// limiter is shared across all calls so concurrent batch workers
// cannot exceed the provider's rate limit in aggregate.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a rate-limited tracking client.
func NewClient(config ClientConfig) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tracking config: %w", err)
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = rate.Limit(2.5)
	}
	if config.Burst == 0 {
		config.Burst = 5
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(config.RateLimit, config.Burst),
	}, nil
}

// trackResponse mirrors the provider's wire format.
type trackResponse struct {
	ContainerID string `json:"container_id"`
	Status      string `json:"status"`
	Location    struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Port      string  `json:"port"`
		Country   string  `json:"country"`
	} `json:"location"`
	ETA      string `json:"eta"`
	LastPort string `json:"last_port"`
	NextPort string `json:"next_port"`
	Voyage   string `json:"voyage"`
	Vessel   struct {
		Name     string `json:"name"`
		IMO      string `json:"imo"`
		CallSign string `json:"call_sign"`
	} `json:"vessel"`
}

// Track fetches the current snapshot for a container. Blocks on the
// shared rate limiter before issuing the request.
func (c *Client) Track(ctx context.Context, containerID string) (*Snapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	endpoint := fmt.Sprintf("%s/containers/%s", c.config.BaseURL, url.PathEscape(containerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("track %s: %w", containerID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("provider error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var tr trackResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	snapshot := &Snapshot{
		ContainerID: tr.ContainerID,
		Status:      tr.Status,
		Location: Location{
			Latitude:  tr.Location.Latitude,
			Longitude: tr.Location.Longitude,
			Name:      tr.Location.Port,
		},
		LastPort:   tr.LastPort,
		NextPort:   tr.NextPort,
		VesselName: tr.Vessel.Name,
		Voyage:     tr.Voyage,
	}
	if tr.ETA != "" {
		eta, err := time.Parse(time.RFC3339, tr.ETA)
		if err != nil {
			return nil, fmt.Errorf("parse eta %q: %w", tr.ETA, err)
		}
		snapshot.ETA = eta
	}
	return snapshot, nil
}
