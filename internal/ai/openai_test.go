package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/portsense/portsense/internal/models"
)

func testContainer() *models.Container {
	return &models.Container{
		ID:              "c-1",
		ContainerID:     "MSKU1234567",
		Status:          "in transit",
		CurrentLocation: "Port of Singapore",
		DelayHours:      30,
		Issues:          []string{"Significant delay"},
	}
}

func TestGenerateAlertMessage(t *testing.T) {
	var gotReq chatRequest
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{
					"role":    "assistant",
					"content": "  Container MSKU1234567 is running 30 hours late at Singapore.  ",
				}},
			},
		})
	}))
	defer server.Close()

	gen, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewOpenAIGenerator failed: %v", err)
	}

	msg, err := gen.GenerateAlertMessage(context.Background(), testContainer(), models.AlertTypeDelay)
	if err != nil {
		t.Fatalf("GenerateAlertMessage failed: %v", err)
	}

	if msg != "Container MSKU1234567 is running 30 hours late at Singapore." {
		t.Errorf("message = %q, want trimmed completion", msg)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotReq.Model != defaultModel {
		t.Errorf("model = %q, want default", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[1].Role != "user" {
		t.Fatalf("messages = %+v", gotReq.Messages)
	}
	for _, want := range []string{"MSKU1234567", "delay", "Port of Singapore", "30 hours"} {
		if !strings.Contains(gotReq.Messages[1].Content, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestGenerateAlertMessageErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "api error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error": "rate_limited"}`, http.StatusTooManyRequests)
			},
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"choices": []}`))
			},
		},
		{
			name: "blank completion",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"choices": [{"message": {"content": "   "}}]}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			gen, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "k", BaseURL: server.URL})
			if err != nil {
				t.Fatalf("NewOpenAIGenerator failed: %v", err)
			}
			if _, err := gen.GenerateAlertMessage(context.Background(), testContainer(), models.AlertTypeDelay); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestOpenAIConfigValidate(t *testing.T) {
	if _, err := NewOpenAIGenerator(OpenAIConfig{}); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestDisabledGenerator(t *testing.T) {
	_, err := Disabled{}.GenerateAlertMessage(context.Background(), testContainer(), models.AlertTypeDelay)
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("err = %v, want ErrDisabled", err)
	}
}
