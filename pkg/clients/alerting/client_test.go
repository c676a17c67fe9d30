package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mamadbah2/lttp/internal/config"
)

func TestWebhookClient_Send(t *testing.T) {
	var got Message
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(config.AlertingConfig{WebhookURL: server.URL, Token: "secret"})
	err := client.Send(context.Background(), Message{Level: LevelWarning, Title: "Sắp hết hạn", Text: "2 mặt hàng", Lines: []string{"Trứng gà"}})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if auth != "Bearer secret" {
		t.Errorf("authorization header: %q", auth)
	}
	if got.Source != "lttp" || got.Title != "Sắp hết hạn" || len(got.Lines) != 1 {
		t.Errorf("payload: %+v", got)
	}
}

func TestWebhookClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"message":"channel unavailable"}`))
	}))
	defer server.Close()

	client := NewClient(config.AlertingConfig{WebhookURL: server.URL})
	err := client.Send(context.Background(), Message{Title: "x"})
	if err == nil || !strings.Contains(err.Error(), "channel unavailable") || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected webhook error carrying status and message, got %v", err)
	}
}
