package deepseek

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spigell/hr-copilot/internal/ai"

	"go.uber.org/zap"
)

func TestClientComplete(t *testing.T) {
	var gotAuth string
	var gotBody chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request body: %v", err)
		}

		resp := chatResponse{}
		resp.Choices = append(resp.Choices, struct {
			Message chatMessage `json:"message"`
		}{Message: chatMessage{Role: "assistant", Content: " hello from deepseek "}})

		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encoding response: %v", err)
		}
	}))
	defer server.Close()

	client := New("key-123", "", server.URL, zap.NewNop())

	output, err := client.Complete(context.Background(), "say hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if output != "hello from deepseek" {
		t.Fatalf("unexpected output: %q", output)
	}

	if gotAuth != "Bearer key-123" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}

	if gotBody.Model != defaultModel {
		t.Fatalf("expected default model, got %q", gotBody.Model)
	}

	if len(gotBody.Messages) != 1 || gotBody.Messages[0].Content != "say hello" {
		t.Fatalf("unexpected messages: %+v", gotBody.Messages)
	}
}

func TestClientRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New("key", "", server.URL, zap.NewNop())

	_, err := client.Complete(context.Background(), "prompt")
	if !errors.Is(err, ai.ErrRateLimited) {
		t.Fatalf("expected rate limited error, got %v", err)
	}
}

func TestClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New("key", "", server.URL, zap.NewNop())

	_, err := client.Complete(context.Background(), "prompt")
	if !errors.Is(err, ai.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestClientEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte(`{"choices": []}`)); err != nil {
			t.Errorf("writing response: %v", err)
		}
	}))
	defer server.Close()

	client := New("key", "", server.URL, zap.NewNop())

	_, err := client.Complete(context.Background(), "prompt")
	if !errors.Is(err, ai.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
}
