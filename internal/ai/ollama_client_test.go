package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestOllamaGenerateSuccess(t *testing.T) {
	var got ollamaChatRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":             "llama3",
			"message":           map[string]any{"role": "assistant", "content": "hello from ollama"},
			"done":              true,
			"prompt_eval_count": 12,
			"eval_count":        5,
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, NoRetry)
	resp, err := c.Generate(context.Background(), GenerateRequest{Model: "llama3", Messages: []Message{{Role: RoleUser, Content: "hi"}}, MaxTokens: 16})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Content() != "hello from ollama" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Usage.TotalTokens != 17 || resp.RequestID == "" {
		t.Fatalf("usage/request id not mapped: %+v", resp)
	}
	if got.Stream || got.Options["num_predict"] != float64(16) {
		t.Fatalf("unexpected request: %+v", got)
	}
}

func TestOllamaModelNotFound(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "model 'nope' not found"})
	}))
	defer srv.Close()
	c := NewOllamaClient(srv.URL, 2*time.Second, NoRetry)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "nope", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	var mnf *ModelNotFoundError
	if !errors.As(err, &mnf) {
		t.Fatalf("expected ModelNotFoundError, got %v", err)
	}
	if mnf.Message != "model 'nope' not found" {
		t.Fatalf("message not decoded: %q", mnf.Message)
	}
}

func TestOllamaValidation(t *testing.T) {
	c := NewOllamaClient("", 0, RetryPolicy{})
	if c.host != DefaultOllamaHost {
		t.Fatalf("default host: %s", c.host)
	}
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "llama3"})
	if err == nil || err.Error() != "messages cannot be empty" {
		t.Fatalf("expected 'messages cannot be empty', got: %v", err)
	}
	_, err = c.Generate(context.Background(), GenerateRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err == nil || err.Error() != "model cannot be empty" {
		t.Fatalf("expected 'model cannot be empty', got: %v", err)
	}
}

func TestOllamaUnreachable(t *testing.T) {
	c := NewOllamaClient("http://127.0.0.1:1", time.Second, NoRetry)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "llama3", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	var ue *UnreachableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnreachableError, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	rt, err := NewRuntime("", RuntimeConfig{APIKey: "k"})
	if err != nil {
		t.Fatalf("default provider: %v", err)
	}
	if _, ok := rt.(*Client); !ok {
		t.Fatalf("default provider should be the OpenAI client, got %T", rt)
	}
	rt, err = NewRuntime("Ollama", RuntimeConfig{Host: "http://example:11434"})
	if err != nil {
		t.Fatalf("ollama: %v", err)
	}
	if oc, ok := rt.(*OllamaClient); !ok || oc.host != "http://example:11434" {
		t.Fatalf("unexpected runtime %#v", rt)
	}
	if _, err := NewRuntime("nope", RuntimeConfig{}); err == nil {
		t.Fatal("expected unknown provider error")
	}
}

func TestLookupModel(t *testing.T) {
	mi, ok := LookupModel("gpt-4-0613")
	if !ok || mi.Name != "gpt-4" {
		t.Fatalf("snapshot lookup: %+v %v", mi, ok)
	}
	mi, ok = LookupModel("gpt-4o-2024-08-06")
	if !ok || mi.Name != "gpt-4o" {
		t.Fatalf("gpt-4o snapshot lookup: %+v %v", mi, ok)
	}
	cost, ok := EstimateCostUSD("gpt-4", 1000, 1000)
	if !ok || cost < 0.0899 || cost > 0.0901 {
		t.Fatalf("cost: %v %v", cost, ok)
	}
	if _, ok := EstimateCostUSD("mystery", 1, 1); ok {
		t.Fatal("unknown model should not price")
	}
}
