package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaClient_Generate(t *testing.T) {
	var got ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(ollamaResponse{Response: "0.8", Done: true})
	}))
	defer server.Close()

	c := NewOllamaClient(WithBaseURL(server.URL), WithModel("test-model"))

	resp, err := c.Generate(context.Background(), "rate this", GenerateOptions{
		Temperature: 0,
		MaxTokens:   10,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp != "0.8" {
		t.Errorf("response = %q, want 0.8", resp)
	}

	if got.Model != "test-model" {
		t.Errorf("model = %s, want test-model", got.Model)
	}
	if got.Stream {
		t.Error("stream = true, want false")
	}

	// Zero temperature must still appear in the request: deterministic scoring
	// depends on it.
	temp, ok := got.Options["temperature"]
	if !ok {
		t.Fatal("temperature missing from options")
	}
	if temp.(float64) != 0 {
		t.Errorf("temperature = %v, want 0", temp)
	}
	if got.Options["num_predict"].(float64) != 10 {
		t.Errorf("num_predict = %v, want 10", got.Options["num_predict"])
	}
}

func TestOllamaClient_GenerateOverridesModel(t *testing.T) {
	var got ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(ollamaResponse{Response: "ok", Done: true})
	}))
	defer server.Close()

	c := NewOllamaClient(WithBaseURL(server.URL), WithModel("default-model"))

	if _, err := c.Generate(context.Background(), "p", GenerateOptions{Model: "other-model"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got.Model != "other-model" {
		t.Errorf("model = %s, want other-model", got.Model)
	}
}

func TestOllamaClient_GenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	c := NewOllamaClient(WithBaseURL(server.URL))
	if _, err := c.Generate(context.Background(), "p", GenerateOptions{}); err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestWithBaseURL_TrimsTrailingSlash(t *testing.T) {
	c := NewOllamaClient(WithBaseURL("http://example.com/"))
	if c.baseURL != "http://example.com" {
		t.Errorf("baseURL = %s", c.baseURL)
	}
}
