package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

// embeddingServer returns an httptest server that replies with the given
// embedding for every request.
func embeddingServer(t *testing.T, embedding []float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.Model == "" || req.Prompt == "" {
			t.Errorf("request missing model or prompt: %+v", req)
		}
		json.NewEncoder(w).Encode(ollamaResponse{Embedding: embedding})
	}))
}

func TestOllamaEmbedder_Embed(t *testing.T) {
	server := embeddingServer(t, []float64{3, 4, 0})
	defer server.Close()

	e := NewOllamaEmbedder(OllamaConfig{
		BaseURL:   server.URL,
		Model:     "test-model",
		Dimension: 3,
	})

	vec, err := e.Embed(context.Background(), "printer offline")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("got %d components, want 3", len(vec))
	}

	// (3,4,0) has norm 5, so the unit vector is (0.6, 0.8, 0).
	if math.Abs(float64(vec[0])-0.6) > 1e-6 || math.Abs(float64(vec[1])-0.8) > 1e-6 {
		t.Errorf("normalized vector = %v, want (0.6, 0.8, 0)", vec)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(norm)-1.0) > 1e-6 {
		t.Errorf("embedding norm = %g, want 1.0", math.Sqrt(norm))
	}
}

func TestOllamaEmbedder_DimensionMismatch(t *testing.T) {
	server := embeddingServer(t, []float64{1, 2})
	defer server.Close()

	e := NewOllamaEmbedder(OllamaConfig{BaseURL: server.URL, Dimension: 3})

	_, err := e.Embed(context.Background(), "query")
	if err == nil {
		t.Fatal("expected error for wrong dimension")
	}

	var dimErr *DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected DimensionError, got %T: %v", err, err)
	}
	if dimErr.Want != 3 || dimErr.Got != 2 {
		t.Errorf("DimensionError = %+v, want Want=3 Got=2", dimErr)
	}
}

func TestOllamaEmbedder_ZeroVector(t *testing.T) {
	server := embeddingServer(t, []float64{0, 0, 0})
	defer server.Close()

	e := NewOllamaEmbedder(OllamaConfig{BaseURL: server.URL, Dimension: 3})

	if _, err := e.Embed(context.Background(), "query"); err == nil {
		t.Error("expected error for an all-zero embedding")
	}
}

func TestOllamaEmbedder_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	e := NewOllamaEmbedder(OllamaConfig{BaseURL: server.URL, Dimension: 3})

	if _, err := e.Embed(context.Background(), "query"); err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestNewOllamaEmbedder_Defaults(t *testing.T) {
	e := NewOllamaEmbedder(OllamaConfig{})

	if e.ModelName() != DefaultOllamaModel {
		t.Errorf("model = %s, want %s", e.ModelName(), DefaultOllamaModel)
	}
	if e.Dimension() != DefaultOllamaDimension {
		t.Errorf("dimension = %d, want %d", e.Dimension(), DefaultOllamaDimension)
	}
}
