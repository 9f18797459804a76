package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bitiz/tirebot-go/internal/domain"
	"github.com/bitiz/tirebot-go/internal/infra/llm"
	"github.com/bitiz/tirebot-go/internal/infra/resilience"
	"github.com/bitiz/tirebot-go/internal/settings"
)

func newClient(sett settings.Settings) *llm.Client {
	cfg := resilience.Config{MaxRetries: 0, InitialBackoff: time.Millisecond}
	cb := resilience.NewCircuitBreaker("llm-test")
	return llm.NewClient(&http.Client{Timeout: 5 * time.Second}, settings.NewProvider(sett), cb, cfg)
}

func TestGenerateOllama(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{"response": "  Merhaba, nasıl yardımcı olabilirim?  "})
	}))
	defer srv.Close()

	c := newClient(settings.Settings{
		LLMProvider:   "ollama",
		ModelName:     "llama3",
		OllamaBaseURL: srv.URL,
	})

	got, err := c.Generate(context.Background(), "merhaba", "asistan", 0.7, 100)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Merhaba, nasıl yardımcı olabilirim?" {
		t.Errorf("Generate = %q", got)
	}
	if gotPath != "/api/generate" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody["model"] != "llama3" || gotBody["system"] != "asistan" {
		t.Errorf("request body = %v", gotBody)
	}
	if gotBody["stream"] != false {
		t.Error("streaming must be disabled")
	}
}

func TestGenerateWrapsUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newClient(settings.Settings{LLMProvider: "ollama", OllamaBaseURL: srv.URL})
	_, err := c.Generate(context.Background(), "merhaba", "", 0, 10)
	if err == nil {
		t.Fatal("expected error")
	}
	var extErr *domain.ErrExternalService
	if !errors.As(err, &extErr) {
		t.Errorf("error type = %T, want ErrExternalService", err)
	}
}

func TestGenerateMissingAPIKey(t *testing.T) {
	c := newClient(settings.Settings{LLMProvider: "openai", ModelName: "gpt-4o-mini"})
	_, err := c.Generate(context.Background(), "merhaba", "", 0, 10)
	var cfgErr *domain.ErrNotConfigured
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want ErrNotConfigured", err)
	}
}

func TestGenerateUnknownProvider(t *testing.T) {
	c := newClient(settings.Settings{LLMProvider: "duyuru"})
	_, err := c.Generate(context.Background(), "merhaba", "", 0, 10)
	var valErr *domain.ErrValidation
	if !errors.As(err, &valErr) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]any{{"name": "llama3"}, {"name": "qwen2"}},
		})
	}))
	defer srv.Close()

	c := newClient(settings.Settings{LLMProvider: "ollama", OllamaBaseURL: srv.URL})
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 || models[0] != "llama3" {
		t.Errorf("models = %v", models)
	}
}

func TestTestConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"models": []any{}})
	}))
	defer srv.Close()

	c := newClient(settings.Settings{LLMProvider: "ollama", OllamaBaseURL: srv.URL})
	if err := c.TestConnection(context.Background()); err != nil {
		t.Errorf("TestConnection: %v", err)
	}

	c = newClient(settings.Settings{LLMProvider: "ollama"})
	if err := c.TestConnection(context.Background()); err == nil {
		t.Error("expected error without a base URL")
	}
}
