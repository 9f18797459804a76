// Package llm is the generative text backend. One client speaks three
// provider dialects (Ollama, OpenAI, Anthropic); the active provider is
// chosen by the bot settings at call time.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bitiz/tirebot-go/internal/domain"
	"github.com/bitiz/tirebot-go/internal/infra/resilience"
	"github.com/bitiz/tirebot-go/internal/settings"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("llm")

const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	openAIBaseURL    = "https://api.openai.com/v1"
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
)

// Client calls the configured generative backend. Concurrent
// generations are bounded by a bulkhead so a slow model cannot pile up
// goroutines.
type Client struct {
	httpClient *http.Client
	settings   *settings.Provider
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	bulkhead   *resilience.Bulkhead
}

// NewClient creates a Client reading provider selection from the
// settings provider on every call.
func NewClient(httpClient *http.Client, sett *settings.Provider, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *Client {
	maxConc := cfg.MaxConcurrency
	if maxConc <= 0 {
		maxConc = 1
	}
	return &Client{
		httpClient: httpClient,
		settings:   sett,
		cb:         cb,
		cfg:        cfg,
		bulkhead:   resilience.NewBulkhead(maxConc),
	}
}

// Generate produces a completion for the given user message.
func (c *Client) Generate(ctx context.Context, userMessage, systemPrompt string, temperature float64, maxTokens int) (string, error) {
	sett := c.settings.Get()

	ctx, span := tracer.Start(ctx, "LLMClient.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", sett.LLMProvider),
		attribute.String("llm.model", sett.ModelName),
	)

	call, err := c.dialect(sett, userMessage, systemPrompt, temperature, maxTokens)
	if err != nil {
		return "", err
	}

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return "", &domain.ErrTimeout{Operation: "llm generate"}
	}
	defer c.bulkhead.Release()

	var answer string
	result, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			var err error
			answer, err = call(ctx)
			return err
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return answer, nil
	})
	if err != nil {
		return "", &domain.ErrExternalService{Service: "llm", Err: err}
	}
	return result.(string), nil
}

// dialect resolves the provider-specific request function, failing fast
// on missing configuration before any network call is attempted.
func (c *Client) dialect(sett settings.Settings, userMessage, systemPrompt string, temperature float64, maxTokens int) (func(context.Context) (string, error), error) {
	switch strings.ToLower(sett.LLMProvider) {
	case ProviderOllama, "":
		if sett.OllamaBaseURL == "" {
			return nil, &domain.ErrNotConfigured{Component: "llm", Missing: "OLLAMA_BASE_URL"}
		}
		return func(ctx context.Context) (string, error) {
			return c.generateOllama(ctx, sett, userMessage, systemPrompt, temperature, maxTokens)
		}, nil
	case ProviderOpenAI:
		if sett.APIKey == "" {
			return nil, &domain.ErrNotConfigured{Component: "llm", Missing: "LLM_API_KEY"}
		}
		return func(ctx context.Context) (string, error) {
			return c.generateOpenAI(ctx, sett, userMessage, systemPrompt, temperature, maxTokens)
		}, nil
	case ProviderAnthropic:
		if sett.APIKey == "" {
			return nil, &domain.ErrNotConfigured{Component: "llm", Missing: "LLM_API_KEY"}
		}
		return func(ctx context.Context) (string, error) {
			return c.generateAnthropic(ctx, sett, userMessage, systemPrompt, temperature, maxTokens)
		}, nil
	default:
		return nil, &domain.ErrValidation{Field: "llm_provider", Message: "unknown provider " + sett.LLMProvider}
	}
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

func (c *Client) generateOllama(ctx context.Context, sett settings.Settings, userMessage, systemPrompt string, temperature float64, maxTokens int) (string, error) {
	body := ollamaGenerateRequest{
		Model:  sett.ModelName,
		Prompt: userMessage,
		System: systemPrompt,
		Stream: false,
		Options: map[string]any{
			"temperature": temperature,
			"num_predict": maxTokens,
		},
	}

	var out ollamaGenerateResponse
	url := strings.TrimRight(sett.OllamaBaseURL, "/") + "/api/generate"
	if err := c.postJSON(ctx, url, nil, body, &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Response), nil
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) generateOpenAI(ctx context.Context, sett settings.Settings, userMessage, systemPrompt string, temperature float64, maxTokens int) (string, error) {
	body := openAIChatRequest{
		Model:       sett.ModelName,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	if systemPrompt != "" {
		body.Messages = append(body.Messages, openAIMessage{Role: "system", Content: systemPrompt})
	}
	body.Messages = append(body.Messages, openAIMessage{Role: "user", Content: userMessage})

	headers := map[string]string{"Authorization": "Bearer " + sett.APIKey}
	var out openAIChatResponse
	if err := c.postJSON(ctx, openAIBaseURL+"/chat/completions", headers, body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (c *Client) generateAnthropic(ctx context.Context, sett settings.Settings, userMessage, systemPrompt string, temperature float64, maxTokens int) (string, error) {
	body := anthropicRequest{
		Model:       sett.ModelName,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		System:      systemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: userMessage}},
	}

	headers := map[string]string{
		"x-api-key":         sett.APIKey,
		"anthropic-version": anthropicVersion,
	}
	var out anthropicResponse
	if err := c.postJSON(ctx, anthropicBaseURL+"/messages", headers, body, &out); err != nil {
		return "", err
	}
	if len(out.Content) == 0 {
		return "", fmt.Errorf("anthropic returned no content")
	}
	return strings.TrimSpace(out.Content[0].Text), nil
}

func (c *Client) postJSON(ctx context.Context, url string, headers map[string]string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("llm backend returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// TestConnection checks reachability of the Ollama backend. Providers
// behind public APIs are assumed reachable and skip the probe.
func (c *Client) TestConnection(ctx context.Context) error {
	sett := c.settings.Get()
	if strings.ToLower(sett.LLMProvider) != ProviderOllama && sett.LLMProvider != "" {
		return nil
	}
	if sett.OllamaBaseURL == "" {
		return &domain.ErrNotConfigured{Component: "llm", Missing: "OLLAMA_BASE_URL"}
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(sett.OllamaBaseURL, "/")+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.ErrExternalService{Service: "llm", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &domain.ErrExternalService{Service: "llm", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return nil
}

// ListModels returns the model names available on the Ollama backend.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	sett := c.settings.Get()
	if sett.OllamaBaseURL == "" {
		return nil, &domain.ErrNotConfigured{Component: "llm", Missing: "OLLAMA_BASE_URL"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(sett.OllamaBaseURL, "/")+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "llm", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.ErrExternalService{Service: "llm", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, &domain.ErrParse{Source: "llm", Err: err}
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
