package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Upstream dealer/tire API
	DealerAPIBaseURL string

	// Generative backend
	LLMProvider   string
	LLMModelName  string
	LLMAPIKey     string
	OllamaBaseURL string
	SystemPrompt  string
	Temperature   float64
	MaxTokens     int

	// Per-domain canned response overrides (JSON file, optional)
	DomainOverridesPath string

	// Conversation state
	ContextStore   string // "memory" or "redis"
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	ContextIdleTTL time.Duration

	// Transcript store (optional)
	PostgresDSN string

	// HTTP client timeouts per concern
	ConnectTimeout  time.Duration
	SearchTimeout   time.Duration
	GenerateTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string
}

const defaultSystemPrompt = "Sen Türkiye pazarında lastik ve bayi konularında yardımcı olan bir müşteri destek asistanısın. " +
	"Kısa, net ve nazik Türkçe yanıtlar ver. Emin olmadığın konularda kullanıcıyı yetkili bir bayiye yönlendir."

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DealerAPIBaseURL: getEnv("DEALER_API_BASE_URL", "http://localhost:8085"),

		LLMProvider:   getEnv("LLM_PROVIDER", "ollama"),
		LLMModelName:  getEnv("LLM_MODEL_NAME", "llama3"),
		LLMAPIKey:     getEnv("LLM_API_KEY", ""),
		OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		SystemPrompt:  getEnv("SYSTEM_PROMPT", defaultSystemPrompt),
		Temperature:   getEnvFloat("LLM_TEMPERATURE", 0.7),
		MaxTokens:     getEnvInt("LLM_MAX_TOKENS", 800),

		DomainOverridesPath: getEnv("DOMAIN_OVERRIDES_PATH", ""),

		ContextStore:   getEnv("CONTEXT_STORE", "memory"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		ContextIdleTTL: getEnvDuration("CONTEXT_IDLE_TTL", 30*time.Minute),

		PostgresDSN: getEnv("POSTGRES_DSN", ""),

		ConnectTimeout:  getEnvDuration("CONNECT_TIMEOUT", 10*time.Second),
		SearchTimeout:   getEnvDuration("SEARCH_TIMEOUT", 30*time.Second),
		GenerateTimeout: getEnvDuration("GENERATE_TIMEOUT", 120*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
