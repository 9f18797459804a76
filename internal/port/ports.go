// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/bitiz/tirebot-go/internal/domain"
)

// TextGenerator is the generative text backend (Ollama, OpenAI or
// Anthropic behind one client). Calls block on network I/O; callers
// bound them with ctx.
type TextGenerator interface {
	Generate(ctx context.Context, userMessage, systemPrompt string, temperature float64, maxTokens int) (string, error)
}

// DealerSearcher finds dealers either by coordinates or by place names.
type DealerSearcher interface {
	SearchByLocation(ctx context.Context, lat, lon float64) (*domain.DealerSearchResponse, error)
	SearchByCityDistrict(ctx context.Context, city, district string) (*domain.DealerSearchResponse, error)
}

// TireSearcher finds tires for a vehicle and validates brand/model
// consistency before a search is dispatched.
type TireSearcher interface {
	SearchTires(ctx context.Context, brand, model, year, season string) (*domain.TireSearchResponse, error)
	ValidateBrandModel(ctx context.Context, brand, model string) (*domain.BrandModelValidation, error)
}

// Gazetteer resolves Turkish place names mentioned in free text.
type Gazetteer interface {
	FindCity(text string) string
	FindDistrict(text, city string) string
}

// ContextStore holds per-session conversation state. GetOrCreate
// creates with defaults if absent and refreshes the idle timestamp;
// Clear is synchronous. Callers must serialize access per session.
type ContextStore interface {
	GetOrCreate(ctx context.Context, sessionID string) (*domain.ConversationContext, error)
	Save(ctx context.Context, c *domain.ConversationContext) error
	Clear(ctx context.Context, sessionID string) error
}

// MessageLog is the append-only chat transcript store, independent of
// the context store. Callers log and swallow its failures; a lost
// transcript row never blocks reply delivery.
type MessageLog interface {
	EnsureSession(ctx context.Context, sessionID, origin string) error
	AppendUser(ctx context.Context, sessionID, content string) error
	AppendBot(ctx context.Context, sessionID string, resp *domain.ChatResponse, errText string) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
