// Package settings holds the bot configuration that shapes replies:
// generative backend selection, prompt parameters, and the canned
// response texts, with optional per-domain overrides.
package settings

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// CannedResponses are the six fixed reply texts served by the lexical
// matcher, bypassing the intent pipeline entirely.
type CannedResponses struct {
	Greeting     string `json:"greeting"`
	HowAreYou    string `json:"howAreYou"`
	WhoAreYou    string `json:"whoAreYou"`
	WhatCanYouDo string `json:"whatCanYouDo"`
	Thanks       string `json:"thanks"`
	Goodbye      string `json:"goodbye"`
}

// Settings is the global bot configuration.
type Settings struct {
	LLMProvider   string
	ModelName     string
	APIKey        string
	OllamaBaseURL string
	SystemPrompt  string
	Temperature   float64
	MaxTokens     int
	Responses     CannedResponses
}

// DomainOverride customizes canned responses for one embedding domain.
type DomainOverride struct {
	Domain    string          `json:"domain"`
	Responses CannedResponses `json:"responses"`
}

// DefaultResponses are the stock Turkish reply texts.
func DefaultResponses() CannedResponses {
	return CannedResponses{
		Greeting:     "Merhaba! Size nasıl yardımcı olabilirim? Lastik önerisi veya en yakın bayi konusunda yardımcı olabilirim.",
		HowAreYou:    "İyiyim, teşekkür ederim! Size nasıl yardımcı olabilirim?",
		WhoAreYou:    "Ben lastik ve bayi konularında size yardımcı olan dijital asistanım.",
		WhatCanYouDo: "Aracınıza uygun lastikleri önerebilir ve size en yakın bayileri bulabilirim.",
		Thanks:       "Rica ederim! Başka bir konuda yardımcı olabilir miyim?",
		Goodbye:      "Görüşmek üzere! İyi günler dilerim.",
	}
}

// Resolve returns the first non-empty value: domain override wins over
// the global default.
func Resolve(override, global string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	return global
}

// Merge applies Resolve field by field.
func Merge(override, global CannedResponses) CannedResponses {
	return CannedResponses{
		Greeting:     Resolve(override.Greeting, global.Greeting),
		HowAreYou:    Resolve(override.HowAreYou, global.HowAreYou),
		WhoAreYou:    Resolve(override.WhoAreYou, global.WhoAreYou),
		WhatCanYouDo: Resolve(override.WhatCanYouDo, global.WhatCanYouDo),
		Thanks:       Resolve(override.Thanks, global.Thanks),
		Goodbye:      Resolve(override.Goodbye, global.Goodbye),
	}
}

// Provider serves the current settings and resolves per-domain canned
// responses. Overrides are loaded once at startup from a JSON file.
type Provider struct {
	mu        sync.RWMutex
	global    Settings
	overrides map[string]CannedResponses
}

// NewProvider creates a Provider with the given global settings.
func NewProvider(global Settings) *Provider {
	if global.Responses == (CannedResponses{}) {
		global.Responses = DefaultResponses()
	}
	return &Provider{
		global:    global,
		overrides: map[string]CannedResponses{},
	}
}

// LoadOverrides reads per-domain overrides from a JSON file holding a
// list of DomainOverride objects. A missing file is not an error.
func (p *Provider) LoadOverrides(path string, logger *zap.Logger) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var list []DomainOverride
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, o := range list {
		d := strings.ToLower(strings.TrimSpace(o.Domain))
		if d == "" {
			continue
		}
		p.overrides[d] = o.Responses
	}
	if logger != nil {
		logger.Info("domain overrides loaded", zap.Int("count", len(list)), zap.String("path", path))
	}
	return nil
}

// Get returns the current global settings.
func (p *Provider) Get() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.global
}

// ResponsesFor returns the canned responses for an embedding domain,
// override-first.
func (p *Provider) ResponsesFor(domain string) CannedResponses {
	p.mu.RLock()
	defer p.mu.RUnlock()
	o, ok := p.overrides[strings.ToLower(strings.TrimSpace(domain))]
	if !ok {
		return p.global.Responses
	}
	return Merge(o, p.global.Responses)
}
