package service

import (
	"context"
	"strings"

	"github.com/bitiz/tirebot-go/internal/infra/observability"
	"github.com/bitiz/tirebot-go/internal/port"
	"github.com/bitiz/tirebot-go/internal/settings"

	"go.uber.org/zap"
)

// Category is a canned-response class produced by the lexical matcher.
type Category string

const (
	CategoryNone         Category = ""
	CategoryGreeting     Category = "greeting"
	CategoryHowAreYou    Category = "how_are_you"
	CategoryWhoAreYou    Category = "who_are_you"
	CategoryWhatCanYouDo Category = "what_can_you_do"
	CategoryThanks       Category = "thanks"
	CategoryGoodbye      Category = "goodbye"
)

// Canned keyword sets in normalized form. The short English greetings
// are matched by equality only, so "hi" never fires inside a word.
var (
	greetingSubstrings = []string{"merhaba", "selam", "gunaydin", "iyi aksamlar"}
	greetingExact      = []string{"hi", "hello", "hey"}
	howAreYouPhrases   = []string{"nasilsin", "nasilsiniz", "naber", "how are you"}
	whoAreYouPhrases   = []string{"kimsin", "kimsiniz", "who are you", "what are you"}
	whatCanYouDoPhrases = []string{
		"neler yapabilirsin", "ne yapabilirsin", "ne is yaparsin",
		"nasil yardimci olabilirsin", "what can you do",
	}
	thanksSubstrings = []string{
		"tesekkur", "tesekkurler", "sagol", "sag ol", "eyvallah",
		"thanks", "thank you", "tsk",
	}
	goodbyePhrases = []string{
		"gule gule", "hosca kal", "hoscakal", "gorusuruz", "bay bay",
		"bye", "goodbye", "iyi gunler dilerim",
	}
)

// maxClassifyLen bounds the generative classification path; longer
// messages are clearly not a canned pleasantry.
const maxClassifyLen = 120

const classifierPrompt = `Aşağıdaki kullanıcı mesajını şu etiketlerden tam olarak biriyle sınıflandır: greeting, how_are_you, who_are_you, what_can_you_do, thanks, goodbye, none. Sadece etiketi yaz.`

// CannedResponder is the lexical matcher: it decides whether a message
// deserves a fixed reply, consulting the generative backend only for
// short messages that no keyword set covered. Classification results
// for that slow path are memoized.
type CannedResponder struct {
	gen     port.TextGenerator
	cache   port.Cache[string]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewCannedResponder wires the matcher.
func NewCannedResponder(gen port.TextGenerator, cache port.Cache[string], metrics *observability.Metrics, logger *zap.Logger) *CannedResponder {
	return &CannedResponder{gen: gen, cache: cache, metrics: metrics, logger: logger}
}

// Classify maps a message to a canned category, or CategoryNone.
func (c *CannedResponder) Classify(ctx context.Context, message string) Category {
	norm := Normalize(message)
	if norm == "" {
		return CategoryNone
	}

	if cat := classifyDirect(norm); cat != CategoryNone {
		return cat
	}

	if len([]rune(norm)) > maxClassifyLen || c.gen == nil {
		return CategoryNone
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(norm); ok {
			if c.metrics != nil {
				c.metrics.IncrCacheHit("canned")
			}
			return Category(cached)
		}
		if c.metrics != nil {
			c.metrics.IncrCacheMiss("canned")
		}
	}

	if c.metrics != nil {
		c.metrics.IncrLLMCall("classify")
	}
	raw, err := c.gen.Generate(ctx, message, classifierPrompt, 0, 10)
	if err != nil {
		c.logger.Debug("canned classification call failed", zap.Error(err))
		return CategoryNone
	}
	cat := parseLabel(raw)
	if c.cache != nil {
		c.cache.Set(norm, string(cat))
	}
	return cat
}

func classifyDirect(norm string) Category {
	for _, g := range greetingExact {
		if norm == g {
			return CategoryGreeting
		}
	}
	switch {
	case containsAny(norm, greetingSubstrings):
		return CategoryGreeting
	case containsAny(norm, howAreYouPhrases):
		return CategoryHowAreYou
	case containsAny(norm, whoAreYouPhrases):
		return CategoryWhoAreYou
	case containsAny(norm, whatCanYouDoPhrases):
		return CategoryWhatCanYouDo
	case containsAny(norm, thanksSubstrings):
		return CategoryThanks
	case containsAny(norm, goodbyePhrases):
		return CategoryGoodbye
	default:
		return CategoryNone
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// parseLabel takes the first whitespace-delimited token of the model
// output; anything unrecognized maps to none.
func parseLabel(raw string) Category {
	fields := strings.Fields(strings.ToLower(raw))
	if len(fields) == 0 {
		return CategoryNone
	}
	switch Category(strings.Trim(fields[0], `."'`)) {
	case CategoryGreeting:
		return CategoryGreeting
	case CategoryHowAreYou:
		return CategoryHowAreYou
	case CategoryWhoAreYou:
		return CategoryWhoAreYou
	case CategoryWhatCanYouDo:
		return CategoryWhatCanYouDo
	case CategoryThanks:
		return CategoryThanks
	case CategoryGoodbye:
		return CategoryGoodbye
	default:
		return CategoryNone
	}
}

// ResponseFor resolves the reply text for a category.
func ResponseFor(r settings.CannedResponses, cat Category) string {
	switch cat {
	case CategoryGreeting:
		return r.Greeting
	case CategoryHowAreYou:
		return r.HowAreYou
	case CategoryWhoAreYou:
		return r.WhoAreYou
	case CategoryWhatCanYouDo:
		return r.WhatCanYouDo
	case CategoryThanks:
		return r.Thanks
	case CategoryGoodbye:
		return r.Goodbye
	default:
		return ""
	}
}
