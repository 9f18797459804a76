package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bitiz/tirebot-go/internal/domain"
	"github.com/bitiz/tirebot-go/internal/infra/observability"
	"github.com/bitiz/tirebot-go/internal/port"

	"go.uber.org/zap"
)

const intentPromptTemplate = `Kullanıcı mesajından niyet ve parametreleri çıkar. Sadece JSON döndür, başka hiçbir şey yazma.

Niyetler: DealerSearchByLocation, DealerSearchByCityDistrict, TireSearch, GeneralQuestion, Unknown
Parametre anahtarları: latitude, longitude, city, district, brand, model, year, season

Örnekler:
Mesaj: "Ankara Çankaya'da bayi var mı"
{"intent":"DealerSearchByCityDistrict","parameters":{"city":"Ankara","district":"Çankaya"},"requiresClarification":false,"clarificationMessage":""}

Mesaj: "2020 Ford Focus için kış lastiği lazım"
{"intent":"TireSearch","parameters":{"brand":"ford","model":"focus","year":"2020","season":"winter"},"requiresClarification":false,"clarificationMessage":""}

Mesaj: "%s"`

// IntentExtractor escalates to the generative backend when the rule
// cascade is inconclusive, and falls back to the rule result whenever
// the model output is unusable. The rule detector stays the source of
// truth for Unknown and GeneralQuestion.
type IntentExtractor struct {
	gen     port.TextGenerator
	rules   *RuleDetector
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewIntentExtractor wires the extractor.
func NewIntentExtractor(gen port.TextGenerator, rules *RuleDetector, metrics *observability.Metrics, logger *zap.Logger) *IntentExtractor {
	return &IntentExtractor{gen: gen, rules: rules, metrics: metrics, logger: logger}
}

// Detect produces the final detection result for one turn.
func (e *IntentExtractor) Detect(ctx context.Context, message string, cctx *domain.ConversationContext, systemPrompt string) *domain.IntentDetectionResult {
	ruleRes := e.rules.Detect(message, cctx)

	// High-confidence rule outcomes are final, unless a tire search is
	// still missing brand or model and the model might fill the gap.
	if ruleRes.Intent == domain.IntentTireSearch {
		if e.tireSlotsComplete(ruleRes, cctx) {
			return ruleRes
		}
	} else if ruleRes.Intent != domain.IntentUnknown && ruleRes.Intent != domain.IntentGeneralQuestion {
		return ruleRes
	}

	// A session already locked into a complete tire-search context has
	// nothing left for the model to extract.
	if cctx != nil && cctx.CurrentIntent == domain.IntentTireSearch &&
		cctx.Brand != "" && cctx.Model != "" {
		return ruleRes
	}

	if e.gen == nil {
		return ruleRes
	}

	llmRes, err := e.extract(ctx, message, systemPrompt)
	if err != nil {
		if e.metrics != nil {
			e.metrics.IncrLLMFallback()
		}
		e.logger.Debug("generative intent extraction failed, using rule result", zap.Error(err))
		return ruleRes
	}

	// The rule detector is the higher-confidence source for these.
	if llmRes.Intent == domain.IntentUnknown || llmRes.Intent == domain.IntentGeneralQuestion {
		return ruleRes
	}

	// Rule-extracted parameters the model missed are kept.
	for k, v := range ruleRes.Parameters {
		if _, ok := llmRes.Parameters[k]; !ok {
			llmRes.Parameters[k] = v
		}
	}
	return llmRes
}

func (e *IntentExtractor) tireSlotsComplete(res *domain.IntentDetectionResult, cctx *domain.ConversationContext) bool {
	brand := res.Parameters["brand"]
	model := res.Parameters["model"]
	if cctx != nil {
		if brand == "" {
			brand = cctx.Brand
		}
		if model == "" {
			model = cctx.Model
		}
	}
	return brand != "" && model != ""
}

// extract calls the backend with the JSON-schema prompt and parses the
// reply permissively: everything between the first '{' and the last '}'.
func (e *IntentExtractor) extract(ctx context.Context, message, systemPrompt string) (*domain.IntentDetectionResult, error) {
	if e.metrics != nil {
		e.metrics.IncrLLMCall("intent")
	}
	prompt := fmt.Sprintf(intentPromptTemplate, message)
	raw, err := e.gen.Generate(ctx, prompt, systemPrompt, 0.3, 500)
	if err != nil {
		return nil, err
	}
	res, err := ParseIntentJSON(raw)
	if err != nil {
		return nil, err
	}
	res.UserMessage = message
	return res, nil
}

// ParseIntentJSON locates the JSON object in raw model output and
// deserializes it. Field names are matched case-insensitively by
// encoding/json; intent names in any casing are accepted.
func ParseIntentJSON(raw string) (*domain.IntentDetectionResult, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, &domain.ErrParse{Source: "intent-extractor", Err: fmt.Errorf("no JSON object in output")}
	}
	var res domain.IntentDetectionResult
	if err := json.Unmarshal([]byte(raw[start:end+1]), &res); err != nil {
		return nil, &domain.ErrParse{Source: "intent-extractor", Err: err}
	}
	if res.Parameters == nil {
		res.Parameters = map[string]string{}
	}
	return &res, nil
}
