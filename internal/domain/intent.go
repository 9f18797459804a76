package domain

import (
	"encoding/json"
	"strings"
)

// IntentType classifies a single user utterance.
type IntentType string

const (
	IntentUnknown                    IntentType = "Unknown"
	IntentDealerSearchByLocation     IntentType = "DealerSearchByLocation"
	IntentDealerSearchByCityDistrict IntentType = "DealerSearchByCityDistrict"
	IntentTireSearch                 IntentType = "TireSearch"
	IntentGeneralQuestion            IntentType = "GeneralQuestion"
)

// ParseIntent maps a model-produced intent name to an IntentType.
// Matching is case-insensitive; anything unrecognized becomes Unknown.
func ParseIntent(s string) IntentType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dealersearchbylocation":
		return IntentDealerSearchByLocation
	case "dealersearchbycitydistrict":
		return IntentDealerSearchByCityDistrict
	case "tiresearch":
		return IntentTireSearch
	case "generalquestion":
		return IntentGeneralQuestion
	default:
		return IntentUnknown
	}
}

// UnmarshalJSON accepts intent names in any casing, since LLM output is
// not reliable about exact enum spelling.
func (t *IntentType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = ParseIntent(raw)
	return nil
}

// IntentDetectionResult is the outcome of one detection call, either from
// the rule cascade or from the generative extractor.
type IntentDetectionResult struct {
	Intent                IntentType        `json:"intent"`
	Parameters            map[string]string `json:"parameters"`
	RequiresClarification bool              `json:"requiresClarification"`
	ClarificationMessage  string            `json:"clarificationMessage"`

	// UserMessage is the original input, retained so downstream handlers
	// can re-run regex extraction against it.
	UserMessage string `json:"-"`
}

// NewDetectionResult returns a result with an allocated parameter map.
func NewDetectionResult(intent IntentType, userMessage string) *IntentDetectionResult {
	return &IntentDetectionResult{
		Intent:      intent,
		Parameters:  map[string]string{},
		UserMessage: userMessage,
	}
}
