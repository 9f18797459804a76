package domain

import "time"

// MaxBrandModelAttempts bounds consecutive brand/model validation
// failures before the tire-search flow is aborted.
const MaxBrandModelAttempts = 3

// ConversationContext is the per-session mutable dialogue state. One
// instance exists per active session; the orchestrator serializes all
// access per session, so the struct itself carries no locking.
type ConversationContext struct {
	SessionID     string     `json:"sessionId"`
	CurrentIntent IntentType `json:"currentIntent,omitempty"`

	// CollectedParameters accumulates extracted slot values across
	// turns; the latest value for a key always wins.
	CollectedParameters map[string]string `json:"collectedParameters"`

	// Denormalized tire-search slots, mirrored from CollectedParameters.
	Brand  string `json:"brand,omitempty"`
	Model  string `json:"model,omitempty"`
	Year   string `json:"year,omitempty"`
	Season string `json:"season,omitempty"`

	BrandModelInvalidAttempts int `json:"brandModelInvalidAttempts"`

	// WhatsApp follow-up flow. At most one flag is true at a time in
	// normal operation.
	AwaitingWhatsAppConsent bool   `json:"awaitingWhatsAppConsent"`
	AwaitingWhatsAppPhone   bool   `json:"awaitingWhatsAppPhone"`
	LastDealerSummary       string `json:"lastDealerSummary,omitempty"`

	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// NewConversationContext creates an empty context for a session.
func NewConversationContext(sessionID string) *ConversationContext {
	now := time.Now()
	return &ConversationContext{
		SessionID:           sessionID,
		CollectedParameters: map[string]string{},
		CreatedAt:           now,
		LastActivity:        now,
	}
}

// Touch refreshes the idle-eviction timestamp.
func (c *ConversationContext) Touch() {
	c.LastActivity = time.Now()
}

// ApplyDetection merges a detection result into the context. Parameters
// overwrite existing keys; tire-search slots are mirrored into their
// dedicated fields. GeneralQuestion never becomes the sticky intent,
// otherwise an unrelated question mid-flow would drop the tire context.
func (c *ConversationContext) ApplyDetection(res *IntentDetectionResult) {
	if res == nil {
		return
	}
	if res.Intent != IntentUnknown && res.Intent != IntentGeneralQuestion {
		c.CurrentIntent = res.Intent
	}
	if c.CollectedParameters == nil {
		c.CollectedParameters = map[string]string{}
	}
	for k, v := range res.Parameters {
		if v == "" {
			continue
		}
		c.CollectedParameters[k] = v
		switch k {
		case "brand":
			c.Brand = v
		case "model":
			c.Model = v
		case "year":
			c.Year = v
		case "season":
			c.Season = v
		}
	}
}

// ResetTireSearch clears every tire-search slot and the attempt
// counter. Called unconditionally after a search is dispatched and when
// the mismatch bound is hit.
func (c *ConversationContext) ResetTireSearch() {
	c.Brand = ""
	c.Model = ""
	c.Year = ""
	c.Season = ""
	c.BrandModelInvalidAttempts = 0
	c.CurrentIntent = ""
	delete(c.CollectedParameters, "brand")
	delete(c.CollectedParameters, "model")
	delete(c.CollectedParameters, "year")
	delete(c.CollectedParameters, "season")
}

// ClearWhatsAppFlow drops both pending flags and the stored summary.
func (c *ConversationContext) ClearWhatsAppFlow() {
	c.AwaitingWhatsAppConsent = false
	c.AwaitingWhatsAppPhone = false
	c.LastDealerSummary = ""
}
