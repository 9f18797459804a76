package service

import (
	"context"
	"time"

	"github.com/bitiz/tirebot-go/internal/domain"
	"github.com/bitiz/tirebot-go/internal/infra/observability"
	"github.com/bitiz/tirebot-go/internal/port"
	"github.com/bitiz/tirebot-go/internal/settings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Fixed user-facing texts. API-sourced strings go through the
// formatter; these do not.
const (
	msgInvalidInput = "Mesajınız işlenemedi. Lütfen daha kısa ve geçerli bir mesaj yazın."
	msgApologetic   = "Üzgünüm, şu anda isteğinizi işleyemiyorum. Lütfen daha sonra tekrar deneyin."

	msgConsentPrompt   = "Bayi listesini WhatsApp üzerinden göndermemi ister misiniz? (evet / hayır)"
	msgPhonePrompt     = "Harika! WhatsApp numaranızı paylaşır mısınız?"
	msgPhoneReprompt   = "Geçerli bir telefon numarası bulamadım. Lütfen numaranızı tekrar yazar mısınız?"
	msgPhoneConfirm    = "Teşekkürler! Bayi listesi WhatsApp üzerinden gönderilecek.\n\n"
	msgSummaryFallback = "Bayi listesi hazır."

	msgNoDealers = "Üzgünüm, aradığınız bölgede bayi bulamadım. Farklı bir konum deneyebilirsiniz."

	msgBrandPrompt      = "Hangi marka araç için lastik arıyorsunuz?"
	msgYearPrompt       = "Aracınızın model yılı nedir?"
	msgTooManyAttempts  = "Marka ve model bilgisi birbiriyle uyuşmuyor. Lütfen işlemi baştan başlatıp marka bilgisini tekrar girin."
	msgNoTires          = "Üzgünüm, bu araca uygun lastik bulamadım."
	msgGeneralFallback  = "Üzgünüm, sorunuza şu anda yanıt veremiyorum. Lütfen daha sonra tekrar deneyin."
)

// Affirmative/negative sets for the WhatsApp consent step, normalized.
// "tesekkurler" also lives in the thanks canned set; a bare thank-you
// while consent is pending is treated as consent, as the original
// behavior did. Known ambiguity, kept deliberately.
var (
	consentYesKeywords = []string{
		"evet", "gonder", "tamam", "olur", "isterim", "tabii", "ok", "okey", "tesekkurler",
	}
	consentNoKeywords = []string{
		"hayir", "istemiyorum", "istemem", "gerek yok", "kalsin", "yok",
	}
)

// Orchestrator is the dialogue state machine. One ProcessMessage call
// handles one turn; turns for the same session are serialized.
type Orchestrator struct {
	canned    *CannedResponder
	extractor *IntentExtractor
	gen       port.TextGenerator
	dealers   port.DealerSearcher
	tires     port.TireSearcher
	contexts  port.ContextStore
	log       port.MessageLog
	settings  *settings.Provider
	format    *Formatter
	metrics   *observability.Metrics
	logger    *zap.Logger
	locks     *keyedMutex
}

// NewOrchestrator wires the state machine.
func NewOrchestrator(
	canned *CannedResponder,
	extractor *IntentExtractor,
	gen port.TextGenerator,
	dealers port.DealerSearcher,
	tires port.TireSearcher,
	contexts port.ContextStore,
	log port.MessageLog,
	sett *settings.Provider,
	format *Formatter,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		canned:    canned,
		extractor: extractor,
		gen:       gen,
		dealers:   dealers,
		tires:     tires,
		contexts:  contexts,
		log:       log,
		settings:  sett,
		format:    format,
		metrics:   metrics,
		logger:    logger,
		locks:     newKeyedMutex(),
	}
}

// ProcessMessage handles one conversation turn. It never returns an
// error: every failure path degrades into a well-formed reply.
func (o *Orchestrator) ProcessMessage(ctx context.Context, req *domain.ChatRequest, origin string) (resp *domain.ChatResponse) {
	start := time.Now()
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("panic during turn", zap.Any("panic", r), zap.String("session_id", sessionID))
			resp = o.reply(sessionID, msgApologetic)
			o.logBot(ctx, sessionID, resp, "panic")
		}
		o.metrics.RecordTurnDuration(time.Since(start))
	}()

	message := SanitizeMessage(req.Message)
	if !ValidateMessage(message) {
		return o.reply(sessionID, msgInvalidInput)
	}

	o.locks.Lock(sessionID)
	defer o.locks.Unlock(sessionID)

	// Transcript rows are best effort: a logging failure never blocks
	// the reply.
	if err := o.log.EnsureSession(ctx, sessionID, origin); err != nil {
		o.logger.Warn("ensure session failed", zap.Error(err), zap.String("session_id", sessionID))
	}
	if err := o.log.AppendUser(ctx, sessionID, message); err != nil {
		o.logger.Warn("append user message failed", zap.Error(err))
	}

	resp = o.processTurn(ctx, sessionID, message, origin)
	o.logBot(ctx, sessionID, resp, "")
	return resp
}

func (o *Orchestrator) processTurn(ctx context.Context, sessionID, message, origin string) *domain.ChatResponse {
	// Canned short-circuit: fixed reply, context cleared, done.
	if cat := o.canned.Classify(ctx, message); cat != CategoryNone {
		o.metrics.IncrCannedHit(string(cat))
		o.metrics.IncrTurn("canned")
		if err := o.contexts.Clear(ctx, sessionID); err != nil {
			o.logger.Warn("context clear failed", zap.Error(err), zap.String("session_id", sessionID))
		}
		text := ResponseFor(o.settings.ResponsesFor(origin), cat)
		return o.reply(sessionID, text)
	}

	cctx, err := o.contexts.GetOrCreate(ctx, sessionID)
	if err != nil {
		o.logger.Error("context load failed", zap.Error(err), zap.String("session_id", sessionID))
		cctx = domain.NewConversationContext(sessionID)
	}

	// Pending WhatsApp flow checks run before intent detection.
	if cctx.AwaitingWhatsAppPhone {
		return o.handlePhoneStep(ctx, cctx, message)
	}
	if cctx.AwaitingWhatsAppConsent {
		if resp, handled := o.handleConsentStep(ctx, cctx, message); handled {
			return resp
		}
		// Negative or unrecognized reply falls through: the message is
		// re-evaluated as a fresh utterance.
	}

	sett := o.settings.Get()
	res := o.extractor.Detect(ctx, message, cctx, sett.SystemPrompt)
	cctx.ApplyDetection(res)
	o.metrics.IncrTurn(string(res.Intent))

	if res.RequiresClarification && res.ClarificationMessage != "" {
		o.saveContext(ctx, cctx)
		return o.reply(sessionID, res.ClarificationMessage)
	}

	switch res.Intent {
	case domain.IntentDealerSearchByLocation:
		return o.handleDealerByLocation(ctx, cctx, res)
	case domain.IntentDealerSearchByCityDistrict:
		return o.handleDealerByCityDistrict(ctx, cctx, res)
	case domain.IntentTireSearch:
		return o.handleTireSearch(ctx, cctx, sett)
	case domain.IntentGeneralQuestion:
		return o.handleGeneralQuestion(ctx, cctx, message, sett)
	default:
		// Unknown: a sticky tire-search context keeps slot filling
		// alive; anything else goes to the generative backend.
		if cctx.CurrentIntent == domain.IntentTireSearch {
			return o.handleTireSearch(ctx, cctx, sett)
		}
		return o.handleGeneralQuestion(ctx, cctx, message, sett)
	}
}

// handleConsentStep resolves the awaiting-consent flag. The second
// return value is false when the turn should continue as a fresh
// utterance.
func (o *Orchestrator) handleConsentStep(ctx context.Context, cctx *domain.ConversationContext, message string) (*domain.ChatResponse, bool) {
	norm := Normalize(message)
	// Negatives take precedence: "hayır ama tamam olur" stays negative.
	if ContainsKeyword(norm, consentNoKeywords) {
		cctx.ClearWhatsAppFlow()
		o.saveContext(ctx, cctx)
		return nil, false
	}
	if ContainsKeyword(norm, consentYesKeywords) {
		cctx.AwaitingWhatsAppConsent = false
		cctx.AwaitingWhatsAppPhone = true
		o.saveContext(ctx, cctx)
		return o.reply(cctx.SessionID, msgPhonePrompt), true
	}
	return nil, false
}

// handlePhoneStep validates the phone number and delivers the stored
// dealer summary. Terminal for the turn either way.
func (o *Orchestrator) handlePhoneStep(ctx context.Context, cctx *domain.ConversationContext, message string) *domain.ChatResponse {
	digits := ExtractDigits(message)
	if len(digits) < 10 || len(digits) > 13 {
		o.saveContext(ctx, cctx)
		return o.reply(cctx.SessionID, msgPhoneReprompt)
	}

	summary := cctx.LastDealerSummary
	if summary == "" {
		summary = msgSummaryFallback
	}
	cctx.ClearWhatsAppFlow()
	o.saveContext(ctx, cctx)
	return o.reply(cctx.SessionID, msgPhoneConfirm+summary)
}

func (o *Orchestrator) handleGeneralQuestion(ctx context.Context, cctx *domain.ConversationContext, message string, sett settings.Settings) *domain.ChatResponse {
	o.saveContext(ctx, cctx)
	o.metrics.IncrLLMCall("general")
	answer, err := o.gen.Generate(ctx, message, sett.SystemPrompt, sett.Temperature, sett.MaxTokens)
	if err != nil {
		o.metrics.IncrExternalError("llm")
		o.logger.Warn("general question generation failed", zap.Error(err))
		return o.reply(cctx.SessionID, msgGeneralFallback)
	}
	return o.reply(cctx.SessionID, answer)
}

func (o *Orchestrator) reply(sessionID, message string) *domain.ChatResponse {
	return &domain.ChatResponse{SessionID: sessionID, Message: message}
}

func (o *Orchestrator) saveContext(ctx context.Context, cctx *domain.ConversationContext) {
	cctx.Touch()
	if err := o.contexts.Save(ctx, cctx); err != nil {
		o.logger.Warn("context save failed", zap.Error(err), zap.String("session_id", cctx.SessionID))
	}
}

func (o *Orchestrator) logBot(ctx context.Context, sessionID string, resp *domain.ChatResponse, errText string) {
	if err := o.log.AppendBot(ctx, sessionID, resp, errText); err != nil {
		o.logger.Warn("append bot message failed", zap.Error(err))
	}
}
