package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bitiz/tirebot-go/internal/domain"
	"github.com/bitiz/tirebot-go/internal/settings"

	"go.uber.org/zap"
)

// maxTiresInReply bounds the formatted tire list.
const maxTiresInReply = 5

// handleTireSearch advances the slot-filling flow by one step. Each
// call either asks for the next missing slot or dispatches the search.
func (o *Orchestrator) handleTireSearch(ctx context.Context, cctx *domain.ConversationContext, sett settings.Settings) *domain.ChatResponse {
	cctx.CurrentIntent = domain.IntentTireSearch

	if cctx.Brand == "" {
		o.saveContext(ctx, cctx)
		return o.reply(cctx.SessionID, msgBrandPrompt)
	}
	if cctx.Model == "" {
		o.saveContext(ctx, cctx)
		return o.reply(cctx.SessionID, fmt.Sprintf("%s aracınızın modeli nedir?", o.format.Brand(cctx.Brand)))
	}

	// Both slots present: check consistency before asking for the year.
	validation, err := o.tires.ValidateBrandModel(ctx, cctx.Brand, cctx.Model)
	if err != nil {
		// Validation is advisory. On backend failure the search proceeds
		// with the slots as given.
		o.metrics.IncrExternalError("tire-validate")
		o.logger.Warn("brand/model validation failed", zap.Error(err),
			zap.String("brand", cctx.Brand), zap.String("model", cctx.Model))
	} else if validation.IsMismatch {
		return o.handleBrandModelMismatch(ctx, cctx, validation)
	} else {
		cctx.BrandModelInvalidAttempts = 0
	}

	if cctx.Year == "" {
		o.saveContext(ctx, cctx)
		return o.reply(cctx.SessionID, msgYearPrompt)
	}

	season := cctx.Season
	if season == "" {
		season = "all season"
	}

	brand, model, year := cctx.Brand, cctx.Model, cctx.Year
	result, err := o.tires.SearchTires(ctx, brand, model, year, season)

	// The flow is one-shot: slots are cleared no matter how the search
	// ends, so the next tire question starts fresh.
	cctx.ResetTireSearch()
	o.saveContext(ctx, cctx)

	if err != nil {
		o.metrics.IncrExternalError("tire-search")
		o.logger.Warn("tire search failed", zap.Error(err),
			zap.String("brand", brand), zap.String("model", model), zap.String("year", year))
		return o.reply(cctx.SessionID, msgNoTires)
	}
	if !result.Success || len(result.Tires) == 0 {
		msg := fmt.Sprintf("%s %s %s için uygun lastik bulamadım. Farklı bir araç deneyebilirsiniz.",
			o.format.Brand(brand), o.format.Model(model), year)
		if strings.TrimSpace(result.Message) != "" {
			msg = o.format.Message(result.Message)
		}
		return o.reply(cctx.SessionID, msg)
	}

	resp := o.reply(cctx.SessionID, buildTireSummary(o.format, brand, model, year, result.Tires))
	resp.Tires = result.Tires
	return resp
}

// handleBrandModelMismatch counts the failure, drops the model slot and
// either re-prompts or aborts the flow at the attempt bound.
func (o *Orchestrator) handleBrandModelMismatch(ctx context.Context, cctx *domain.ConversationContext, validation *domain.BrandModelValidation) *domain.ChatResponse {
	cctx.BrandModelInvalidAttempts++
	cctx.Model = ""
	delete(cctx.CollectedParameters, "model")

	if cctx.BrandModelInvalidAttempts >= domain.MaxBrandModelAttempts {
		cctx.ResetTireSearch()
		o.saveContext(ctx, cctx)
		return o.reply(cctx.SessionID, msgTooManyAttempts)
	}

	o.saveContext(ctx, cctx)
	msg := validation.Message
	if strings.TrimSpace(msg) == "" {
		msg = fmt.Sprintf("Bu model %s markasına ait görünmüyor. Modeli tekrar yazar mısınız?", o.format.Brand(cctx.Brand))
	} else {
		msg = o.format.Message(msg)
	}
	return o.reply(cctx.SessionID, msg)
}

// buildTireSummary renders up to five tires with sizes and links.
func buildTireSummary(f *Formatter, brand, model, year string, tires []domain.Tire) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s için şu lastikleri öneriyorum:\n\n", f.Brand(brand), f.Model(model), year)
	for i := range tires {
		if i == maxTiresInReply {
			break
		}
		t := &tires[i]
		fmt.Fprintf(&b, "%d. %s", i+1, t.Name())
		if s := strings.TrimSpace(t.AvailableSizes); s != "" {
			fmt.Fprintf(&b, " (ebatlar: %s)", s)
		}
		b.WriteString("\n")
		if urls := t.ProductURLs(); len(urls) > 0 {
			fmt.Fprintf(&b, "   %s\n", urls[0])
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
