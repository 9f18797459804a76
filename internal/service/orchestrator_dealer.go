package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bitiz/tirebot-go/internal/domain"

	"go.uber.org/zap"
)

// maxDealersInSummary bounds the formatted dealer list.
const maxDealersInSummary = 5

func (o *Orchestrator) handleDealerByLocation(ctx context.Context, cctx *domain.ConversationContext, res *domain.IntentDetectionResult) *domain.ChatResponse {
	// Dispatching a search ends the sticky intent.
	cctx.CurrentIntent = ""

	lat, lon, ok := coordinatesFrom(res)
	if !ok {
		o.saveContext(ctx, cctx)
		return o.reply(cctx.SessionID, LocationClarification)
	}

	result, err := o.dealers.SearchByLocation(ctx, lat, lon)
	if err != nil {
		o.metrics.IncrExternalError("dealer-search")
		o.logger.Warn("dealer search by location failed", zap.Error(err), zap.Float64("lat", lat), zap.Float64("lon", lon))
		o.saveContext(ctx, cctx)
		return o.reply(cctx.SessionID, msgNoDealers)
	}
	return o.finishDealerSearch(ctx, cctx, result)
}

func (o *Orchestrator) handleDealerByCityDistrict(ctx context.Context, cctx *domain.ConversationContext, res *domain.IntentDetectionResult) *domain.ChatResponse {
	cctx.CurrentIntent = ""

	city := res.Parameters["city"]
	if city == "" {
		city = cctx.CollectedParameters["city"]
	}
	district := res.Parameters["district"]
	if district == "" {
		district = cctx.CollectedParameters["district"]
	}
	if city == "" {
		o.saveContext(ctx, cctx)
		return o.reply(cctx.SessionID, LocationClarification)
	}
	city = CapitalizeFirst(city)
	if district != "" {
		district = CapitalizeFirst(district)
	}

	result, err := o.dealers.SearchByCityDistrict(ctx, city, district)
	if err != nil {
		o.metrics.IncrExternalError("dealer-search")
		o.logger.Warn("dealer search by city failed", zap.Error(err), zap.String("city", city), zap.String("district", district))
		o.saveContext(ctx, cctx)
		return o.reply(cctx.SessionID, msgNoDealers)
	}
	return o.finishDealerSearch(ctx, cctx, result)
}

// finishDealerSearch formats results, arms the WhatsApp consent flow,
// and persists the summary for the phone-collection step.
func (o *Orchestrator) finishDealerSearch(ctx context.Context, cctx *domain.ConversationContext, result *domain.DealerSearchResponse) *domain.ChatResponse {
	if !result.Success || len(result.Dealers) == 0 {
		msg := msgNoDealers
		if strings.TrimSpace(result.Message) != "" {
			msg = o.format.Message(result.Message)
		}
		o.saveContext(ctx, cctx)
		return o.reply(cctx.SessionID, msg)
	}

	summary := buildDealerSummary(result.Dealers)
	cctx.AwaitingWhatsAppConsent = true
	cctx.AwaitingWhatsAppPhone = false
	cctx.LastDealerSummary = summary
	o.saveContext(ctx, cctx)

	var b strings.Builder
	fmt.Fprintf(&b, "%d bayi buldum:\n\n%s\n%s", len(result.Dealers), summary, msgConsentPrompt)

	resp := o.reply(cctx.SessionID, b.String())
	resp.Dealers = result.Dealers
	return resp
}

// buildDealerSummary renders up to five dealers as "name (x.xx km)".
func buildDealerSummary(dealers []domain.Dealer) string {
	var b strings.Builder
	for i := range dealers {
		if i == maxDealersInSummary {
			break
		}
		d := &dealers[i]
		b.WriteString(fmt.Sprintf("%d. %s", i+1, d.FullName()))
		if km, ok := d.DistanceKm(); ok {
			b.WriteString(fmt.Sprintf(" (%.2f km)", km))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// coordinatesFrom reads coordinates from the detection parameters,
// falling back to a fresh regex pass over the original message.
func coordinatesFrom(res *domain.IntentDetectionResult) (lat, lon float64, ok bool) {
	latStr := res.Parameters["latitude"]
	lonStr := res.Parameters["longitude"]

	if latStr == "" || lonStr == "" {
		if m := latitudeRe.FindStringSubmatch(res.UserMessage); m != nil {
			latStr = m[1]
		}
		if m := longitudeRe.FindStringSubmatch(res.UserMessage); m != nil {
			lonStr = m[1]
		}
	}
	if latStr == "" || lonStr == "" {
		if m := barePairRe.FindStringSubmatch(res.UserMessage); m != nil {
			latStr, lonStr = m[1], m[2]
		}
	}
	if latStr == "" || lonStr == "" {
		return 0, 0, false
	}

	lat, err1 := strconv.ParseFloat(latStr, 64)
	lon, err2 := strconv.ParseFloat(lonStr, 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}
