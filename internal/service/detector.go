package service

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/bitiz/tirebot-go/internal/domain"
	"github.com/bitiz/tirebot-go/internal/infra/refdata"
	"github.com/bitiz/tirebot-go/internal/port"

	"go.uber.org/zap"
)

// Keyword sets for the rule cascade, written in normalized (folded)
// form because matching runs over Normalize()'d text.
var (
	locationKeywords = []string{
		"yakin", "yakinimda", "yakinlarda", "konum", "nerede", "nerde",
		"civar", "bolge", "semt", "mahalle", "buralarda",
	}
	dealerKeywords = []string{
		"bayi", "bayii", "servis", "satici", "magaza", "sube", "lastikci",
	}
	purchaseKeywords = []string{
		"satin al", "almak istiyorum", "nereden alabilirim", "nereden alirim",
		"siparis", "fiyat", "satin", "satis", "alabilir miyim",
	}
	actionKeywords = []string{
		"git", "gitmek", "ulas", "yol tarifi", "adres", "telefon",
	}
	tireKeywords = []string{
		"lastik", "lastigi", "lastikleri", "tire", "jant",
	}
	existenceKeywords = []string{
		"var mi", "varmi", "bulunur", "bulabilir",
	}
)

var (
	latitudeRe  = regexp.MustCompile(`(?i)(?:latitude|lat|enlem)[\s:=]*([+-]?\d+(?:\.\d+)?)`)
	longitudeRe = regexp.MustCompile(`(?i)(?:longitude|long|lng|boylam)[\s:=]*([+-]?\d+(?:\.\d+)?)`)
	barePairRe  = regexp.MustCompile(`([+-]?\d+(?:\.\d+)?)(?:\s*,\s*|\s+)([+-]?\d+(?:\.\d+)?)`)
	yearRe      = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
)

// LocationClarification asks the user for location permission. Used
// whenever a nearby-dealer request arrives without coordinates.
const LocationClarification = "Size en yakın bayiyi bulabilmem için konumunuza ihtiyacım var. Konum bilginizi paylaşabilir misiniz?"

// RuleDetector is the deterministic intent classifier. It never fails:
// every branch returns a populated result and the final fallback is
// GeneralQuestion.
type RuleDetector struct {
	gaz      port.Gazetteer
	vehicles *refdata.Catalog
	logger   *zap.Logger
}

// NewRuleDetector creates a detector over the given gazetteer and
// vehicle catalog.
func NewRuleDetector(gaz port.Gazetteer, vehicles *refdata.Catalog, logger *zap.Logger) *RuleDetector {
	return &RuleDetector{gaz: gaz, vehicles: vehicles, logger: logger}
}

// Detect runs the ordered rule cascade; first match wins.
func (d *RuleDetector) Detect(message string, cctx *domain.ConversationContext) *domain.IntentDetectionResult {
	norm := Normalize(message)

	// 1. Labeled coordinates ("Latitude 41.0082, Longitude 28.9784").
	if res := d.detectLabeledCoordinates(message); res != nil {
		return res
	}

	// 2. Bare in-range numeric pair. Known to misfire on unrelated
	// numeric pairs that happen to fall in geographic bounds.
	if res := d.detectBareCoordinates(message); res != nil {
		return res
	}

	hasLocation := ContainsFuzzy(norm, locationKeywords)
	hasDealer := ContainsFuzzy(norm, dealerKeywords)
	hasPurchase := ContainsFuzzy(norm, purchaseKeywords)
	hasAction := ContainsFuzzy(norm, actionKeywords)

	// 3. Mid tire-search flow, the user pivots to "where do I buy it".
	if cctx != nil && cctx.CurrentIntent == domain.IntentTireSearch &&
		(hasPurchase || hasLocation || hasDealer) {
		if city := d.gaz.FindCity(message); city != "" {
			return d.cityDistrictResult(message, city)
		}
		return d.locationClarificationResult(message)
	}

	// 4. "en yakın" with a dealer or purchase cue.
	if strings.Contains(norm, "en yakin") && (hasDealer || hasPurchase) {
		return d.locationClarificationResult(message)
	}

	// 5. Purchase intent with a location cue.
	if hasPurchase && hasLocation {
		if city := d.gaz.FindCity(message); city != "" {
			return d.cityDistrictResult(message, city)
		}
		return d.locationClarificationResult(message)
	}

	// 6. Location cue with a dealer or action cue.
	if hasLocation && (hasDealer || hasAction) {
		return d.locationClarificationResult(message)
	}

	// 7. A city name plus any dealer-ish cue or existence phrasing
	// ("İstanbul'da bayi var mı").
	if city := d.gaz.FindCity(message); city != "" {
		if hasDealer || hasPurchase || hasAction || ContainsFuzzy(norm, existenceKeywords) {
			return d.cityDistrictResult(message, city)
		}
	}

	// 8. Tire search: tire cue, known brand/model, a 4-digit year, or a
	// sticky tire-search context.
	brand := d.vehicles.MatchBrand(norm)
	model := d.vehicles.MatchModel(norm)
	hasTire := ContainsFuzzy(norm, tireKeywords) || NormalizeSeasonWord(norm) != ""
	hasYear := yearRe.MatchString(norm)
	inTireFlow := cctx != nil && cctx.CurrentIntent == domain.IntentTireSearch
	if hasTire || brand != "" || model != "" || hasYear || inTireFlow {
		return d.tireResult(message, norm, brand, model)
	}

	// 9. Everything else goes to the generative backend.
	return domain.NewDetectionResult(domain.IntentGeneralQuestion, message)
}

func (d *RuleDetector) detectLabeledCoordinates(message string) *domain.IntentDetectionResult {
	latM := latitudeRe.FindStringSubmatch(message)
	lonM := longitudeRe.FindStringSubmatch(message)
	if latM == nil || lonM == nil {
		return nil
	}
	res := domain.NewDetectionResult(domain.IntentDealerSearchByLocation, message)
	res.Parameters["latitude"] = latM[1]
	res.Parameters["longitude"] = lonM[1]
	return res
}

func (d *RuleDetector) detectBareCoordinates(message string) *domain.IntentDetectionResult {
	m := barePairRe.FindStringSubmatch(message)
	if m == nil {
		return nil
	}
	lat, err1 := strconv.ParseFloat(m[1], 64)
	lon, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil
	}
	res := domain.NewDetectionResult(domain.IntentDealerSearchByLocation, message)
	res.Parameters["latitude"] = m[1]
	res.Parameters["longitude"] = m[2]
	return res
}

func (d *RuleDetector) locationClarificationResult(message string) *domain.IntentDetectionResult {
	res := domain.NewDetectionResult(domain.IntentDealerSearchByLocation, message)
	res.RequiresClarification = true
	res.ClarificationMessage = LocationClarification
	return res
}

func (d *RuleDetector) cityDistrictResult(message, city string) *domain.IntentDetectionResult {
	res := domain.NewDetectionResult(domain.IntentDealerSearchByCityDistrict, message)
	res.Parameters["city"] = city
	if district := d.gaz.FindDistrict(message, city); district != "" {
		res.Parameters["district"] = district
	}
	return res
}

func (d *RuleDetector) tireResult(message, norm, brand, model string) *domain.IntentDetectionResult {
	res := domain.NewDetectionResult(domain.IntentTireSearch, message)
	if brand != "" {
		res.Parameters["brand"] = brand
	}
	if model != "" {
		res.Parameters["model"] = model
	}
	if year := yearRe.FindString(norm); year != "" {
		res.Parameters["year"] = year
	}
	if season := NormalizeSeasonWord(norm); season != "" {
		res.Parameters["season"] = season
	}
	return res
}

// NormalizeSeasonWord maps season mentions in normalized text to the
// upstream API vocabulary. Empty when nothing season-like is present.
func NormalizeSeasonWord(norm string) string {
	switch {
	case strings.Contains(norm, "yaz") || strings.Contains(norm, "summer"):
		return "summer"
	case strings.Contains(norm, "kis") || strings.Contains(norm, "winter"):
		return "winter"
	case strings.Contains(norm, "dort mevsim") || strings.Contains(norm, "4 mevsim") ||
		strings.Contains(norm, "all season"):
		return "all season"
	default:
		return ""
	}
}
