package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bitiz/tirebot-go/internal/domain"
	"github.com/bitiz/tirebot-go/internal/service"

	"go.uber.org/zap"
)

func newExtractor(t *testing.T, gen *fakeGenerator) *service.IntentExtractor {
	t.Helper()
	return service.NewIntentExtractor(gen, newDetector(t), nil, zap.NewNop())
}

func TestParseIntentJSONWithSurroundingText(t *testing.T) {
	raw := "Elbette, işte sonuç:\n```json\n{\"intent\":\"tiresearch\",\"parameters\":{\"brand\":\"toyota\"},\"requiresClarification\":false}\n```"
	res, err := service.ParseIntentJSON(raw)
	if err != nil {
		t.Fatalf("ParseIntentJSON failed: %v", err)
	}
	if res.Intent != domain.IntentTireSearch {
		t.Errorf("intent = %s", res.Intent)
	}
	if res.Parameters["brand"] != "toyota" {
		t.Errorf("brand = %q", res.Parameters["brand"])
	}
}

func TestParseIntentJSONGarbage(t *testing.T) {
	if _, err := service.ParseIntentJSON("üzgünüm, yardımcı olamıyorum"); err == nil {
		t.Fatal("expected parse error")
	}
	var parseErr *domain.ErrParse
	_, err := service.ParseIntentJSON("not json at all")
	if !errors.As(err, &parseErr) {
		t.Errorf("expected ErrParse, got %v", err)
	}
}

func TestDetectUsesModelForIncompleteTireSearch(t *testing.T) {
	gen := &fakeGenerator{
		reply: `{"intent":"TireSearch","parameters":{"brand":"honda","model":"civic"},"requiresClarification":false}`,
	}
	e := newExtractor(t, gen)

	res := e.Detect(context.Background(), "hondamın civicine lastik lazım", nil, "")
	if gen.calls != 1 {
		t.Fatalf("expected one generator call, got %d", gen.calls)
	}
	if res.Intent != domain.IntentTireSearch {
		t.Fatalf("intent = %s", res.Intent)
	}
	if res.Parameters["brand"] != "honda" || res.Parameters["model"] != "civic" {
		t.Errorf("parameters = %v", res.Parameters)
	}
}

func TestDetectSkipsModelWhenRuleResultDecisive(t *testing.T) {
	gen := &fakeGenerator{reply: `{"intent":"GeneralQuestion"}`}
	e := newExtractor(t, gen)

	res := e.Detect(context.Background(), "Latitude 41.0082, Longitude 28.9784", nil, "")
	if gen.calls != 0 {
		t.Errorf("decisive rule result must not call the generator, got %d calls", gen.calls)
	}
	if res.Intent != domain.IntentDealerSearchByLocation {
		t.Errorf("intent = %s", res.Intent)
	}
}

func TestDetectSkipsModelWhenTireContextComplete(t *testing.T) {
	gen := &fakeGenerator{reply: `{"intent":"TireSearch"}`}
	e := newExtractor(t, gen)

	cctx := domain.NewConversationContext("s1")
	cctx.CurrentIntent = domain.IntentTireSearch
	cctx.Brand = "toyota"
	cctx.Model = "corolla"

	res := e.Detect(context.Background(), "2019", cctx, "")
	if gen.calls != 0 {
		t.Errorf("complete tire context must not call the generator, got %d calls", gen.calls)
	}
	if res.Intent != domain.IntentTireSearch {
		t.Errorf("intent = %s", res.Intent)
	}
	if res.Parameters["year"] != "2019" {
		t.Errorf("year = %q", res.Parameters["year"])
	}
}

func TestDetectFallsBackOnGeneratorError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("backend down")}
	e := newExtractor(t, gen)

	res := e.Detect(context.Background(), "bana bir hikaye anlat", nil, "")
	if res.Intent != domain.IntentGeneralQuestion {
		t.Errorf("intent = %s, want rule fallback GeneralQuestion", res.Intent)
	}
}

func TestDetectPrefersRuleResultOverModelGeneralQuestion(t *testing.T) {
	gen := &fakeGenerator{reply: `{"intent":"GeneralQuestion","parameters":{}}`}
	e := newExtractor(t, gen)

	// The rule cascade sees a tire cue without brand/model; the model
	// disagrees, so the rule result wins.
	res := e.Detect(context.Background(), "lastik lazım bana", nil, "")
	if res.Intent != domain.IntentTireSearch {
		t.Errorf("intent = %s, want TireSearch from rules", res.Intent)
	}
}
