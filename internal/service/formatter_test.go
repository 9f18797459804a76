package service_test

import (
	"testing"

	"github.com/bitiz/tirebot-go/internal/infra/refdata"
	"github.com/bitiz/tirebot-go/internal/service"
)

func newFormatter(t *testing.T) *service.Formatter {
	t.Helper()
	vehicles, err := refdata.Load()
	if err != nil {
		t.Fatalf("refdata.Load: %v", err)
	}
	return service.NewFormatter(vehicles)
}

func TestCapitalizeFirstTurkish(t *testing.T) {
	cases := map[string]string{
		"istanbul":  "İstanbul",
		"ısparta":   "Isparta",
		"şişli":     "Şişli",
		"merhaba":   "Merhaba",
		"Zaten Büyük": "Zaten Büyük",
		"":          "",
	}
	for in, want := range cases {
		if got := service.CapitalizeFirst(in); got != want {
			t.Errorf("CapitalizeFirst(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatterMessage(t *testing.T) {
	f := newFormatter(t)
	got := f.Message("toyota corolla için lastik bulunamadı.lütfen tekrar deneyin")
	// Only the leading letter is capitalized; later sentences keep
	// their casing.
	want := "Toyota Corolla için lastik bulunamadı. lütfen tekrar deneyin"
	if got != want {
		t.Errorf("Message = %q, want %q", got, want)
	}
}

func TestFormatterBrandModel(t *testing.T) {
	f := newFormatter(t)
	if got := f.Brand("bmw"); got != "BMW" {
		t.Errorf("Brand = %q", got)
	}
	if got := f.Model("focus"); got != "Focus" {
		t.Errorf("Model = %q", got)
	}
}
