package gazetteer_test

import (
	"testing"

	"github.com/bitiz/tirebot-go/internal/infra/gazetteer"
)

func TestFindCity(t *testing.T) {
	l, err := gazetteer.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cases := map[string]string{
		"İstanbul'da bayi var mı":     "İstanbul",
		"istanbulda bayi var mi":      "İstanbul",
		"ankara lastik bayisi":        "Ankara",
		"hava bugün çok güzel":        "",
		"izmirde lastik nereden alırım": "İzmir",
	}
	for in, want := range cases {
		if got := l.FindCity(in); got != want {
			t.Errorf("FindCity(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFindCityWordBoundary(t *testing.T) {
	l, err := gazetteer.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	// "Van" must not fire inside "hayvan".
	if got := l.FindCity("hayvan sahiplenmek istiyorum"); got != "" {
		t.Errorf("FindCity matched inside a word: %q", got)
	}
}

func TestFindDistrict(t *testing.T) {
	l, err := gazetteer.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := l.FindDistrict("kadıköy civarında bayi", "İstanbul"); got != "Kadıköy" {
		t.Errorf("FindDistrict = %q, want Kadıköy", got)
	}
	// Diacritic-free input still resolves.
	if got := l.FindDistrict("kadikoyde bayi var mi", "İstanbul"); got != "Kadıköy" {
		t.Errorf("FindDistrict (folded) = %q, want Kadıköy", got)
	}
	// Scoped search: Kadıköy is not in Ankara.
	if got := l.FindDistrict("kadıköy", "Ankara"); got != "" {
		t.Errorf("expected no district for wrong city, got %q", got)
	}
	// Unscoped search walks every province.
	if got := l.FindDistrict("bodrumda lastikçi", ""); got != "Bodrum" {
		t.Errorf("FindDistrict unscoped = %q, want Bodrum", got)
	}
}
