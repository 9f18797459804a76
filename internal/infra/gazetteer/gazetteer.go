// Package gazetteer resolves Turkish province and district names
// mentioned in free text. The place tables are embedded data loaded
// once at startup.
package gazetteer

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

//go:embed provinces.json
var provincesJSON []byte

type provinceFile struct {
	Name      string   `json:"name"`
	Districts []string `json:"districts"`
}

type place struct {
	display string
	re      *regexp.Regexp
}

type province struct {
	place
	districts []place
}

// Lookup finds place names in normalized text via word-boundary
// matching, so "Van" never fires inside "hayvan".
type Lookup struct {
	provinces []province
}

// Load parses the embedded tables. Called once at startup.
func Load() (*Lookup, error) {
	var file []provinceFile
	if err := json.Unmarshal(provincesJSON, &file); err != nil {
		return nil, fmt.Errorf("parse provinces.json: %w", err)
	}
	l := &Lookup{provinces: make([]province, 0, len(file))}
	for _, pf := range file {
		p, err := newPlace(pf.Name)
		if err != nil {
			return nil, err
		}
		prov := province{place: p, districts: make([]place, 0, len(pf.Districts))}
		for _, d := range pf.Districts {
			dp, err := newPlace(d)
			if err != nil {
				return nil, err
			}
			prov.districts = append(prov.districts, dp)
		}
		l.provinces = append(l.provinces, prov)
	}
	return l, nil
}

// caseSuffix tolerates common Turkish case endings after a place name
// ("istanbulda", "kadıköy'de"), while the leading word boundary keeps
// "Van" from firing inside "hayvan". Written against folded text.
const caseSuffix = `'?(?:nin|in|un|da|de|ta|te|dan|den|tan|ten|daki|deki|ya|ye|a|e)?\b`

func newPlace(display string) (place, error) {
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(fold(display)) + caseSuffix)
	if err != nil {
		return place{}, fmt.Errorf("compile pattern for %q: %w", display, err)
	}
	return place{display: display, re: re}, nil
}

var folder = strings.NewReplacer(
	"ı", "i", "İ", "i", "I", "i",
	"ş", "s", "Ş", "s",
	"ğ", "g", "Ğ", "g",
	"ü", "u", "Ü", "u",
	"ö", "o", "Ö", "o",
	"ç", "c", "Ç", "c",
)

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(folder.Replace(s)))
}

// FindCity returns the display name of the first province mentioned in
// the text, or "".
func (l *Lookup) FindCity(text string) string {
	folded := fold(text)
	for _, p := range l.provinces {
		if p.re.MatchString(folded) {
			return p.display
		}
	}
	return ""
}

// FindDistrict returns the display name of the first district mentioned
// in the text. When city is non-empty, only that province's districts
// are considered.
func (l *Lookup) FindDistrict(text, city string) string {
	folded := fold(text)
	cityKey := fold(city)
	for _, p := range l.provinces {
		if cityKey != "" && fold(p.display) != cityKey {
			continue
		}
		for _, d := range p.districts {
			if d.re.MatchString(folded) {
				return d.display
			}
		}
	}
	return ""
}
