// Package refdata holds the embedded vehicle brand/model reference
// tables. The tables are data, not code, so they can be refreshed
// without touching the matching logic.
package refdata

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

//go:embed vehicles.json
var vehiclesJSON []byte

type vehicleFile struct {
	Brands []string `json:"brands"`
	Models []string `json:"models"`
}

type entry struct {
	key       string // normalized, used for matching and as parameter value
	canonical string // display form
	matchRe   *regexp.Regexp // suffix-tolerant, for detection
	exactRe   *regexp.Regexp // strict word boundary, for canonical rewriting
}

// Catalog answers "does this message mention a known brand/model" and
// canonicalizes matched names for display.
type Catalog struct {
	brands []entry
	models []entry
}

// Load parses the embedded tables and precompiles one word-boundary
// regex per entry. Called once at startup.
func Load() (*Catalog, error) {
	var f vehicleFile
	if err := json.Unmarshal(vehiclesJSON, &f); err != nil {
		return nil, fmt.Errorf("parse vehicles.json: %w", err)
	}
	c := &Catalog{
		brands: make([]entry, 0, len(f.Brands)),
		models: make([]entry, 0, len(f.Models)),
	}
	for _, b := range f.Brands {
		e, err := newEntry(b)
		if err != nil {
			return nil, err
		}
		c.brands = append(c.brands, e)
	}
	for _, m := range f.Models {
		e, err := newEntry(m)
		if err != nil {
			return nil, err
		}
		c.models = append(c.models, e)
	}
	return c, nil
}

// caseSuffix tolerates common Turkish case endings after a name
// ("corollanın", "toyota'da"). Written against folded text.
const caseSuffix = `'?(?:nin|in|un|da|de|ta|te|dan|den|tan|ten|daki|deki|ya|ye|a|e)?\b`

func newEntry(canonical string) (entry, error) {
	key := fold(canonical)
	matchRe, err := regexp.Compile(`\b` + regexp.QuoteMeta(key) + caseSuffix)
	if err != nil {
		return entry{}, fmt.Errorf("compile pattern for %q: %w", canonical, err)
	}
	exactRe, err := regexp.Compile(`\b` + regexp.QuoteMeta(key) + `\b`)
	if err != nil {
		return entry{}, fmt.Errorf("compile pattern for %q: %w", canonical, err)
	}
	return entry{key: key, canonical: canonical, matchRe: matchRe, exactRe: exactRe}, nil
}

var folder = strings.NewReplacer(
	"ı", "i", "İ", "i", "I", "i",
	"ş", "s", "Ş", "s",
	"ğ", "g", "Ğ", "g",
	"ü", "u", "Ü", "u",
	"ö", "o", "Ö", "o",
	"ç", "c", "Ç", "c",
	"ë", "e", "é", "e",
)

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(folder.Replace(s)))
}

// MatchBrand returns the normalized brand token mentioned in the
// message, or "". The message must already be normalized text; first
// match in table order wins.
func (c *Catalog) MatchBrand(normalized string) string {
	for _, e := range c.brands {
		if e.matchRe.MatchString(normalized) {
			return e.key
		}
	}
	return ""
}

// MatchModel is MatchBrand for model names.
func (c *Catalog) MatchModel(normalized string) string {
	for _, e := range c.models {
		if e.matchRe.MatchString(normalized) {
			return e.key
		}
	}
	return ""
}

// CanonicalBrand maps any casing of a known brand to its display form.
// Unknown names are returned unchanged.
func (c *Catalog) CanonicalBrand(name string) string {
	key := fold(name)
	for _, e := range c.brands {
		if e.key == key {
			return e.canonical
		}
	}
	return name
}

// CanonicalModel is CanonicalBrand for model names.
func (c *Catalog) CanonicalModel(name string) string {
	key := fold(name)
	for _, e := range c.models {
		if e.key == key {
			return e.canonical
		}
	}
	return name
}

// ReplaceCanonical rewrites every known brand/model token in text with
// its canonical display form, word-boundary matched on the folded text.
// Used by the response formatter on API-sourced messages.
func (c *Catalog) ReplaceCanonical(text string) string {
	lower := fold(text)
	for _, list := range [][]entry{c.brands, c.models} {
		for _, e := range list {
			loc := e.exactRe.FindStringIndex(lower)
			if loc == nil {
				continue
			}
			// Folding is rune-length preserving, so byte offsets in the
			// folded text may differ from the original when the original
			// contains multibyte runes. Rebuild via rune offsets.
			runeStart := len([]rune(lower[:loc[0]]))
			runeLen := len([]rune(lower[loc[0]:loc[1]]))
			orig := []rune(text)
			if runeStart+runeLen > len(orig) {
				continue
			}
			text = string(orig[:runeStart]) + e.canonical + string(orig[runeStart+runeLen:])
			lower = fold(text)
		}
	}
	return text
}
