package service

import (
	"regexp"
	"strings"

	"github.com/bitiz/tirebot-go/internal/infra/refdata"
)

// Formatter post-processes API-sourced message strings before they
// reach the user: Turkish-aware capitalization, canonical brand/model
// casing, and punctuation spacing. Generative output is never run
// through it.
type Formatter struct {
	vehicles *refdata.Catalog
}

// NewFormatter creates a formatter over the vehicle catalog.
func NewFormatter(vehicles *refdata.Catalog) *Formatter {
	return &Formatter{vehicles: vehicles}
}

var punctSpacingRe = regexp.MustCompile(`([.!?;,])(\pL)`)

// Message applies all post-processing steps to an API message.
func (f *Formatter) Message(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	s = f.vehicles.ReplaceCanonical(s)
	s = punctSpacingRe.ReplaceAllString(s, "$1 $2")
	return CapitalizeFirst(s)
}

// Brand returns the canonical display form of a brand name.
func (f *Formatter) Brand(name string) string {
	return f.vehicles.CanonicalBrand(name)
}

// Model returns the canonical display form of a model name.
func (f *Formatter) Model(name string) string {
	return f.vehicles.CanonicalModel(name)
}

// CapitalizeFirst uppercases the first letter with Turkish casing
// rules: i maps to İ, ı to I.
func CapitalizeFirst(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	switch r[0] {
	case 'i':
		r[0] = 'İ'
	case 'ı':
		r[0] = 'I'
	case 'ğ':
		r[0] = 'Ğ'
	case 'ü':
		r[0] = 'Ü'
	case 'ş':
		r[0] = 'Ş'
	case 'ö':
		r[0] = 'Ö'
	case 'ç':
		r[0] = 'Ç'
	default:
		if r[0] >= 'a' && r[0] <= 'z' {
			r[0] = r[0] - 'a' + 'A'
		}
	}
	return string(r)
}
