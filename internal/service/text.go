package service

import "strings"

// Turkish-aware text utilities shared by the lexical matcher and the
// rule detector. All keyword matching runs over normalized text so that
// diacritic loss ("yakin" for "yakın") never breaks a match.

var turkishFolder = strings.NewReplacer(
	"ı", "i", "İ", "i", "I", "i",
	"ş", "s", "Ş", "s",
	"ğ", "g", "Ğ", "g",
	"ü", "u", "Ü", "u",
	"ö", "o", "Ö", "o",
	"ç", "c", "Ç", "c",
)

// Normalize lowercases, trims, and folds Turkish diacritics to ASCII.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(turkishFolder.Replace(s)))
}

// Levenshtein returns the edit distance between two strings, rune-wise.
func Levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// ContainsFuzzy reports whether the normalized message contains any of
// the given normalized keywords. Exact substring first; then per-token
// Levenshtein <=1; for short messages (<=10 chars) also a whole-string
// Levenshtein <=1 check.
func ContainsFuzzy(normalized string, keywords []string) bool {
	tokens := strings.Fields(normalized)
	for _, kw := range keywords {
		if strings.Contains(normalized, kw) {
			return true
		}
		for _, tok := range tokens {
			if withinOneEdit(tok, kw) {
				return true
			}
		}
		if len([]rune(normalized)) <= 10 && withinOneEdit(normalized, kw) {
			return true
		}
	}
	return false
}

// ContainsKeyword is ContainsFuzzy with one tightening: keywords
// shorter than four runes must equal a whole token, so "ok" never
// fires inside "şok" or "konum".
func ContainsKeyword(normalized string, keywords []string) bool {
	tokens := strings.Fields(normalized)
	for _, kw := range keywords {
		if len([]rune(kw)) < 4 {
			for _, tok := range tokens {
				if tok == kw {
					return true
				}
			}
			continue
		}
		if strings.Contains(normalized, kw) {
			return true
		}
		for _, tok := range tokens {
			if withinOneEdit(tok, kw) {
				return true
			}
		}
	}
	return false
}

// withinOneEdit short-circuits on length before computing the distance.
func withinOneEdit(a, b string) bool {
	la, lb := len([]rune(a)), len([]rune(b))
	if la-lb > 1 || lb-la > 1 {
		return false
	}
	return Levenshtein(a, b) <= 1
}

// ExtractDigits returns only the decimal digits of s.
func ExtractDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
