package service

import (
	"regexp"
	"strings"
)

// Input gate applied before any processing. Rejected input gets a fixed
// reply and mutates no state.

// MaxMessageLen is the hard bound on an inbound utterance.
const MaxMessageLen = 400

var (
	htmlTagRe      = regexp.MustCompile(`<[^>]*>`)
	scriptFragRe   = regexp.MustCompile(`(?i)javascript:|on\w+\s*=`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	repeatedCharRe = regexp.MustCompile(`(.)\1{20,}`)
)

// SanitizeMessage strips markup fragments and collapses whitespace.
func SanitizeMessage(s string) string {
	s = htmlTagRe.ReplaceAllString(s, "")
	s = scriptFragRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ValidateMessage reports whether a sanitized message is acceptable.
func ValidateMessage(s string) bool {
	if s == "" {
		return false
	}
	if len([]rune(s)) > MaxMessageLen {
		return false
	}
	if repeatedCharRe.MatchString(s) {
		return false
	}
	return true
}
