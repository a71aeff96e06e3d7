package normalize

import (
	"regexp"
	"strings"
)

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

// Name canonicalizes a raw company name into its comparison key: lower-cased,
// trimmed, stripped of everything outside the Unicode word/space class, with
// internal whitespace runs collapsed to single spaces. Two names denote the
// same entity candidate iff their keys are byte-equal.
func Name(raw string) string {
	n := strings.ToLower(strings.TrimSpace(raw))
	n = nonWord.ReplaceAllString(n, "")
	return strings.Join(strings.Fields(n), " ")
}
