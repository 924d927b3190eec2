// Package match provides the text-comparison primitives shared by the
// fraud detection engines: normalization, fuzzy token matching, amount
// extraction, and identifier validation.
package match

import (
	"regexp"
	"strings"
)

// Default thresholds for fuzzy comparison, in percent of shared tokens.
const (
	NameThreshold     = 70
	AddressThreshold  = 60
	EmployerThreshold = 60
)

var (
	nonAlnum   = regexp.MustCompile(`[^a-z0-9 ]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Normalize lowercases, strips everything but letters, digits and
// spaces, and collapses runs of whitespace.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = nonAlnum.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Fuzzy reports whether two strings refer to the same name, address or
// employer. A match is an exact normalized equality, one side
// containing the other (as a substring or as a token subset, covering
// dropped middle names), or at least threshold percent of tokens
// shared between the two (over the larger token count). Tokens of
// length <= 2 are ignored so initials and connectors don't skew the
// ratio.
func Fuzzy(a, b string, threshold int) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}

	tokensA := significantTokens(na)
	tokensB := significantTokens(nb)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return false
	}

	shared := 0
	for tok := range tokensA {
		if tokensB[tok] {
			shared++
		}
	}

	// One side's tokens fully contained in the other's counts as
	// containment ("Ravi Sharma" inside "Ravi Kumar Sharma").
	min := len(tokensA)
	max := len(tokensB)
	if min > max {
		min, max = max, min
	}
	if shared == min {
		return true
	}

	return shared*100 >= threshold*max
}

// Names compares two person names at the 70% threshold.
func Names(a, b string) bool {
	return Fuzzy(a, b, NameThreshold)
}

// Addresses compares two addresses at the 60% threshold.
func Addresses(a, b string) bool {
	return Fuzzy(a, b, AddressThreshold)
}

// Employers compares two employer names at the 60% threshold.
func Employers(a, b string) bool {
	return Fuzzy(a, b, EmployerThreshold)
}

func significantTokens(normalized string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range strings.Fields(normalized) {
		if len(tok) > 2 {
			tokens[tok] = true
		}
	}
	return tokens
}
