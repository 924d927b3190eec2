package match

import (
	"regexp"
	"strconv"
	"strings"
)

// Ordered extraction patterns per document type. The first pattern
// that matches wins. Captured amounts may carry comma separators.
var (
	PayslipIncomePatterns = compileAll(
		`(?i)net\s*pay[:\s]+(?:rs\.?|inr)?\s*([0-9,]+)`,
		`(?i)net\s*salary[:\s]+(?:rs\.?|inr)?\s*([0-9,]+)`,
		`(?i)take\s*home[:\s]+(?:rs\.?|inr)?\s*([0-9,]+)`,
	)

	ITRIncomePatterns = compileAll(
		`(?i)gross\s*total\s*income[:\s]+(?:rs\.?|inr)?\s*([0-9,]+)`,
		`(?i)total\s*income[:\s]+(?:rs\.?|inr)?\s*([0-9,]+)`,
		`(?i)taxable\s*income[:\s]+(?:rs\.?|inr)?\s*([0-9,]+)`,
	)

	Form16IncomePatterns = compileAll(
		`(?i)gross\s*salary[:\s]+(?:rs\.?|inr)?\s*([0-9,]+)`,
		`(?i)total\s*salary[:\s]+(?:rs\.?|inr)?\s*([0-9,]+)`,
	)

	panTextPattern     = regexp.MustCompile(`\b([A-Z]{5}[0-9]{4}[A-Z])\b`)
	aadhaarTextPattern = regexp.MustCompile(`\b([0-9]{4}\s?[0-9]{4}\s?[0-9]{4})\b`)
)

func compileAll(exprs ...string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		patterns = append(patterns, regexp.MustCompile(expr))
	}
	return patterns
}

// ExtractAmount tries each pattern in order against the text and
// parses the first captured amount, stripping comma separators.
// A miss returns ok=false, never an error.
func ExtractAmount(text string, patterns []*regexp.Regexp) (float64, bool) {
	for _, pattern := range patterns {
		m := pattern.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		raw := strings.ReplaceAll(m[1], ",", "")
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		return value, true
	}
	return 0, false
}

// ExtractPAN pulls the first PAN-shaped token out of free text.
func ExtractPAN(text string) (string, bool) {
	m := panTextPattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// ExtractAadhaar pulls the first 12-digit Aadhaar-shaped token out of
// free text, tolerating the common 4-4-4 spacing.
func ExtractAadhaar(text string) (string, bool) {
	m := aadhaarTextPattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", false
	}
	return strings.ReplaceAll(m[1], " ", ""), true
}

// CountKeywords counts how many of the keywords occur in the text,
// counting each occurrence, case-insensitively.
func CountKeywords(text string, keywords []string) int {
	lower := strings.ToLower(text)
	count := 0
	for _, kw := range keywords {
		count += strings.Count(lower, strings.ToLower(kw))
	}
	return count
}

// ContainsAny reports whether the text contains any of the keywords,
// case-insensitively.
func ContainsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
