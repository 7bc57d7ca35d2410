package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var priceDigits = regexp.MustCompile(`-?[\d.,]+`)

// ParsePrice parses a provider's price text defensively. It strips currency
// symbols and thousands separators, and maps "Free" to 0. The second return
// is false when no numeric amount could be recovered; eligibility (price > 0)
// is decided by the caller.
func ParsePrice(text string) (float64, bool) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return 0, false
	}

	lower := strings.ToLower(cleaned)
	if strings.Contains(lower, "free") {
		return 0, true
	}

	match := priceDigits.FindString(cleaned)
	if match == "" {
		return 0, false
	}

	match = normalizeSeparators(match)

	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}

	return value, true
}

// normalizeSeparators strips thousands separators so "1,299.99" and
// "1.299,99" both parse. A trailing group of exactly two digits after the
// last separator is treated as cents.
func normalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma < 0 && lastDot < 0:
		return s
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			// European style: dot thousands, comma decimal
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		// Comma only: decimal when exactly two digits follow it
		if len(s)-lastComma-1 == 2 {
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	default:
		// Dot only: thousands separator when exactly three digits follow
		// and other groups exist
		if strings.Count(s, ".") > 1 {
			return strings.ReplaceAll(s, ".", "")
		}
		return s
	}
}
