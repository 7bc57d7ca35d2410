package normalize

import (
	"regexp"
	"strings"

	"github.com/jonesrussell/flipscout/internal/domain"
)

// conditionPatterns map provider condition descriptions onto the normalized
// enum. Order matters: "like new" must match before the bare "new" pattern.
var conditionPatterns = []struct {
	pattern   *regexp.Regexp
	condition domain.Condition
}{
	{regexp.MustCompile(`\blike new\b`), domain.ConditionLikeNew},
	{regexp.MustCompile(`\bbrand new\b`), domain.ConditionNew},
	{regexp.MustCompile(`\bnew\b`), domain.ConditionNew},
	{regexp.MustCompile(`\bvery good\b`), domain.ConditionVeryGood},
	{regexp.MustCompile(`\bgood\b`), domain.ConditionGood},
	{regexp.MustCompile(`\bacceptable\b|\bfair\b`), domain.ConditionAcceptable},
	{regexp.MustCompile(`\bpoor\b|\bhas flaws\b|\bfor parts\b`), domain.ConditionPoor},
}

// NormalizeCondition maps a provider's condition description onto the shared
// enum, defaulting to GOOD when nothing matches.
func NormalizeCondition(raw string) domain.Condition {
	lower := strings.ToLower(strings.TrimSpace(raw))
	for _, entry := range conditionPatterns {
		if entry.pattern.MatchString(lower) {
			return entry.condition
		}
	}
	return domain.ConditionGood
}
