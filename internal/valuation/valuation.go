// Package valuation implements the heuristic value-estimation engine. It is
// deterministic and allocation-light so it can run inline per listing:
// identical inputs always produce identical estimates.
package valuation

import (
	"fmt"
	"math"
	"strings"

	"github.com/jonesrussell/flipscout/internal/domain"
)

// Input carries the listing fields the engine scores on.
type Input struct {
	Title       string
	Description string
	Price       float64
	Condition   domain.Condition
	Category    string
	Brand       string
	SellerName  string
}

// Score weighting constants. The final score is clamped to [0, 100].
const (
	maxDiscountComponent = 45.0
	discountWeight       = 90.0

	brandBoost          = 10.0
	sealedBoost         = 12.0
	demandCategoryBoost = 5.0

	riskPenalty    = 15.0
	maxRiskPenalty = 40.0

	// Band spread around the mid estimate.
	bandSpread = 0.15
)

// conditionMultipliers scale the resale estimate by item condition.
var conditionMultipliers = map[domain.Condition]float64{
	domain.ConditionNew:        1.9,
	domain.ConditionLikeNew:    1.7,
	domain.ConditionVeryGood:   1.5,
	domain.ConditionGood:       1.35,
	domain.ConditionAcceptable: 1.15,
	domain.ConditionPoor:       0.9,
}

// conditionQuality contributes directly to the value score.
var conditionQuality = map[domain.Condition]float64{
	domain.ConditionNew:        15,
	domain.ConditionLikeNew:    13,
	domain.ConditionVeryGood:   11,
	domain.ConditionGood:       9,
	domain.ConditionAcceptable: 5,
	domain.ConditionPoor:       0,
}

// categoryDemand scales the resale estimate by how liquid the category is.
var categoryDemand = map[string]float64{
	"electronics":  1.25,
	"collectibles": 1.3,
	"tools":        1.2,
	"sporting":     1.1,
	"appliances":   1.1,
	"toys":         1.1,
	"furniture":    1.05,
	"clothing":     1.0,
	"general":      1.0,
}

// highDemandCategories get a flat desirability boost.
var highDemandCategories = map[string]bool{
	"electronics":  true,
	"collectibles": true,
	"tools":        true,
}

// sealedKeywords signal unopened or mint items.
var sealedKeywords = []string{"sealed", "new in box", "nib", "unopened", "brand new"}

// riskKeywords depress the score; each match costs riskPenalty up to
// maxRiskPenalty.
var riskKeywords = []string{
	"broken", "for parts", "not working", "cracked", "water damage",
	"as is", "as-is", "needs repair", "doesn't work", "no power",
}

// notShippableKeywords mark pickup-only listings.
var notShippableKeywords = []string{
	"local pickup only", "pickup only", "pick up only", "no shipping",
	"cash only local", "must pick up",
}

// negotiableKeywords mark sellers open to offers.
var negotiableKeywords = []string{"obo", "or best offer", "negotiable", "make an offer", "open to offers"}

// bulkyCategories are hard to ship regardless of the seller's wording.
var bulkyCategories = map[string]bool{
	"furniture":  true,
	"appliances": true,
}

// Estimate scores a single listing. Prices at or below zero yield a zero
// estimate; callers are expected to have filtered those during normalization.
func Estimate(in Input) domain.ValueEstimate {
	if in.Price <= 0 {
		return domain.ValueEstimate{ResaleDifficulty: domain.DifficultyHard}
	}

	category := strings.ToLower(in.Category)
	if category == "" {
		category = "general"
	}
	text := strings.ToLower(in.Title + " " + in.Description)

	condMult, ok := conditionMultipliers[in.Condition]
	if !ok {
		condMult = conditionMultipliers[domain.ConditionGood]
	}
	demand, ok := categoryDemand[category]
	if !ok {
		demand = 1.0
	}

	estimated := round2(in.Price * condMult * demand)
	low := round2(estimated * (1 - bandSpread))
	high := round2(estimated * (1 + bandSpread))

	discount := 0.0
	if estimated > 0 {
		discount = (estimated - in.Price) / estimated
	}
	if discount < 0 {
		discount = 0
	}

	shippable := isShippable(category, text)
	negotiable := containsAny(text, negotiableKeywords)
	sealed := containsAny(text, sealedKeywords)

	score := scoreListing(in, category, text, discount, sealed)

	est := domain.ValueEstimate{
		EstimatedValue:     estimated,
		EstimatedValueLow:  low,
		EstimatedValueHigh: high,
		ProfitPotential:    round2(estimated - in.Price),
		ProfitLow:          round2(low - in.Price),
		ProfitHigh:         round2(high - in.Price),
		ValueScore:         score,
		DiscountPercent:    round2(discount * 100),
		ResaleDifficulty:   difficulty(category, shippable),
		Shippable:          shippable,
		Negotiable:         negotiable,
	}

	est.Comparables = comparables(in, estimated)
	est.Tags = tags(in, category, discount, sealed, est)
	est.Reasoning = reasoning(in, est)
	est.OutreachMessage = outreachMessage(in)

	return est
}

func scoreListing(in Input, category, text string, discount float64, sealed bool) int {
	score := math.Min(maxDiscountComponent, discount*discountWeight)
	score += conditionQuality[in.Condition]

	if in.Brand != "" {
		score += brandBoost
	}
	if sealed {
		score += sealedBoost
	}
	if highDemandCategories[category] {
		score += demandCategoryBoost
	}

	penalty := 0.0
	for _, kw := range riskKeywords {
		if strings.Contains(text, kw) {
			penalty += riskPenalty
		}
	}
	score -= math.Min(penalty, maxRiskPenalty)

	return clampScore(int(math.Round(score)))
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func isShippable(category, text string) bool {
	if bulkyCategories[category] {
		return false
	}
	return !containsAny(text, notShippableKeywords)
}

func difficulty(category string, shippable bool) domain.ResaleDifficulty {
	switch {
	case !shippable && bulkyCategories[category]:
		return domain.DifficultyHard
	case highDemandCategories[category] || category == "toys":
		if shippable {
			return domain.DifficultyEasy
		}
		return domain.DifficultyMedium
	default:
		return domain.DifficultyMedium
	}
}

// comparables emits 2-4 reference entries justifying the estimate to the
// user. They are derived deterministically from the estimate itself.
func comparables(in Input, estimated float64) domain.ComparableList {
	title := shortTitle(in.Title)

	comps := domain.ComparableList{
		{Type: domain.ComparableSold, Title: "Recently sold: " + title, Price: round2(estimated * 0.97)},
		{Type: domain.ComparableActive, Title: "Active listing: " + title, Price: round2(estimated * 1.05)},
		{Type: domain.ComparableMarketplace, Title: "Marketplace average: " + title, Price: round2(estimated * 0.9)},
	}
	if in.Brand != "" {
		comps = append(comps, domain.Comparable{
			Type:  domain.ComparableRetail,
			Title: "Retail (new): " + title,
			Price: round2(estimated * 1.3),
		})
	}

	return comps
}

func tags(in Input, category string, discount float64, sealed bool, est domain.ValueEstimate) domain.StringSlice {
	t := domain.StringSlice{category, string(in.Condition)}
	if in.Brand != "" {
		t = append(t, strings.ToLower(in.Brand))
	}
	if sealed {
		t = append(t, "sealed")
	}
	if discount >= 0.3 {
		t = append(t, "high-discount")
	}
	if est.ResaleDifficulty == domain.DifficultyEasy {
		t = append(t, "easy-flip")
	}
	if est.Negotiable {
		t = append(t, "negotiable")
	}
	return t
}

func reasoning(in Input, est domain.ValueEstimate) string {
	return fmt.Sprintf(
		"Asking $%.2f against an estimated resale of $%.2f ($%.2f-$%.2f) in %s condition; projected profit $%.2f at a %.0f%% discount.",
		in.Price, est.EstimatedValue, est.EstimatedValueLow, est.EstimatedValueHigh,
		in.Condition, est.ProfitPotential, est.DiscountPercent,
	)
}

// outreachMessage generates the templated purchase message, personalized
// with the seller name when known.
func outreachMessage(in Input) string {
	greeting := "Hi there"
	if name := strings.TrimSpace(in.SellerName); name != "" {
		greeting = "Hi " + name
	}

	offer := math.Floor(in.Price * 0.9)
	return fmt.Sprintf(
		"%s, I saw your listing for %q. Is it still available? I can pick it up today and pay cash. Would you take $%.0f?",
		greeting, shortTitle(in.Title), offer,
	)
}

func shortTitle(title string) string {
	const maxLen = 60
	title = strings.TrimSpace(title)
	if len(title) <= maxLen {
		return title
	}
	return strings.TrimSpace(title[:maxLen]) + "…"
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
