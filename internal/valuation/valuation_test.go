package valuation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/flipscout/internal/domain"
)

func TestEstimate_SealedElectronicsScoresHigh(t *testing.T) {
	est := Estimate(Input{
		Title:     "Apple iPhone 13 sealed new in box",
		Price:     200,
		Condition: domain.ConditionNew,
		Category:  "electronics",
		Brand:     "Apple",
	})

	// 45 discount component + 15 condition + 10 brand + 12 sealed + 5 demand.
	assert.Equal(t, 87, est.ValueScore)
	assert.InDelta(t, 475.0, est.EstimatedValue, 0.01)
	assert.Greater(t, est.ProfitPotential, 0.0)
	assert.Equal(t, domain.DifficultyEasy, est.ResaleDifficulty)
	assert.True(t, est.Shippable)
}

func TestEstimate_BrokenItemScoresZero(t *testing.T) {
	est := Estimate(Input{
		Title:       "Broken TV for parts",
		Description: "not working, cracked screen",
		Price:       1000,
		Condition:   domain.ConditionPoor,
		Category:    "electronics",
	})

	assert.Equal(t, 0, est.ValueScore)
}

func TestEstimate_Deterministic(t *testing.T) {
	in := Input{
		Title:       "DeWalt drill set, like new, OBO",
		Description: "barely used",
		Price:       80,
		Condition:   domain.ConditionLikeNew,
		Category:    "tools",
		Brand:       "DeWalt",
		SellerName:  "Sam",
	}

	first := Estimate(in)
	second := Estimate(in)
	assert.Equal(t, first, second)
}

func TestEstimate_ZeroPrice(t *testing.T) {
	est := Estimate(Input{Title: "Free couch", Price: 0, Condition: domain.ConditionGood})

	assert.Zero(t, est.EstimatedValue)
	assert.Zero(t, est.ValueScore)
	assert.Equal(t, domain.DifficultyHard, est.ResaleDifficulty)
}

func TestEstimate_DiscountNeverNegative(t *testing.T) {
	// Poor clothing resells below asking; the discount must clamp at zero.
	est := Estimate(Input{
		Title:     "Worn out jacket",
		Price:     100,
		Condition: domain.ConditionPoor,
		Category:  "clothing",
	})

	assert.Zero(t, est.DiscountPercent)
	assert.Negative(t, est.ProfitPotential)
}

func TestEstimate_Bands(t *testing.T) {
	est := Estimate(Input{
		Title:     "Nintendo Switch console",
		Price:     150,
		Condition: domain.ConditionGood,
		Category:  "electronics",
	})

	assert.Less(t, est.EstimatedValueLow, est.EstimatedValue)
	assert.Greater(t, est.EstimatedValueHigh, est.EstimatedValue)
	assert.InDelta(t, est.EstimatedValue-est.EstimatedValueLow, est.EstimatedValueHigh-est.EstimatedValue, 0.02)
}

func TestEstimate_Comparables(t *testing.T) {
	withBrand := Estimate(Input{
		Title: "Milwaukee impact driver", Price: 90,
		Condition: domain.ConditionGood, Category: "tools", Brand: "Milwaukee",
	})
	require.Len(t, withBrand.Comparables, 4)

	withoutBrand := Estimate(Input{
		Title: "Impact driver", Price: 90,
		Condition: domain.ConditionGood, Category: "tools",
	})
	require.Len(t, withoutBrand.Comparables, 3)

	for _, comp := range withBrand.Comparables {
		assert.Positive(t, comp.Price)
		assert.NotEmpty(t, comp.Title)
	}
}

func TestEstimate_OutreachMessage(t *testing.T) {
	est := Estimate(Input{
		Title:      "Vintage record player",
		Price:      100,
		Condition:  domain.ConditionGood,
		SellerName: "Sam",
	})

	assert.True(t, strings.HasPrefix(est.OutreachMessage, "Hi Sam"))
	assert.Contains(t, est.OutreachMessage, "$90")

	anonymous := Estimate(Input{
		Title:     "Vintage record player",
		Price:     100,
		Condition: domain.ConditionGood,
	})
	assert.True(t, strings.HasPrefix(anonymous.OutreachMessage, "Hi there"))
}

func TestEstimate_PickupOnlyNotShippable(t *testing.T) {
	est := Estimate(Input{
		Title:       "Weight bench",
		Description: "local pickup only, cash",
		Price:       60,
		Condition:   domain.ConditionGood,
		Category:    "sporting",
	})

	assert.False(t, est.Shippable)
}

func TestEstimate_NegotiableDetection(t *testing.T) {
	est := Estimate(Input{
		Title:     "Couch $200 OBO",
		Price:     200,
		Condition: domain.ConditionGood,
		Category:  "furniture",
	})

	assert.True(t, est.Negotiable)
	assert.Contains(t, []domain.ResaleDifficulty{domain.DifficultyMedium, domain.DifficultyHard}, est.ResaleDifficulty)
}

func TestEstimate_ScoreBounds(t *testing.T) {
	inputs := []Input{
		{Title: "a", Price: 1, Condition: domain.ConditionNew, Category: "collectibles", Brand: "Lego", Description: "sealed"},
		{Title: "broken as is cracked water damage no power", Price: 10000, Condition: domain.ConditionPoor},
		{Title: "plain item", Price: 50, Condition: domain.ConditionGood},
	}

	for _, in := range inputs {
		est := Estimate(in)
		assert.GreaterOrEqual(t, est.ValueScore, 0)
		assert.LessOrEqual(t, est.ValueScore, 100)
	}
}
