package knowledge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ppiankov/claimguard/internal/model"
)

func TestRiskFactors_RoundAmount(t *testing.T) {
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	later := day.AddDate(0, 0, 3)

	assert.Equal(t, []string{FactorRoundAmount}, RiskFactors(model.Claim{Amount: 100, ServiceDate: day, SubmittedAt: later}, nil))
	assert.Equal(t, []string{FactorRoundAmount}, RiskFactors(model.Claim{Amount: 150, ServiceDate: day, SubmittedAt: later}, nil))
	assert.Empty(t, RiskFactors(model.Claim{Amount: 123.45, ServiceDate: day, SubmittedAt: later}, nil))
}

func TestRiskFactors_AllFactors(t *testing.T) {
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	claim := model.Claim{Merchant: "FitZone Gym", Amount: 250, ServiceDate: day, SubmittedAt: day}
	similar := []model.SearchResult{
		{ID: "a", Content: "Merchant: FitZone Gym.", Relevance: 0.85},
		{ID: "b", Content: "merchant: fitzone gym.", Relevance: 0.5},
		{ID: "c", Content: "Merchant: City Clinic.", Relevance: 0.4},
	}

	factors := RiskFactors(claim, similar)

	assert.Equal(t, []string{
		FactorRoundAmount,
		FactorSameDay,
		FactorHighSimilarity,
		"Merchant appears in 2 previous fraud cases",
	}, factors)
}

func TestRiskFactors_SingleMerchantMatchNotFlagged(t *testing.T) {
	claim := model.Claim{Merchant: "FitZone Gym", Amount: 12.34}
	similar := []model.SearchResult{{ID: "a", Content: "FitZone Gym", Relevance: 0.8}}

	assert.Empty(t, RiskFactors(claim, similar), "0.8 is not above the high-similarity threshold and one merchant hit is not enough")
}

func TestRecommendAction(t *testing.T) {
	assert.Equal(t, DefaultAction, RecommendAction(nil))
	assert.Equal(t, DefaultAction, RecommendAction([]string{"unknown factor"}))
	assert.Equal(t, actions[FactorSameDay], RecommendAction([]string{FactorSameDay}))
	assert.Equal(t,
		actions[FactorRoundAmount]+"; "+actions[factorMerchantPrefix],
		RecommendAction([]string{FactorRoundAmount, MerchantFactor(3), MerchantFactor(3)}),
	)
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 0.5, Confidence(nil))
	assert.Equal(t, 0.5, Confidence([]model.SearchResult{}))

	one := []model.SearchResult{{Relevance: 0.5}}
	assert.InDelta(t, 0.5*0.7+0.05, Confidence(one), 1e-9)

	four := []model.SearchResult{{Relevance: 1}, {Relevance: 1}, {Relevance: 1}, {Relevance: 1}}
	assert.InDelta(t, 0.90, Confidence(four), 1e-9)

	six := append(four, model.SearchResult{Relevance: 1}, model.SearchResult{Relevance: 1})
	assert.InDelta(t, 0.95, Confidence(six), 1e-9, "capped")
}

func TestDistinctCount(t *testing.T) {
	assert.Equal(t, 2, DistinctCount([]string{FactorSameDay, FactorSameDay, FactorRoundAmount}))
	assert.Zero(t, DistinctCount(nil))
}

func TestBuildQuery(t *testing.T) {
	claim := model.Claim{
		Merchant:    "FitZone Gym",
		ServiceType: "membership",
		Location:    " Austin ",
		Items:       []string{"monthly pass", ""},
		Amount:      250,
	}

	assert.Equal(t, "FitZone Gym membership Austin monthly pass 250.00", BuildQuery(claim))
	assert.Empty(t, BuildQuery(model.Claim{}))
}
