package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ppiankov/claimguard/internal/model"
)

var base = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return base.AddDate(0, 0, offset)
}

func TestDerive_EmptyHistory(t *testing.T) {
	claim := model.Claim{
		ID:          "c-1",
		UserID:      "u-1",
		Merchant:    "FitZone Gym",
		Amount:      250,
		ServiceDate: day(0),
		SubmittedAt: day(0),
	}

	v := NewDeriver().Derive(claim, nil, nil)

	assert.Equal(t, float64(model.NoPriorClaimDays), v.DaysSinceLastClaim)
	assert.Zero(t, v.VendorFrequency)
	assert.Zero(t, v.CategoryFrequency)
	assert.Zero(t, v.AverageClaimAmountForUser)
	assert.Zero(t, v.AmountDeviationFromAverage)
	assert.Zero(t, v.IPAddressChangeFrequency)
	assert.Zero(t, v.DistinctItemsRatio)
	assert.Equal(t, 250.0, v.Amount)
}

func TestDerive_WithHistory(t *testing.T) {
	history := []model.Claim{
		{ID: "h-1", UserID: "u-1", Merchant: "FitZone Gym", Category: "fitness", Amount: 100, SubmittedAt: day(-20), IPAddress: "10.0.0.1", ContentHash: "zzz"},
		{ID: "h-2", UserID: "u-1", Merchant: "City Clinic", Category: "medical", Amount: 300, SubmittedAt: day(-10), IPAddress: "10.0.0.2"},
		{ID: "h-3", UserID: "u-1", Merchant: "fitzone gym", Category: "Fitness", Amount: 200, SubmittedAt: day(-3), IPAddress: "10.0.0.2", ContentHash: "ABC123"},
	}
	claim := model.Claim{
		ID:          "c-1",
		UserID:      "u-1",
		Merchant:    "FitZone Gym",
		Category:    "fitness",
		Amount:      400,
		ServiceDate: day(-5),
		SubmittedAt: day(0),
		Items:       []string{"Towel", "towel", "Locker"},
		ContentHash: "abc123",
	}
	all := append([]model.Claim{
		{ID: "o-1", UserID: "u-2", ContentHash: "ABC123"},
		claim,
	}, history...)

	v := NewDeriver().Derive(claim, history, all)

	assert.Equal(t, 3.0, v.DaysSinceLastClaim)
	assert.Equal(t, 5.0, v.SubmissionDelayDays)
	assert.InDelta(t, 2.0/3.0, v.VendorFrequency, 1e-9)
	assert.InDelta(t, 2.0/3.0, v.CategoryFrequency, 1e-9)
	assert.Equal(t, 200.0, v.AverageClaimAmountForUser)
	assert.Equal(t, 1.0, v.AmountDeviationFromAverage)
	assert.Equal(t, 0.5, v.IPAddressChangeFrequency)
	assert.Equal(t, 3.0, v.ItemCount)
	assert.InDelta(t, 2.0/3.0, v.DistinctItemsRatio, 1e-9)
	assert.Equal(t, 2.0, v.ReceiptHashDuplicateCount, "self excluded by id")
	assert.InDelta(t, 1.0/3.0, v.ReceiptHashFrequencyForUser, 1e-9)
}

func TestDerive_TargetInHistoryIsExcluded(t *testing.T) {
	claim := model.Claim{ID: "c-1", UserID: "u-1", Amount: 50, SubmittedAt: day(0)}

	v := NewDeriver().Derive(claim, []model.Claim{claim}, []model.Claim{claim})

	assert.Equal(t, float64(model.NoPriorClaimDays), v.DaysSinceLastClaim)
	assert.Zero(t, v.AverageClaimAmountForUser)
}

func TestDerive_NegativeSubmissionDelay(t *testing.T) {
	claim := model.Claim{ID: "c-1", ServiceDate: day(3), SubmittedAt: day(0)}

	v := NewDeriver().Derive(claim, nil, nil)

	assert.Equal(t, -3.0, v.SubmissionDelayDays)
}

func TestDerive_ZeroMeanHasNoDeviation(t *testing.T) {
	history := []model.Claim{{ID: "h-1", Amount: 0, SubmittedAt: day(-1)}}
	claim := model.Claim{ID: "c-1", Amount: 80, SubmittedAt: day(0)}

	v := NewDeriver().Derive(claim, history, nil)

	assert.Zero(t, v.AmountDeviationFromAverage)
}

func TestDerive_EmptyHashSkipsHashFeatures(t *testing.T) {
	claim := model.Claim{ID: "c-1"}
	all := []model.Claim{{ID: "o-1"}, {ID: "o-2"}}

	v := NewDeriver().Derive(claim, all, all)

	assert.Zero(t, v.ReceiptHashDuplicateCount)
	assert.Zero(t, v.ReceiptHashFrequencyForUser)
}

func TestDerive_AlwaysFinite(t *testing.T) {
	claim := model.Claim{ID: "c-1", Amount: math.MaxFloat64}
	history := []model.Claim{{ID: "h-1", Amount: -math.MaxFloat64}, {ID: "h-2", Amount: -math.MaxFloat64}}

	v := NewDeriver().Derive(claim, history, nil)

	for i, value := range v.Values() {
		assert.False(t, math.IsNaN(value) || math.IsInf(value, 0), model.FeatureNames[i])
	}
}
