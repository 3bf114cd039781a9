package model

import "math"

// NoPriorClaimDays is the daysSinceLastClaim sentinel for a user without history
const NoPriorClaimDays = 9999

// ClaimFeatureVector is the fixed, ordered set of numeric features fed to a classifier
type ClaimFeatureVector struct {
	Amount                      float64 `json:"amount"`
	DaysSinceLastClaim          float64 `json:"days_since_last_claim"`
	SubmissionDelayDays         float64 `json:"submission_delay_days"`
	VendorFrequency             float64 `json:"vendor_frequency"`
	CategoryFrequency           float64 `json:"category_frequency"`
	AverageClaimAmountForUser   float64 `json:"average_claim_amount_for_user"`
	AmountDeviationFromAverage  float64 `json:"amount_deviation_from_average"`
	IPAddressChangeFrequency    float64 `json:"ip_address_change_frequency"`
	ItemCount                   float64 `json:"item_count"`
	DistinctItemsRatio          float64 `json:"distinct_items_ratio"`
	// Hashes are matched after trimming and lower-casing, so "ABC123" and
	// " abc123" count as the same receipt.
	ReceiptHashDuplicateCount   float64 `json:"receipt_hash_duplicate_count"`
	ReceiptHashFrequencyForUser float64 `json:"receipt_hash_frequency_for_user"`
}

// FeatureNames lists the vector fields in their fixed order
var FeatureNames = []string{
	"amount",
	"days_since_last_claim",
	"submission_delay_days",
	"vendor_frequency",
	"category_frequency",
	"average_claim_amount_for_user",
	"amount_deviation_from_average",
	"ip_address_change_frequency",
	"item_count",
	"distinct_items_ratio",
	"receipt_hash_duplicate_count",
	"receipt_hash_frequency_for_user",
}

// Values returns the features in FeatureNames order
func (v ClaimFeatureVector) Values() []float64 {
	return []float64{
		v.Amount,
		v.DaysSinceLastClaim,
		v.SubmissionDelayDays,
		v.VendorFrequency,
		v.CategoryFrequency,
		v.AverageClaimAmountForUser,
		v.AmountDeviationFromAverage,
		v.IPAddressChangeFrequency,
		v.ItemCount,
		v.DistinctItemsRatio,
		v.ReceiptHashDuplicateCount,
		v.ReceiptHashFrequencyForUser,
	}
}

// Map returns the features keyed by name
func (v ClaimFeatureVector) Map() map[string]float64 {
	values := v.Values()
	m := make(map[string]float64, len(values))
	for i, name := range FeatureNames {
		m[name] = values[i]
	}
	return m
}

// Sanitized replaces any NaN or infinite field with zero
func (v ClaimFeatureVector) Sanitized() ClaimFeatureVector {
	fields := []*float64{
		&v.Amount,
		&v.DaysSinceLastClaim,
		&v.SubmissionDelayDays,
		&v.VendorFrequency,
		&v.CategoryFrequency,
		&v.AverageClaimAmountForUser,
		&v.AmountDeviationFromAverage,
		&v.IPAddressChangeFrequency,
		&v.ItemCount,
		&v.DistinctItemsRatio,
		&v.ReceiptHashDuplicateCount,
		&v.ReceiptHashFrequencyForUser,
	}
	for _, f := range fields {
		if math.IsNaN(*f) || math.IsInf(*f, 0) {
			*f = 0
		}
	}
	return v
}

// Prediction is a classifier's output for one feature vector
type Prediction struct {
	Probability    float64 `json:"probability"`
	PredictedLabel bool    `json:"predicted_label"`
}
