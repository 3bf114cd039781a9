package knowledge

import (
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/claimguard/internal/model"
)

// Risk factor labels
const (
	FactorRoundAmount    = "Round amount pattern"
	FactorSameDay        = "Same-day submission"
	FactorHighSimilarity = "High similarity to known fraud cases"
	factorMerchantPrefix = "Merchant appears in"
)

// DefaultAction is recommended when no risk factor fires
const DefaultAction = "Standard verification process"

const (
	highSimilarityThreshold = 0.8
	emptyConfidence         = 0.5
	maxConfidence           = 0.95
)

var actions = map[string]string{
	FactorRoundAmount:    "Request itemized receipt and confirm the amount with the merchant",
	FactorSameDay:        "Verify the service date against provider records",
	FactorHighSimilarity: "Escalate to the fraud investigation team for manual review",
	factorMerchantPrefix: "Review recent claims submitted for this merchant",
}

// MerchantFactor formats the repeated-merchant risk factor
func MerchantFactor(n int) string {
	return fmt.Sprintf("%s %d previous fraud cases", factorMerchantPrefix, n)
}

// RiskFactors labels the conditions present on a claim given its similar cases
func RiskFactors(claim model.Claim, similar []model.SearchResult) []string {
	factors := []string{}

	if claim.RoundAmount() {
		factors = append(factors, FactorRoundAmount)
	}
	if claim.SameDaySubmission() {
		factors = append(factors, FactorSameDay)
	}

	for _, res := range similar {
		if res.Relevance > highSimilarityThreshold {
			factors = append(factors, FactorHighSimilarity)
			break
		}
	}

	if merchant := strings.ToLower(strings.TrimSpace(claim.Merchant)); merchant != "" {
		n := 0
		for _, res := range similar {
			if strings.Contains(strings.ToLower(res.Content), merchant) {
				n++
			}
		}
		if n > 1 {
			factors = append(factors, MerchantFactor(n))
		}
	}

	return factors
}

// RecommendAction maps risk factors to one action text
func RecommendAction(factors []string) string {
	var out []string
	seen := make(map[string]bool)
	for _, f := range factors {
		key := f
		if strings.HasPrefix(f, factorMerchantPrefix) {
			key = factorMerchantPrefix
		}
		action, ok := actions[key]
		if !ok || seen[action] {
			continue
		}
		seen[action] = true
		out = append(out, action)
	}

	if len(out) == 0 {
		return DefaultAction
	}
	return strings.Join(out, "; ")
}

// Confidence scores retrieval evidence. With no cases it is exactly 0.5:
// the absence of a match is not evidence of innocence.
func Confidence(similar []model.SearchResult) float64 {
	if len(similar) == 0 {
		return emptyConfidence
	}

	var sum float64
	for _, res := range similar {
		sum += res.Relevance
	}
	mean := sum / float64(len(similar))

	return math.Max(0, math.Min(mean*0.7+float64(len(similar))*0.05, maxConfidence))
}

// DistinctCount counts distinct factor labels
func DistinctCount(factors []string) int {
	seen := make(map[string]struct{}, len(factors))
	for _, f := range factors {
		seen[f] = struct{}{}
	}
	return len(seen)
}
