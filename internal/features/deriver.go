// Package features derives the per-claim numeric feature vector from the
// claim and the claiming user's history.
package features

import (
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/claimguard/internal/model"
)

// Deriver computes ClaimFeatureVectors. It holds no state; every call works
// on the snapshots it is given.
type Deriver struct{}

// NewDeriver creates a new deriver
func NewDeriver() *Deriver {
	return &Deriver{}
}

// Derive builds the feature vector for claim. history is the user's prior
// claims and all is every claim in the store; the target is excluded from
// both by id. Derive never fails: missing data yields neutral values.
func (d *Deriver) Derive(claim model.Claim, history []model.Claim, all []model.Claim) model.ClaimFeatureVector {
	prior := excludeClaim(history, claim.ID)

	v := model.ClaimFeatureVector{
		Amount:                   claim.Amount,
		DaysSinceLastClaim:       daysSinceLastClaim(claim, prior),
		SubmissionDelayDays:      wholeDays(claim.ServiceDate, claim.SubmittedAt),
		VendorFrequency:          frequency(prior, func(c model.Claim) bool { return model.SameText(c.Merchant, claim.Merchant) }),
		CategoryFrequency:        frequency(prior, func(c model.Claim) bool { return model.SameText(c.Category, claim.Category) }),
		IPAddressChangeFrequency: ipChangeFrequency(prior),
		ItemCount:                float64(len(claim.Items)),
		DistinctItemsRatio:       distinctRatio(claim.Items),
	}

	v.AverageClaimAmountForUser = meanAmount(prior)
	if v.AverageClaimAmountForUser != 0 {
		v.AmountDeviationFromAverage = (claim.Amount - v.AverageClaimAmountForUser) / v.AverageClaimAmountForUser
	}

	if hash := claim.NormalizedHash(); hash != "" {
		v.ReceiptHashDuplicateCount = float64(countHash(excludeClaim(all, claim.ID), hash))
		v.ReceiptHashFrequencyForUser = frequency(prior, func(c model.Claim) bool { return c.NormalizedHash() == hash })
	}

	return v.Sanitized()
}

// daysSinceLastClaim returns whole days between the most recent prior
// submission and this one, or the no-history sentinel.
func daysSinceLastClaim(claim model.Claim, prior []model.Claim) float64 {
	var latest time.Time
	for _, c := range prior {
		if c.SubmittedAt.After(latest) {
			latest = c.SubmittedAt
		}
	}
	if latest.IsZero() {
		return model.NoPriorClaimDays
	}
	if claim.SubmittedAt.IsZero() {
		return 0
	}
	return wholeDays(latest, claim.SubmittedAt)
}

// wholeDays returns to-from truncated to whole days; 0 when either is unset.
// Negative values are kept: a submission before service signals backdating.
func wholeDays(from, to time.Time) float64 {
	if from.IsZero() || to.IsZero() {
		return 0
	}
	return float64(int64(to.Sub(from).Hours() / 24))
}

func frequency(claims []model.Claim, match func(model.Claim) bool) float64 {
	if len(claims) == 0 {
		return 0
	}
	n := 0
	for _, c := range claims {
		if match(c) {
			n++
		}
	}
	return float64(n) / float64(len(claims))
}

func meanAmount(claims []model.Claim) float64 {
	if len(claims) == 0 {
		return 0
	}
	var sum float64
	for _, c := range claims {
		sum += c.Amount
	}
	return sum / float64(len(claims))
}

// ipChangeFrequency counts address changes between consecutive claims in
// submission order, divided by the number of transitions.
func ipChangeFrequency(prior []model.Claim) float64 {
	if len(prior) <= 1 {
		return 0
	}

	ordered := make([]model.Claim, len(prior))
	copy(ordered, prior)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SubmittedAt.Equal(ordered[j].SubmittedAt) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].SubmittedAt.Before(ordered[j].SubmittedAt)
	})

	changes := 0
	for i := 1; i < len(ordered); i++ {
		if ordered[i].IPAddress != ordered[i-1].IPAddress {
			changes++
		}
	}
	return float64(changes) / float64(len(ordered)-1)
}

func distinctRatio(items []string) float64 {
	if len(items) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		seen[strings.ToLower(strings.TrimSpace(item))] = struct{}{}
	}
	return float64(len(seen)) / float64(len(items))
}

func countHash(claims []model.Claim, hash string) int {
	n := 0
	for _, c := range claims {
		if c.NormalizedHash() == hash {
			n++
		}
	}
	return n
}

func excludeClaim(claims []model.Claim, id string) []model.Claim {
	if id == "" {
		return claims
	}
	out := make([]model.Claim, 0, len(claims))
	for _, c := range claims {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}
