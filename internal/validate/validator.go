package validate

import (
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/claimguard/internal/model"
)

// IssueKind classifies a malformed or missing claim field
type IssueKind string

const (
	IssueMissing IssueKind = "missing"
	IssueInvalid IssueKind = "invalid"
)

// Issue describes one input problem found on a claim. Issues are reported,
// never returned as errors: the affected feature degrades to a neutral value.
type Issue struct {
	Field  string    `json:"field"`
	Kind   IssueKind `json:"kind"`
	Detail string    `json:"detail"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s %s: %s", i.Field, i.Kind, i.Detail)
}

// Normalize returns a cleaned copy of the claim and the issues found on it
func Normalize(claim model.Claim) (model.Claim, []Issue) {
	var issues []Issue

	claim.ID = strings.TrimSpace(claim.ID)
	claim.UserID = strings.TrimSpace(claim.UserID)
	claim.Merchant = strings.TrimSpace(claim.Merchant)
	claim.ServiceType = strings.TrimSpace(claim.ServiceType)
	claim.Category = strings.TrimSpace(claim.Category)
	claim.Location = strings.TrimSpace(claim.Location)
	claim.IPAddress = strings.TrimSpace(claim.IPAddress)
	claim.ContentHash = strings.TrimSpace(claim.ContentHash)
	claim.FraudTemplate = strings.TrimSpace(claim.FraudTemplate)

	if claim.ID == "" {
		issues = append(issues, Issue{Field: "id", Kind: IssueMissing, Detail: "claim has no id"})
	}
	if claim.UserID == "" {
		issues = append(issues, Issue{Field: "user_id", Kind: IssueMissing, Detail: "history features default to zero"})
	}
	if claim.Merchant == "" {
		issues = append(issues, Issue{Field: "merchant", Kind: IssueMissing, Detail: "vendor frequency defaults to zero"})
	}

	switch {
	case math.IsNaN(claim.Amount) || math.IsInf(claim.Amount, 0):
		issues = append(issues, Issue{Field: "amount", Kind: IssueInvalid, Detail: "non-finite amount replaced with 0"})
		claim.Amount = 0
	case claim.Amount < 0:
		issues = append(issues, Issue{Field: "amount", Kind: IssueInvalid, Detail: fmt.Sprintf("negative amount %.2f replaced with 0", claim.Amount)})
		claim.Amount = 0
	}

	if claim.ServiceDate.IsZero() {
		issues = append(issues, Issue{Field: "service_date", Kind: IssueMissing, Detail: "submission delay defaults to zero"})
	}
	if claim.SubmittedAt.IsZero() {
		issues = append(issues, Issue{Field: "submitted_at", Kind: IssueMissing, Detail: "day gaps default to neutral values"})
	}
	if claim.ContentHash == "" {
		issues = append(issues, Issue{Field: "content_hash", Kind: IssueMissing, Detail: "duplicate detection skipped"})
	}

	items := make([]string, 0, len(claim.Items))
	for _, item := range claim.Items {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	claim.Items = items

	return claim, issues
}
