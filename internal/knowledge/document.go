package knowledge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ppiankov/claimguard/internal/model"
)

const dateLayout = "2006-01-02"

// Index-time risk narrative lines
const (
	NarrativeRoundAmount   = "Round amount"
	NarrativeDuplicateHash = "Duplicate receipt hash shared with another user"
	NarrativeSameDay       = "Same-day submission"
)

// BuildNarrative lists the risk conditions present on a confirmed-fraud claim
func BuildNarrative(claim model.Claim, duplicate bool) []string {
	narrative := []string{}
	if claim.RoundAmount() {
		narrative = append(narrative, fmt.Sprintf("%s (%s)", NarrativeRoundAmount, formatAmount(claim.Amount)))
	}
	if duplicate {
		narrative = append(narrative, NarrativeDuplicateHash)
	}
	if claim.SameDaySubmission() {
		narrative = append(narrative, NarrativeSameDay)
	}
	return narrative
}

// BuildDocument flattens an entry into the free text used for retrieval
func BuildDocument(entry model.KnowledgeEntry) string {
	var b strings.Builder

	b.WriteString("Confirmed fraud case.")
	writeField(&b, "Template", entry.FraudTemplate)
	writeField(&b, "Merchant", entry.Merchant)
	writeField(&b, "Service type", entry.ServiceType)
	writeField(&b, "Amount", formatAmount(entry.Amount))
	writeField(&b, "Location", entry.Location)
	writeField(&b, "Items", strings.Join(entry.Items, ", "))
	if !entry.ServiceDate.IsZero() {
		writeField(&b, "Service date", entry.ServiceDate.Format(dateLayout))
	}
	if !entry.SubmittedAt.IsZero() {
		writeField(&b, "Submitted", entry.SubmittedAt.Format(dateLayout))
	}
	writeField(&b, "Risk factors", strings.Join(entry.RiskFactors, "; "))
	writeField(&b, "IP", entry.IPAddress)
	writeField(&b, "Receipt hash", entry.ContentHash)

	return b.String()
}

// BuildTags returns the fixed tag set forwarded with an entry
func BuildTags(entry model.KnowledgeEntry) model.Tags {
	return model.Tags{
		model.TagClaimID:       entry.ClaimID,
		model.TagFraudTemplate: entry.FraudTemplate,
		model.TagMerchant:      entry.Merchant,
		model.TagServiceType:   entry.ServiceType,
		model.TagAmount:        strconv.FormatFloat(entry.Amount, 'f', 2, 64),
		model.TagUserID:        entry.UserID,
		model.TagLocation:      entry.Location,
		model.TagIP:            entry.IPAddress,
		model.TagReceiptHash:   entry.ContentHash,
	}
}

// BuildQuery turns a claim into similarity-search text
func BuildQuery(claim model.Claim) string {
	parts := []string{
		claim.Merchant,
		claim.ServiceType,
		claim.Category,
		claim.Location,
	}
	parts = append(parts, claim.Items...)
	if claim.Amount > 0 {
		parts = append(parts, strconv.FormatFloat(claim.Amount, 'f', 2, 64))
	}

	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

func writeField(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, " %s: %s.", label, value)
}

func formatAmount(amount float64) string {
	return "$" + strconv.FormatFloat(amount, 'f', 2, 64)
}
