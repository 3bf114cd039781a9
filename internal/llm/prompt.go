package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/claimguard/internal/model"
)

const maxPromptCases = 5

// BuildPrompt constructs the structured narrative prompt for a claim
func BuildPrompt(claim model.Claim, cases []model.SearchResult, riskFactors []string) string {
	var b strings.Builder

	b.WriteString("Assess the following expense claim for fraud risk.\n\n")
	b.WriteString("Claim:\n")
	fmt.Fprintf(&b, "- ID: %s\n", claim.ID)
	fmt.Fprintf(&b, "- Merchant: %s\n", orNone(claim.Merchant))
	fmt.Fprintf(&b, "- Service type: %s\n", orNone(claim.ServiceType))
	fmt.Fprintf(&b, "- Category: %s\n", orNone(claim.Category))
	fmt.Fprintf(&b, "- Amount: $%.2f\n", claim.Amount)
	fmt.Fprintf(&b, "- Location: %s\n", orNone(claim.Location))
	fmt.Fprintf(&b, "- Service date: %s\n", formatDate(claim.ServiceDate))
	fmt.Fprintf(&b, "- Submitted: %s\n", formatDate(claim.SubmittedAt))
	if len(claim.Items) > 0 {
		fmt.Fprintf(&b, "- Items: %s\n", strings.Join(claim.Items, ", "))
	}

	b.WriteString("\nRisk factors:\n")
	if len(riskFactors) == 0 {
		b.WriteString("- (none identified)\n")
	}
	for _, f := range riskFactors {
		fmt.Fprintf(&b, "- %s\n", f)
	}

	b.WriteString("\nSimilar confirmed fraud cases:\n")
	if len(cases) == 0 {
		b.WriteString("- (no similar cases found)\n")
	}
	for i, c := range cases {
		if i >= maxPromptCases {
			fmt.Fprintf(&b, "- ... and %d more\n", len(cases)-maxPromptCases)
			break
		}
		fmt.Fprintf(&b, "- [%.2f] %s\n", c.Relevance, summarize(c.Content, 240))
	}

	b.WriteString("\nWrite a 3-4 sentence assessment for a claims reviewer. Reference only the facts above.")
	return b.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(unknown)"
	}
	return s
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "(unknown)"
	}
	return t.Format("2006-01-02")
}

func summarize(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
