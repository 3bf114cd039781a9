package model

import (
	"strings"
	"time"
)

// Claim represents a submitted expense record under fraud evaluation
type Claim struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Merchant    string    `json:"merchant"`
	ServiceType string    `json:"service_type,omitempty"`
	Category    string    `json:"category,omitempty"`
	Location    string    `json:"location,omitempty"`
	Amount      float64   `json:"amount"`
	ServiceDate time.Time `json:"service_date"`
	SubmittedAt time.Time `json:"submitted_at"`
	Items       []string  `json:"items,omitempty"`
	IPAddress   string    `json:"ip_address,omitempty"`
	ContentHash string    `json:"content_hash,omitempty"` // Fingerprint over normalized receipt fields

	// Derived fraud fields, appended only after confirmation
	FraudConfirmed bool   `json:"fraud_confirmed"`
	FraudTemplate  string `json:"fraud_template,omitempty"`
}

// SameDaySubmission reports whether the claim was submitted on its service date
func (c Claim) SameDaySubmission() bool {
	if c.ServiceDate.IsZero() || c.SubmittedAt.IsZero() {
		return false
	}
	sy, sm, sd := c.ServiceDate.Date()
	ty, tm, td := c.SubmittedAt.Date()
	return sy == ty && sm == tm && sd == td
}

// RoundAmount reports whether the amount is a multiple of 25 or 50.
// Computed on integer cents so 100.00 and 150.00 match while 123.45 does not.
func (c Claim) RoundAmount() bool {
	if c.Amount <= 0 {
		return false
	}
	cents := int64(c.Amount*100 + 0.5)
	return cents%2500 == 0 || cents%5000 == 0
}

// NormalizedHash returns the content hash trimmed and lower-cased
func (c Claim) NormalizedHash() string {
	return NormalizeHash(c.ContentHash)
}

// NormalizeHash canonicalizes a content hash for comparison
func NormalizeHash(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}

// SameText compares two attribute values case-insensitively, ignoring
// surrounding whitespace. Empty values never match.
func SameText(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}
