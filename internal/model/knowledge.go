package model

import (
	"sort"
	"time"
)

// KnowledgeEntry is a write-once record derived from a confirmed-fraud claim
type KnowledgeEntry struct {
	ID            string    `json:"id"`
	ClaimID       string    `json:"claim_id"`
	UserID        string    `json:"user_id"`
	FraudTemplate string    `json:"fraud_template"`
	Merchant      string    `json:"merchant"`
	ServiceType   string    `json:"service_type,omitempty"`
	Amount        float64   `json:"amount"`
	Location      string    `json:"location,omitempty"`
	Items         []string  `json:"items,omitempty"`
	IPAddress     string    `json:"ip_address,omitempty"`
	RiskFactors   []string  `json:"risk_factors"` // Narrative built at index time
	ContentHash   string    `json:"content_hash,omitempty"`
	ServiceDate   time.Time `json:"service_date"`
	SubmittedAt   time.Time `json:"submitted_at"`
	Document      string    `json:"document"` // Flattened free text used for retrieval
	CreatedAt     time.Time `json:"created_at"`
}

// TagKey is one of the fixed metadata keys attached to indexed entries
type TagKey string

const (
	TagClaimID       TagKey = "claimId"
	TagFraudTemplate TagKey = "fraudTemplate"
	TagMerchant      TagKey = "merchant"
	TagServiceType   TagKey = "serviceType"
	TagAmount        TagKey = "amount"
	TagUserID        TagKey = "userId"
	TagLocation      TagKey = "location"
	TagIP            TagKey = "ip"
	TagReceiptHash   TagKey = "receiptHash"
)

// TagKeys lists every key a knowledge entry carries, in a stable order
var TagKeys = []TagKey{
	TagClaimID,
	TagFraudTemplate,
	TagMerchant,
	TagServiceType,
	TagAmount,
	TagUserID,
	TagLocation,
	TagIP,
	TagReceiptHash,
}

// Tags is the typed metadata bag for a knowledge entry
type Tags map[TagKey]string

// Get returns the value for key, or "" when absent
func (t Tags) Get(key TagKey) string {
	if t == nil {
		return ""
	}
	return t[key]
}

// Keys returns the keys present, sorted
func (t Tags) Keys() []TagKey {
	keys := make([]TagKey, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// StringMap converts the tags to a plain string map for transports
func (t Tags) StringMap() map[string]string {
	m := make(map[string]string, len(t))
	for k, v := range t {
		m[string(k)] = v
	}
	return m
}

// TagsFromMap keeps only the known keys of a loosely typed map
func TagsFromMap(m map[string]string) Tags {
	tags := make(Tags, len(TagKeys))
	for _, k := range TagKeys {
		if v, ok := m[string(k)]; ok {
			tags[k] = v
		}
	}
	return tags
}

// ResultSource identifies which retrieval path produced a result
type ResultSource string

const (
	SourceExternal      ResultSource = "external"
	SourceLocalFallback ResultSource = "local-fallback"
)

// SearchResult is one ranked similar case
type SearchResult struct {
	ID        string       `json:"id"`
	Content   string       `json:"content"`
	Relevance float64      `json:"relevance"` // In [0,1]
	Source    ResultSource `json:"source"`
	Metadata  Tags         `json:"metadata,omitempty"`
}

// SearchOptions bounds a similarity search
type SearchOptions struct {
	Limit        int     `json:"limit"`
	MinRelevance float64 `json:"min_relevance"`
}

// Citation is a semantic memory's native search hit
type Citation struct {
	DocumentID string      `json:"document_id"`
	Partitions []Partition `json:"partitions"`
	Tags       Tags        `json:"tags,omitempty"`
}

// Partition is one matching chunk of a cited document
type Partition struct {
	Text      string  `json:"text"`
	Relevance float64 `json:"relevance"`
}
