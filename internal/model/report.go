package model

import "time"

// FraudAssessment is the rule/ML fusion result for one claim.
// Recomputed per request and never cached.
type FraudAssessment struct {
	ClaimID      string             `json:"claim_id"`
	MLScore      float64            `json:"ml_score"`    // Classifier probability x 100
	RuleScore    float64            `json:"rule_score"`  // 95 on cross-user duplicate, else 0
	FinalScore   float64            `json:"final_score"` // max(ml, rule) clamped to [0,100]
	IsFraudulent bool               `json:"is_fraudulent"`
	Explanation  string             `json:"explanation"`
	Duplicate    bool               `json:"duplicate"`
	Features     ClaimFeatureVector `json:"features"`
	Signals      []Signal           `json:"signals"`
	EvaluatedAt  time.Time          `json:"evaluated_at"`
}

// CombinedAssessment is the retrieval-aware weighted fusion result
type CombinedAssessment struct {
	MLScore           float64  `json:"ml_score"`
	RAGConfidence     float64  `json:"rag_confidence"`
	SimilarCasesBonus float64  `json:"similar_cases_bonus"`
	RiskFactorBonus   float64  `json:"risk_factor_bonus"`
	CombinedScore     float64  `json:"combined_score"`
	IsFraudulent      bool     `json:"is_fraudulent"`
	RiskBand          RiskBand `json:"risk_band"`
	Signals           []Signal `json:"signals"`
}

// RiskBand buckets a combined score
type RiskBand string

const (
	RiskLow    RiskBand = "low"
	RiskMedium RiskBand = "medium"
	RiskHigh   RiskBand = "high"
)

// AnalysisResult is the consolidated output of AnalyzeClaim
type AnalysisResult struct {
	ClaimID           string             `json:"claim_id"`
	Query             string             `json:"query"`
	Narrative         string             `json:"narrative"`
	NarrativeSource   NarrativeSource    `json:"narrative_source"`
	SimilarCases      []SearchResult     `json:"similar_cases"`
	RiskFactors       []string           `json:"risk_factors"`
	RecommendedAction string             `json:"recommended_action"`
	Confidence        float64            `json:"confidence"`
	Assessment        FraudAssessment    `json:"assessment"`
	Combined          CombinedAssessment `json:"combined"`
	Timestamp         time.Time          `json:"timestamp"`
}

// NarrativeSource records whether the narrative came from the generator or the template
type NarrativeSource string

const (
	NarrativeGenerated NarrativeSource = "generator"
	NarrativeTemplate  NarrativeSource = "template"
)

// Signal represents a scoring contribution with transparent data
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"` // Formula and inputs
}

// SignalType classifies the type of scoring signal
type SignalType string

const (
	SignalClassifier   SignalType = "classifier"
	SignalDuplicate    SignalType = "duplicate_receipt"
	SignalFinal        SignalType = "final_score"
	SignalRetrieval    SignalType = "retrieval_confidence"
	SignalSimilarCases SignalType = "similar_cases"
	SignalRiskFactors  SignalType = "risk_factors"
	SignalCombined     SignalType = "combined_score"
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)
