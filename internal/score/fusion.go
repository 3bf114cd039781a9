// Package score fuses classifier output, rule checks and retrieval evidence
// into bounded, explainable fraud scores.
package score

import (
	"fmt"
	"math"

	"github.com/ppiankov/claimguard/internal/model"
)

// Rule/ML fusion constants
const (
	DuplicateRuleScore  = 95.0
	FraudScoreThreshold = 75.0
)

// Combined fusion constants
const (
	MLWeight             = 0.6
	RAGWeight            = 0.3
	SimilarCasesBonus    = 10.0
	RiskFactorBonusEach  = 5.0
	CombinedThreshold    = 70.0
	MediumBandLowerBound = 40.0
)

// Explanations, in priority order
const (
	ExplanationDuplicate  = "Duplicate receipt detected: the same content hash was submitted by another user"
	ExplanationClassifier = "Classifier flagged the claim as likely fraudulent"
	ExplanationNormal     = "No fraud indicators detected"
)

// Fuser produces fraud assessments. It holds no state.
type Fuser struct{}

// NewFuser creates a new fuser
func NewFuser() *Fuser {
	return &Fuser{}
}

// FuseRuleML combines the classifier prediction with the duplicate rule.
// The final score is the max of both, so a strong signal is never diluted.
func (f *Fuser) FuseRuleML(pred model.Prediction, duplicate bool) model.FraudAssessment {
	probability := clamp(pred.Probability, 0, 1)
	mlScore := probability * 100

	ruleScore := 0.0
	if duplicate {
		ruleScore = DuplicateRuleScore
	}

	finalScore := clamp(math.Max(mlScore, ruleScore), 0, 100)
	isFraud := pred.PredictedLabel || duplicate || finalScore >= FraudScoreThreshold

	signals := []model.Signal{
		classifierSignal(pred, mlScore),
		duplicateSignal(duplicate, ruleScore),
		{
			Type:        model.SignalFinal,
			Severity:    severityFor(finalScore, FraudScoreThreshold),
			Description: fmt.Sprintf("Final score %.1f/100", finalScore),
			Data: map[string]interface{}{
				"ml_score":   mlScore,
				"rule_score": ruleScore,
				"final":      finalScore,
				"threshold":  FraudScoreThreshold,
				"formula":    "clamp(max(ml_score, rule_score), 0, 100)",
			},
		},
	}

	return model.FraudAssessment{
		MLScore:      mlScore,
		RuleScore:    ruleScore,
		FinalScore:   finalScore,
		IsFraudulent: isFraud,
		Explanation:  explain(pred, mlScore, duplicate),
		Duplicate:    duplicate,
		Signals:      signals,
	}
}

// FuseCombined weighs the ML score with retrieval evidence. mlScore is on the
// 0-100 scale and ragConfidence on 0-1; both are clamped first.
func (f *Fuser) FuseCombined(mlScore, ragConfidence float64, similarCases, distinctRiskFactors int) model.CombinedAssessment {
	mlScore = clamp(mlScore, 0, 100)
	ragConfidence = clamp(ragConfidence, 0, 1)

	casesBonus := 0.0
	if similarCases > 0 {
		casesBonus = SimilarCasesBonus
	}
	if distinctRiskFactors < 0 {
		distinctRiskFactors = 0
	}
	factorBonus := RiskFactorBonusEach * float64(distinctRiskFactors)

	combined := clamp(mlScore*MLWeight+ragConfidence*100*RAGWeight+casesBonus+factorBonus, 0, 100)

	return model.CombinedAssessment{
		MLScore:           mlScore,
		RAGConfidence:     ragConfidence,
		SimilarCasesBonus: casesBonus,
		RiskFactorBonus:   factorBonus,
		CombinedScore:     combined,
		IsFraudulent:      combined >= CombinedThreshold,
		RiskBand:          Band(combined),
		Signals: []model.Signal{
			{
				Type:        model.SignalRetrieval,
				Severity:    model.SeverityInfo,
				Description: fmt.Sprintf("Retrieval confidence %.2f", ragConfidence),
				Data: map[string]interface{}{
					"rag_confidence": ragConfidence,
					"contribution":   ragConfidence * 100 * RAGWeight,
					"formula":        "rag_confidence * 100 * 0.3",
				},
			},
			{
				Type:        model.SignalSimilarCases,
				Severity:    severityForCount(similarCases),
				Description: fmt.Sprintf("%d similar fraud case(s) retrieved", similarCases),
				Data: map[string]interface{}{
					"similar_cases": similarCases,
					"bonus":         casesBonus,
					"formula":       "10 if similar_cases >= 1 else 0",
				},
			},
			{
				Type:        model.SignalRiskFactors,
				Severity:    severityForCount(distinctRiskFactors),
				Description: fmt.Sprintf("%d distinct risk factor(s)", distinctRiskFactors),
				Data: map[string]interface{}{
					"risk_factors": distinctRiskFactors,
					"bonus":        factorBonus,
					"formula":      "5 * distinct_risk_factors",
				},
			},
			{
				Type:        model.SignalCombined,
				Severity:    severityFor(combined, CombinedThreshold),
				Description: fmt.Sprintf("Combined score %.1f/100 (%s risk)", combined, Band(combined)),
				Data: map[string]interface{}{
					"ml_score":  mlScore,
					"combined":  combined,
					"threshold": CombinedThreshold,
					"formula":   "clamp(ml*0.6 + rag*100*0.3 + cases_bonus + factor_bonus, 0, 100)",
				},
			},
		},
	}
}

// Band maps a combined score to its risk band
func Band(score float64) model.RiskBand {
	switch {
	case score >= CombinedThreshold:
		return model.RiskHigh
	case score >= MediumBandLowerBound:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

func explain(pred model.Prediction, mlScore float64, duplicate bool) string {
	switch {
	case duplicate:
		return ExplanationDuplicate
	case pred.PredictedLabel || mlScore >= FraudScoreThreshold:
		return fmt.Sprintf("%s (probability %.2f)", ExplanationClassifier, mlScore/100)
	default:
		return ExplanationNormal
	}
}

func classifierSignal(pred model.Prediction, mlScore float64) model.Signal {
	severity := model.SeverityInfo
	if pred.PredictedLabel {
		severity = model.SeverityCritical
	} else if mlScore >= FraudScoreThreshold/2 {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalClassifier,
		Severity:    severity,
		Description: fmt.Sprintf("Classifier probability %.2f", mlScore/100),
		Data: map[string]interface{}{
			"raw_probability": pred.Probability,
			"predicted_label": pred.PredictedLabel,
			"ml_score":        mlScore,
			"formula":         "clamp(probability, 0, 1) * 100",
		},
	}
}

func duplicateSignal(duplicate bool, ruleScore float64) model.Signal {
	if !duplicate {
		return model.Signal{
			Type:        model.SignalDuplicate,
			Severity:    model.SeverityInfo,
			Description: "No cross-user receipt reuse",
			Data:        map[string]interface{}{"rule_score": ruleScore},
		}
	}
	return model.Signal{
		Type:        model.SignalDuplicate,
		Severity:    model.SeverityCritical,
		Description: "Receipt content hash already submitted by another user",
		Data: map[string]interface{}{
			"rule_score": ruleScore,
			"formula":    "95 if duplicate else 0",
		},
	}
}

func severityFor(score, threshold float64) model.SignalSeverity {
	switch {
	case score >= threshold:
		return model.SeverityCritical
	case score >= MediumBandLowerBound:
		return model.SeverityWarning
	default:
		return model.SeverityInfo
	}
}

func severityForCount(n int) model.SignalSeverity {
	if n > 0 {
		return model.SeverityWarning
	}
	return model.SeverityInfo
}

// clamp bounds v to [lo, hi]; NaN becomes lo
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
