package score

import (
	"math"
	"strings"
	"testing"

	"github.com/ppiankov/claimguard/internal/model"
)

func TestFuseRuleML(t *testing.T) {
	tests := []struct {
		name        string
		pred        model.Prediction
		duplicate   bool
		wantML      float64
		wantRule    float64
		wantFinal   float64
		wantFraud   bool
		explanation string
	}{
		{
			name:        "normal claim",
			pred:        model.Prediction{Probability: 0.12},
			wantML:      12,
			wantFinal:   12,
			explanation: ExplanationNormal,
		},
		{
			name:        "duplicate dominates weak classifier",
			pred:        model.Prediction{Probability: 0.05},
			duplicate:   true,
			wantML:      5,
			wantRule:    95,
			wantFinal:   95,
			wantFraud:   true,
			explanation: ExplanationDuplicate,
		},
		{
			name:        "duplicate explanation wins over classifier label",
			pred:        model.Prediction{Probability: 0.99, PredictedLabel: true},
			duplicate:   true,
			wantML:      99,
			wantRule:    95,
			wantFinal:   99,
			wantFraud:   true,
			explanation: ExplanationDuplicate,
		},
		{
			name:        "classifier label alone",
			pred:        model.Prediction{Probability: 0.4, PredictedLabel: true},
			wantML:      40,
			wantFinal:   40,
			wantFraud:   true,
			explanation: ExplanationClassifier,
		},
		{
			name:        "score threshold without label",
			pred:        model.Prediction{Probability: 0.75},
			wantML:      75,
			wantFinal:   75,
			wantFraud:   true,
			explanation: ExplanationClassifier,
		},
		{
			name:        "probability above one is clamped",
			pred:        model.Prediction{Probability: 3.5},
			wantML:      100,
			wantFinal:   100,
			wantFraud:   true,
			explanation: ExplanationClassifier,
		},
		{
			name:        "negative probability is clamped",
			pred:        model.Prediction{Probability: -2},
			explanation: ExplanationNormal,
		},
	}

	f := NewFuser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.FuseRuleML(tt.pred, tt.duplicate)

			if math.Abs(got.MLScore-tt.wantML) > 1e-9 {
				t.Errorf("MLScore = %v, want %v", got.MLScore, tt.wantML)
			}
			if got.RuleScore != tt.wantRule {
				t.Errorf("RuleScore = %v, want %v", got.RuleScore, tt.wantRule)
			}
			if math.Abs(got.FinalScore-tt.wantFinal) > 1e-9 {
				t.Errorf("FinalScore = %v, want %v", got.FinalScore, tt.wantFinal)
			}
			if got.IsFraudulent != tt.wantFraud {
				t.Errorf("IsFraudulent = %v, want %v", got.IsFraudulent, tt.wantFraud)
			}
			if !strings.HasPrefix(got.Explanation, tt.explanation) {
				t.Errorf("Explanation = %q, want prefix %q", got.Explanation, tt.explanation)
			}
			if len(got.Signals) != 3 {
				t.Errorf("expected 3 signals, got %d", len(got.Signals))
			}
		})
	}
}

func TestFuseRuleML_NaNProbability(t *testing.T) {
	got := NewFuser().FuseRuleML(model.Prediction{Probability: math.NaN()}, false)

	if got.FinalScore != 0 {
		t.Errorf("expected NaN probability to score 0, got %v", got.FinalScore)
	}
}

func TestFuseRuleML_BoundedForAllInputs(t *testing.T) {
	f := NewFuser()
	for _, p := range []float64{-1e9, -1, 0, 0.5, 1, 1.0001, 1e9, math.Inf(1), math.Inf(-1)} {
		for _, dup := range []bool{false, true} {
			got := f.FuseRuleML(model.Prediction{Probability: p}, dup)
			if got.FinalScore < 0 || got.FinalScore > 100 {
				t.Errorf("probability %v duplicate %v: final score %v out of range", p, dup, got.FinalScore)
			}
		}
	}
}

func TestFuseCombined(t *testing.T) {
	tests := []struct {
		name      string
		ml        float64
		rag       float64
		cases     int
		factors   int
		wantScore float64
		wantFraud bool
		wantBand  model.RiskBand
	}{
		{"no evidence", 20, 0.5, 0, 0, 27, false, model.RiskLow},
		{"medium", 40, 0.5, 1, 1, 24 + 15 + 10 + 5, false, model.RiskMedium},
		{"high", 80, 0.9, 3, 2, 48 + 27 + 10 + 10, true, model.RiskHigh},
		{"clamped at 100", 100, 1, 5, 4, 100, true, model.RiskHigh},
		{"out of range inputs", -50, -3, 0, -2, 0, false, model.RiskLow},
		{"exactly threshold", 50, 0, 1, 6, 30 + 10 + 30, true, model.RiskHigh},
	}

	f := NewFuser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.FuseCombined(tt.ml, tt.rag, tt.cases, tt.factors)

			if math.Abs(got.CombinedScore-tt.wantScore) > 1e-9 {
				t.Errorf("CombinedScore = %v, want %v", got.CombinedScore, tt.wantScore)
			}
			if got.IsFraudulent != tt.wantFraud {
				t.Errorf("IsFraudulent = %v, want %v", got.IsFraudulent, tt.wantFraud)
			}
			if got.RiskBand != tt.wantBand {
				t.Errorf("RiskBand = %v, want %v", got.RiskBand, tt.wantBand)
			}
			if got.CombinedScore < 0 || got.CombinedScore > 100 {
				t.Errorf("combined score out of range: %v", got.CombinedScore)
			}
		})
	}
}

func TestBand(t *testing.T) {
	cases := map[float64]model.RiskBand{
		0:     model.RiskLow,
		39.99: model.RiskLow,
		40:    model.RiskMedium,
		69.99: model.RiskMedium,
		70:    model.RiskHigh,
		100:   model.RiskHigh,
	}
	for score, want := range cases {
		if got := Band(score); got != want {
			t.Errorf("Band(%v) = %v, want %v", score, got, want)
		}
	}
}
