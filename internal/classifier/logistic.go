// Package classifier provides fraud classifiers behind a narrow
// Predict(features) interface.
package classifier

import (
	"context"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/claimguard/internal/model"
)

// Logistic scores a feature vector with a fixed logistic regression
type Logistic struct {
	Bias      float64            `yaml:"bias"`
	Threshold float64            `yaml:"threshold"`
	Weights   map[string]float64 `yaml:"weights"`
}

// DefaultLogistic returns built-in weights, used when no model file is configured
func DefaultLogistic() *Logistic {
	return &Logistic{
		Bias:      -4.0,
		Threshold: 0.5,
		Weights: map[string]float64{
			"amount":                          0.002,
			"submission_delay_days":           0.02,
			"vendor_frequency":                -0.3,
			"amount_deviation_from_average":   0.8,
			"ip_address_change_frequency":     1.2,
			"distinct_items_ratio":            -0.5,
			"receipt_hash_duplicate_count":    2.5,
			"receipt_hash_frequency_for_user": 1.0,
		},
	}
}

// LoadLogistic reads weights from a YAML file
func LoadLogistic(path string) (*Logistic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read classifier model: %w", err)
	}

	var l Logistic
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse classifier model: %w", err)
	}
	if err := l.validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

func (l *Logistic) validate() error {
	known := make(map[string]bool, len(model.FeatureNames))
	for _, name := range model.FeatureNames {
		known[name] = true
	}
	for name := range l.Weights {
		if !known[name] {
			return fmt.Errorf("classifier model: unknown feature %q", name)
		}
	}
	if l.Threshold <= 0 || l.Threshold >= 1 {
		l.Threshold = 0.5
	}
	return nil
}

// Predict applies the model. It never blocks and never fails.
func (l *Logistic) Predict(ctx context.Context, v model.ClaimFeatureVector) (model.Prediction, error) {
	z := l.Bias
	values := v.Values()
	for i, name := range model.FeatureNames {
		z += l.Weights[name] * values[i]
	}

	p := 1 / (1 + math.Exp(-z))
	if math.IsNaN(p) {
		p = 0
	}
	return model.Prediction{
		Probability:    p,
		PredictedLabel: p >= l.Threshold,
	}, nil
}
