package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/claimguard/internal/model"
)

// Classifier predicts fraud probability from a feature vector
type Classifier interface {
	Predict(ctx context.Context, v model.ClaimFeatureVector) (model.Prediction, error)
}

// New builds the classifier selected by config
func New(cfg model.ClassifierConfig) (Classifier, error) {
	switch strings.ToLower(cfg.Kind) {
	case "", "logistic":
		if cfg.ModelPath == "" {
			return DefaultLogistic(), nil
		}
		return LoadLogistic(cfg.ModelPath)

	case "remote", "http":
		return NewRemote(cfg.Endpoint, cfg.Timeout)

	default:
		return nil, fmt.Errorf("unknown classifier kind: %s (supported: logistic, remote)", cfg.Kind)
	}
}
