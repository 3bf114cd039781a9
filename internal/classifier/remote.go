package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/claimguard/internal/model"
)

// Remote calls a model server over HTTP
type Remote struct {
	endpoint   string
	httpClient *http.Client
}

type predictRequest struct {
	Features map[string]float64 `json:"features"`
	Vector   []float64          `json:"vector"`
}

type predictResponse struct {
	Probability *float64 `json:"probability"`
	Label       bool     `json:"label"`
}

type predictError struct {
	Error string `json:"error"`
}

// NewRemote creates a client for the model server at endpoint
func NewRemote(endpoint string, timeout time.Duration) (*Remote, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("classifier endpoint is required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Remote{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Predict posts the feature vector to /predict
func (r *Remote) Predict(ctx context.Context, v model.ClaimFeatureVector) (model.Prediction, error) {
	body, err := json.Marshal(predictRequest{
		Features: v.Map(),
		Vector:   v.Values(),
	})
	if err != nil {
		return model.Prediction{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/predict", bytes.NewReader(body))
	if err != nil {
		return model.Prediction{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return model.Prediction{}, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return model.Prediction{}, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr predictError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return model.Prediction{}, fmt.Errorf("model server error (%d): %s", httpResp.StatusCode, apiErr.Error)
		}
		return model.Prediction{}, fmt.Errorf("model server error (%d): %s", httpResp.StatusCode, string(respBody))
	}

	var resp predictResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return model.Prediction{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Probability == nil {
		return model.Prediction{}, fmt.Errorf("model server response has no probability")
	}

	return model.Prediction{
		Probability:    *resp.Probability,
		PredictedLabel: resp.Label,
	}, nil
}
