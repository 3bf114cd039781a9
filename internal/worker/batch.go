package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/claimguard/internal/model"
)

// Evaluator scores a single claim
type Evaluator interface {
	EvaluateClaim(ctx context.Context, claim model.Claim) (model.FraudAssessment, error)
}

// EvaluationJob evaluates one claim of a batch
type EvaluationJob struct {
	Index     int
	Claim     model.Claim
	Evaluator Evaluator
}

// Execute executes the evaluation job
func (j *EvaluationJob) Execute(ctx context.Context) Result {
	assessment, err := j.Evaluator.EvaluateClaim(ctx, j.Claim)
	if err != nil {
		return &EvaluationResult{
			Index:   j.Index,
			ClaimID: j.Claim.ID,
			Error:   err,
		}
	}
	return &EvaluationResult{
		Index:      j.Index,
		ClaimID:    j.Claim.ID,
		Assessment: &assessment,
	}
}

// EvaluationResult is the outcome for one claim of a batch
type EvaluationResult struct {
	Index      int                    `json:"-"`
	ClaimID    string                 `json:"claim_id"`
	Assessment *model.FraudAssessment `json:"assessment,omitempty"`
	Error      error                  `json:"-"`
}

// GetError returns the error from the evaluation
func (r *EvaluationResult) GetError() error {
	return r.Error
}

// MarshalJSON renders the error as a string
func (r *EvaluationResult) MarshalJSON() ([]byte, error) {
	type plain EvaluationResult
	out := struct {
		*plain
		Error string `json:"error,omitempty"`
	}{plain: (*plain)(r)}
	if r.Error != nil {
		out.Error = r.Error.Error()
	}
	return json.Marshal(out)
}

// BatchEvaluator evaluates many claims concurrently
type BatchEvaluator struct {
	evaluator   Evaluator
	concurrency int
}

// NewBatchEvaluator creates a new batch evaluator
func NewBatchEvaluator(evaluator Evaluator, concurrency int) *BatchEvaluator {
	return &BatchEvaluator{
		evaluator:   evaluator,
		concurrency: concurrency,
	}
}

// EvaluateClaims evaluates claims concurrently and returns one result per
// claim, in input order. Claims that never ran carry the context error.
func (b *BatchEvaluator) EvaluateClaims(ctx context.Context, claims []model.Claim) []*EvaluationResult {
	if len(claims) == 0 {
		return []*EvaluationResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, claim := range claims {
		job := &EvaluationJob{
			Index:     i,
			Claim:     claim,
			Evaluator: b.evaluator,
		}
		if !pool.Submit(job) {
			break
		}
	}

	results := pool.Wait()

	ordered := make([]*EvaluationResult, len(claims))
	for _, r := range results {
		res := r.(*EvaluationResult)
		ordered[res.Index] = res
	}
	for i, res := range ordered {
		if res != nil {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		ordered[i] = &EvaluationResult{Index: i, ClaimID: claims[i].ID, Error: err}
	}

	return ordered
}

// EvaluateFile reads claims from a file and evaluates them concurrently
func (b *BatchEvaluator) EvaluateFile(ctx context.Context, filePath string) ([]*EvaluationResult, error) {
	claims, err := ReadClaimsFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}

	return b.EvaluateClaims(ctx, claims), nil
}

// ReadClaimsFile reads claims from a JSON array file or a JSON-lines file
func ReadClaimsFile(filePath string) ([]model.Claim, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return ParseClaims(data)
}

// ParseClaims decodes a JSON array, a single JSON object or JSON lines.
// In JSON lines empty lines and # comments are skipped. Repeated claim
// ids keep their first occurrence.
func ParseClaims(data []byte) ([]model.Claim, error) {
	var claims []model.Claim
	trimmed := bytes.TrimSpace(data)

	switch {
	case bytes.HasPrefix(trimmed, []byte("[")):
		if err := json.Unmarshal(trimmed, &claims); err != nil {
			return nil, fmt.Errorf("parse claims array: %w", err)
		}
	default:
		scanner := bufio.NewScanner(bytes.NewReader(trimmed))
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := strings.TrimSpace(scanner.Text())

			// Skip empty lines and comments
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			var c model.Claim
			if err := json.Unmarshal([]byte(line), &c); err != nil {
				// a pretty-printed single object spans several lines
				if lineNo == 1 {
					if jsonErr := json.Unmarshal(trimmed, &c); jsonErr == nil {
						return []model.Claim{c}, nil
					}
				}
				return nil, fmt.Errorf("parse line %d: %w", lineNo, err)
			}
			claims = append(claims, c)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("scan input: %w", err)
		}
	}

	return dedupeClaims(claims), nil
}

func dedupeClaims(claims []model.Claim) []model.Claim {
	out := make([]model.Claim, 0, len(claims))
	seen := make(map[string]bool, len(claims))
	for _, c := range claims {
		if c.ID != "" && seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}
