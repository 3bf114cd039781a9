package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/claimguard/internal/logging"
	"github.com/ppiankov/claimguard/internal/metrics"
	"github.com/ppiankov/claimguard/internal/model"
	"github.com/ppiankov/claimguard/internal/resilience"
)

// Retries is the number of extra attempts after a failed generation
const Retries = 1

var errEmptyNarrative = errors.New("generator returned empty narrative")

// Narrator produces the analysis narrative. It never fails: when the
// provider is missing or keeps erroring it falls back to a template built
// from the risk factors alone.
type Narrator struct {
	provider Provider
	guard    *resilience.Guard
	logger   *zap.Logger
	retries  int
}

// NarratorOption configures a Narrator
type NarratorOption func(*Narrator)

// WithNarratorGuard bounds provider calls with a timeout and circuit breaker
func WithNarratorGuard(g *resilience.Guard) NarratorOption {
	return func(n *Narrator) { n.guard = g }
}

// WithNarratorLogger sets the logger
func WithNarratorLogger(l *zap.Logger) NarratorOption {
	return func(n *Narrator) { n.logger = logging.OrNop(l) }
}

// NewNarrator creates a narrator. provider may be nil. Without
// WithNarratorGuard provider calls get the default narrative timeout.
func NewNarrator(provider Provider, opts ...NarratorOption) *Narrator {
	n := &Narrator{
		provider: provider,
		logger:   zap.NewNop(),
		retries:  Retries,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.provider != nil && n.guard == nil {
		n.guard = resilience.NewGuard(resilience.Settings{
			Name:    model.DependencyNarrative,
			Timeout: time.Duration(model.DefaultConfig().LLM.Timeout) * time.Second,
		}, nil)
	}
	return n
}

// Enabled reports whether a provider is configured
func (n *Narrator) Enabled() bool {
	return n != nil && n.provider != nil
}

// Generate returns the narrative for a claim and where it came from
func (n *Narrator) Generate(ctx context.Context, claim model.Claim, cases []model.SearchResult, riskFactors []string) (string, model.NarrativeSource) {
	if !n.Enabled() {
		return n.template(riskFactors)
	}

	prompt := BuildPrompt(claim, cases, riskFactors)

	var lastErr error
	for attempt := 0; attempt <= n.retries; attempt++ {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		text, err := resilience.Call(ctx, n.guard, func(ctx context.Context) (string, error) {
			out, err := n.provider.Complete(ctx, prompt)
			if err != nil {
				return "", err
			}
			if strings.TrimSpace(out) == "" {
				return "", errEmptyNarrative
			}
			return out, nil
		})
		if err == nil {
			metrics.NarrativeTotal.WithLabelValues(string(model.NarrativeGenerated)).Inc()
			return strings.TrimSpace(text), model.NarrativeGenerated
		}

		lastErr = err
		n.logger.Warn("narrative generation failed",
			zap.String("provider", n.provider.Name()),
			zap.String("claim_id", claim.ID),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		if resilience.IsOpen(err) {
			break
		}
	}

	n.logger.Info("using template narrative",
		zap.String("claim_id", claim.ID),
		zap.NamedError("cause", lastErr))
	return n.template(riskFactors)
}

func (n *Narrator) template(riskFactors []string) (string, model.NarrativeSource) {
	metrics.NarrativeTotal.WithLabelValues(string(model.NarrativeTemplate)).Inc()
	return TemplateNarrative(riskFactors), model.NarrativeTemplate
}

// TemplateNarrative explains an assessment from its risk factors only
func TemplateNarrative(riskFactors []string) string {
	if len(riskFactors) == 0 {
		return "Automated assessment (narrative generator unavailable). No specific risk factors identified. Claim appears consistent with normal expense patterns."
	}
	return fmt.Sprintf("Automated assessment (narrative generator unavailable). Risk factors identified: %s.", strings.Join(riskFactors, "; "))
}
