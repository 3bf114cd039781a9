// Package pipeline orchestrates claim evaluation: feature derivation,
// duplicate detection, classification, score fusion, similar-case
// retrieval and narrative generation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/claimguard/internal/classifier"
	"github.com/ppiankov/claimguard/internal/duplicate"
	"github.com/ppiankov/claimguard/internal/features"
	"github.com/ppiankov/claimguard/internal/knowledge"
	"github.com/ppiankov/claimguard/internal/llm"
	"github.com/ppiankov/claimguard/internal/logging"
	"github.com/ppiankov/claimguard/internal/metrics"
	"github.com/ppiankov/claimguard/internal/model"
	"github.com/ppiankov/claimguard/internal/resilience"
	"github.com/ppiankov/claimguard/internal/score"
	"github.com/ppiankov/claimguard/internal/validate"
)

// ClaimStore is the read side of the claim store used during evaluation
type ClaimStore interface {
	History(ctx context.Context, userID string) ([]model.Claim, error)
	All(ctx context.Context) ([]model.Claim, error)
	HasDuplicateHash(ctx context.Context, hash, excludingUserID string) (bool, error)
}

// ClaimWriter is the write side, needed only for ingest and confirmation
type ClaimWriter interface {
	Save(ctx context.Context, claim model.Claim) error
	Get(ctx context.Context, id string) (model.Claim, error)
	MarkFraudConfirmed(ctx context.Context, id, template string) (model.Claim, error)
}

// ErrReadOnlyStore is returned by write operations when no ClaimWriter is set
var ErrReadOnlyStore = errors.New("claim store is read-only")

// Pipeline is the fraud analysis orchestrator. It is safe for concurrent use.
type Pipeline struct {
	store           ClaimStore
	writer          ClaimWriter
	classifier      classifier.Classifier
	classifierGuard *resilience.Guard

	deriver  *features.Deriver
	detector *duplicate.Detector
	fuser    *score.Fuser

	index     *knowledge.LocalIndex
	indexer   *knowledge.Indexer
	retriever *knowledge.Retriever
	narrator  *llm.Narrator

	memory      knowledge.SemanticMemory
	memoryGuard *resilience.Guard
	indexerOpts []knowledge.IndexerOption

	retrieval model.RetrievalConfig
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger shared by all components
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = logging.OrNop(logger) }
}

// WithClassifierGuard bounds classifier calls with a timeout, rate limit
// and circuit breaker
func WithClassifierGuard(g *resilience.Guard) Option {
	return func(p *Pipeline) { p.classifierGuard = g }
}

// WithSemanticMemory enables the external semantic store for indexing and search
func WithSemanticMemory(memory knowledge.SemanticMemory, guard *resilience.Guard) Option {
	return func(p *Pipeline) {
		p.memory = memory
		p.memoryGuard = guard
	}
}

// WithNarrator sets the narrative generator. Without one, analyses carry
// the template narrative.
func WithNarrator(n *llm.Narrator) Option {
	return func(p *Pipeline) { p.narrator = n }
}

// WithClaimWriter enables ingest and fraud confirmation
func WithClaimWriter(w ClaimWriter) Option {
	return func(p *Pipeline) { p.writer = w }
}

// WithRetrieval sets the default search bounds
func WithRetrieval(cfg model.RetrievalConfig) Option {
	return func(p *Pipeline) { p.retrieval = cfg }
}

// WithLocalIndex injects the local knowledge index
func WithLocalIndex(index *knowledge.LocalIndex) Option {
	return func(p *Pipeline) { p.index = index }
}

// WithClock overrides the evaluation clock
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithIndexerOptions passes extra options to the knowledge indexer
func WithIndexerOptions(opts ...knowledge.IndexerOption) Option {
	return func(p *Pipeline) { p.indexerOpts = append(p.indexerOpts, opts...) }
}

// New creates a pipeline over store and classifier. When store also
// implements ClaimWriter it is used for writes. Classifier and semantic
// memory calls without an explicit guard get one with the default
// timeouts from model.DefaultConfig.
func New(store ClaimStore, clf classifier.Classifier, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:      store,
		classifier: clf,
		deriver:    features.NewDeriver(),
		detector:   duplicate.NewDetector(store),
		fuser:      score.NewFuser(),
		retrieval: model.RetrievalConfig{
			MaxResults: knowledge.DefaultLimit,
		},
		logger: zap.NewNop(),
		now:    time.Now,
	}
	if w, ok := store.(ClaimWriter); ok {
		p.writer = w
	}
	for _, opt := range opts {
		opt(p)
	}

	defaults := model.DefaultConfig()
	if p.classifierGuard == nil {
		p.classifierGuard = resilience.NewGuard(resilience.Settings{
			Name:    model.DependencyClassifier,
			Timeout: defaults.Classifier.Timeout,
			Breaker: defaults.Classifier.Breaker,
		}, nil)
	}
	if p.memory != nil && p.memoryGuard == nil {
		p.memoryGuard = resilience.NewGuard(resilience.Settings{
			Name:    model.DependencySemanticMemory,
			Timeout: defaults.Memory.Timeout,
			Breaker: defaults.Memory.Breaker,
		}, nil)
	}
	if p.index == nil {
		p.index = knowledge.NewLocalIndex()
	}
	if p.narrator == nil {
		p.narrator = llm.NewNarrator(nil, llm.WithNarratorLogger(p.logger))
	}

	indexerOpts := []knowledge.IndexerOption{
		knowledge.WithDuplicateChecker(p.detector),
		knowledge.WithIndexerLogger(p.logger),
		knowledge.WithClock(p.now),
	}
	retrieverOpts := []knowledge.RetrieverOption{
		knowledge.WithRetrieverLogger(p.logger),
	}
	if p.memory != nil {
		indexerOpts = append(indexerOpts, knowledge.WithMemory(p.memory, p.memoryGuard))
		retrieverOpts = append(retrieverOpts, knowledge.WithSemanticMemory(p.memory, p.memoryGuard))
	}
	p.indexer = knowledge.NewIndexer(p.index, append(indexerOpts, p.indexerOpts...)...)
	p.retriever = knowledge.NewRetriever(p.index, retrieverOpts...)

	return p
}

// Index returns the local knowledge index
func (p *Pipeline) Index() *knowledge.LocalIndex {
	return p.index
}

// EvaluateClaim scores a claim with the rule/ML fusion. A classifier that
// cannot answer fails the evaluation with a *model.DependencyError; no
// rule-only score is produced in its place.
func (p *Pipeline) EvaluateClaim(ctx context.Context, claim model.Claim) (model.FraudAssessment, error) {
	_, assessment, err := p.evaluate(ctx, claim)
	return assessment, err
}

func (p *Pipeline) evaluate(ctx context.Context, claim model.Claim) (model.Claim, model.FraudAssessment, error) {
	start := time.Now()
	defer func() {
		metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	}()

	claim = p.normalize(claim)

	var history []model.Claim
	if claim.UserID != "" {
		h, err := p.store.History(ctx, claim.UserID)
		if err != nil {
			metrics.EvaluationsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
			return claim, model.FraudAssessment{}, fmt.Errorf("load history for user %s: %w", claim.UserID, err)
		}
		history = h
	}

	all, err := p.store.All(ctx)
	if err != nil {
		metrics.EvaluationsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		return claim, model.FraudAssessment{}, fmt.Errorf("load claims: %w", err)
	}

	vector := p.deriver.Derive(claim, history, all)

	dup, err := p.detector.IsDuplicate(ctx, claim.ContentHash, claim.UserID)
	if err != nil {
		metrics.EvaluationsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		return claim, model.FraudAssessment{}, err
	}

	pred, err := resilience.Call(ctx, p.classifierGuard, func(ctx context.Context) (model.Prediction, error) {
		return p.classifier.Predict(ctx, vector)
	})
	if err != nil {
		var depErr *model.DependencyError
		if !errors.As(err, &depErr) {
			depErr = model.NewDependencyError(model.DependencyClassifier, err)
		}
		metrics.EvaluationsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		p.logger.Error("classifier unavailable",
			zap.String("claim_id", claim.ID),
			zap.Bool("duplicate", dup),
			zap.Error(depErr))
		return claim, model.FraudAssessment{}, depErr
	}

	assessment := p.fuser.FuseRuleML(pred, dup)
	assessment.ClaimID = claim.ID
	assessment.Features = vector
	assessment.EvaluatedAt = p.now().UTC()

	outcome := metrics.OutcomeClean
	if assessment.IsFraudulent {
		outcome = metrics.OutcomeFraud
	}
	metrics.EvaluationsTotal.WithLabelValues(outcome).Inc()

	p.logger.Debug("claim evaluated",
		zap.String("claim_id", claim.ID),
		zap.Float64("ml_score", assessment.MLScore),
		zap.Float64("rule_score", assessment.RuleScore),
		zap.Float64("final_score", assessment.FinalScore),
		zap.Bool("fraudulent", assessment.IsFraudulent))

	return claim, assessment, nil
}

// AnalyzeClaim evaluates a claim, retrieves similar confirmed fraud cases
// and combines both into an AnalysisResult. Retrieval and narrative
// failures degrade silently; classifier unavailability is returned as in
// EvaluateClaim.
func (p *Pipeline) AnalyzeClaim(ctx context.Context, claim model.Claim) (model.AnalysisResult, error) {
	claim, assessment, err := p.evaluate(ctx, claim)
	if err != nil {
		return model.AnalysisResult{}, err
	}

	query := knowledge.BuildQuery(claim)
	similar := p.retriever.Search(ctx, query, p.searchOptions(model.SearchOptions{}))

	factors := knowledge.RiskFactors(claim, similar)
	confidence := knowledge.Confidence(similar)
	combined := p.fuser.FuseCombined(assessment.MLScore, confidence, len(similar), knowledge.DistinctCount(factors))

	narrative, source := p.narrator.Generate(ctx, claim, similar, factors)

	return model.AnalysisResult{
		ClaimID:           claim.ID,
		Query:             query,
		Narrative:         narrative,
		NarrativeSource:   source,
		SimilarCases:      similar,
		RiskFactors:       factors,
		RecommendedAction: knowledge.RecommendAction(factors),
		Confidence:        confidence,
		Assessment:        assessment,
		Combined:          combined,
		Timestamp:         p.now().UTC(),
	}, nil
}

// IndexConfirmedFraud adds a fraud-confirmed claim to the knowledge base
func (p *Pipeline) IndexConfirmedFraud(ctx context.Context, claim model.Claim) (model.KnowledgeEntry, error) {
	return p.indexer.Index(ctx, p.normalize(claim))
}

// SearchKnowledgeBase searches confirmed fraud cases. Zero options fall
// back to the configured retrieval bounds.
func (p *Pipeline) SearchKnowledgeBase(ctx context.Context, query string, opts model.SearchOptions) []model.SearchResult {
	return p.retriever.Search(ctx, query, p.searchOptions(opts))
}

// RebuildLocalIndex drops the local index and re-derives it from every
// confirmed-fraud claim in the store
func (p *Pipeline) RebuildLocalIndex(ctx context.Context) (int, error) {
	all, err := p.store.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("load claims: %w", err)
	}
	return p.indexer.Rebuild(ctx, all), nil
}

// Ingest normalizes and stores a claim
func (p *Pipeline) Ingest(ctx context.Context, claim model.Claim) (model.Claim, error) {
	if p.writer == nil {
		return model.Claim{}, ErrReadOnlyStore
	}
	claim = p.normalize(claim)
	if err := p.writer.Save(ctx, claim); err != nil {
		return model.Claim{}, err
	}
	return claim, nil
}

// ConfirmFraud marks a stored claim as confirmed fraud and indexes it
func (p *Pipeline) ConfirmFraud(ctx context.Context, claimID, template string) (model.KnowledgeEntry, error) {
	if p.writer == nil {
		return model.KnowledgeEntry{}, ErrReadOnlyStore
	}

	claim, err := p.writer.MarkFraudConfirmed(ctx, claimID, template)
	if err != nil {
		return model.KnowledgeEntry{}, fmt.Errorf("confirm claim %s: %w", claimID, err)
	}
	return p.IndexConfirmedFraud(ctx, claim)
}

func (p *Pipeline) normalize(claim model.Claim) model.Claim {
	claim, issues := validate.Normalize(claim)
	for _, issue := range issues {
		p.logger.Warn("claim input issue",
			zap.String("claim_id", claim.ID),
			zap.String("field", issue.Field),
			zap.String("kind", string(issue.Kind)),
			zap.String("detail", issue.Detail))
	}
	return claim
}

func (p *Pipeline) searchOptions(opts model.SearchOptions) model.SearchOptions {
	if opts.Limit <= 0 {
		opts.Limit = p.retrieval.MaxResults
	}
	if opts.MinRelevance <= 0 {
		opts.MinRelevance = p.retrieval.MinRelevance
	}
	return opts
}
