package knowledge

import (
	"context"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/claimguard/internal/logging"
	"github.com/ppiankov/claimguard/internal/metrics"
	"github.com/ppiankov/claimguard/internal/model"
	"github.com/ppiankov/claimguard/internal/resilience"
)

const (
	// DefaultLimit applies when a search does not set one
	DefaultLimit = 5

	// FallbackRelevanceFloor is the exclusive lower bound for local matches
	FallbackRelevanceFloor = 0.3
)

// Retriever finds knowledge entries similar to a query
type Retriever struct {
	index  *LocalIndex
	memory SemanticMemory
	guard  *resilience.Guard
	logger *zap.Logger
}

// RetrieverOption configures a Retriever
type RetrieverOption func(*Retriever)

// WithSemanticMemory sets the primary search backend and its guard
func WithSemanticMemory(memory SemanticMemory, guard *resilience.Guard) RetrieverOption {
	return func(r *Retriever) {
		r.memory = memory
		r.guard = guard
	}
}

// WithRetrieverLogger sets the logger
func WithRetrieverLogger(logger *zap.Logger) RetrieverOption {
	return func(r *Retriever) { r.logger = logging.OrNop(logger) }
}

// NewRetriever creates a retriever over the local index
func NewRetriever(index *LocalIndex, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		index:  index,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.memory != nil && r.guard == nil {
		r.guard = defaultMemoryGuard()
	}
	return r
}

// defaultMemoryGuard bounds semantic memory calls when the caller gave no guard
func defaultMemoryGuard() *resilience.Guard {
	d := model.DefaultConfig().Memory
	return resilience.NewGuard(resilience.Settings{
		Name:    model.DependencySemanticMemory,
		Timeout: d.Timeout,
		Breaker: d.Breaker,
	}, nil)
}

// Search returns ranked, deduplicated results in descending relevance.
// Any failure of the semantic memory falls back to the local index; Search
// itself never fails.
func (r *Retriever) Search(ctx context.Context, query string, opts model.SearchOptions) []model.SearchResult {
	opts = normalizeOptions(opts)
	if strings.TrimSpace(query) == "" {
		return []model.SearchResult{}
	}

	if r.memory != nil {
		citations, err := resilience.Call(ctx, r.guard, func(ctx context.Context) ([]model.Citation, error) {
			return r.memory.Search(ctx, query, opts.Limit, opts.MinRelevance)
		})
		if err == nil {
			metrics.RetrievalTotal.WithLabelValues(string(model.SourceExternal)).Inc()
			return rank(fromCitations(citations), opts)
		}
		r.logger.Warn("semantic search failed, using local fallback", zap.Error(err))
	}

	metrics.RetrievalTotal.WithLabelValues(string(model.SourceLocalFallback)).Inc()
	return r.SearchLocal(query, opts)
}

// SearchLocal is the deterministic lexical fallback. Relevance is the share
// of query terms found in an entry's document; entries at or below 0.3 are
// dropped. Ties are ordered by entry id.
func (r *Retriever) SearchLocal(query string, opts model.SearchOptions) []model.SearchResult {
	opts = normalizeOptions(opts)

	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return []model.SearchResult{}
	}

	var results []model.SearchResult
	for _, entry := range r.index.Entries() {
		doc := strings.ToLower(entry.Document)

		matched := 0
		for _, term := range terms {
			if strings.Contains(doc, term) {
				matched++
			}
		}

		relevance := float64(matched) / float64(len(terms))
		if relevance <= FallbackRelevanceFloor {
			continue
		}

		results = append(results, model.SearchResult{
			ID:        entry.ID,
			Content:   entry.Document,
			Relevance: relevance,
			Source:    model.SourceLocalFallback,
			Metadata:  BuildTags(entry),
		})
	}

	return rank(results, opts)
}

func fromCitations(citations []model.Citation) []model.SearchResult {
	results := make([]model.SearchResult, 0, len(citations))
	for _, c := range citations {
		if c.DocumentID == "" {
			continue
		}

		relevance := 0.0
		texts := make([]string, 0, len(c.Partitions))
		for _, p := range c.Partitions {
			relevance = math.Max(relevance, p.Relevance)
			if p.Text != "" {
				texts = append(texts, p.Text)
			}
		}

		results = append(results, model.SearchResult{
			ID:        c.DocumentID,
			Content:   strings.Join(texts, "\n"),
			Relevance: clampUnit(relevance),
			Source:    model.SourceExternal,
			Metadata:  c.Tags,
		})
	}
	return results
}

// rank deduplicates by id keeping the best hit, applies the minimum
// relevance, sorts descending with id as tie-break and truncates.
func rank(results []model.SearchResult, opts model.SearchOptions) []model.SearchResult {
	best := make(map[string]int, len(results))
	deduped := make([]model.SearchResult, 0, len(results))
	for _, res := range results {
		if res.Relevance < opts.MinRelevance {
			continue
		}
		if i, seen := best[res.ID]; seen {
			if res.Relevance > deduped[i].Relevance {
				deduped[i] = res
			}
			continue
		}
		best[res.ID] = len(deduped)
		deduped = append(deduped, res)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		if deduped[i].Relevance != deduped[j].Relevance {
			return deduped[i].Relevance > deduped[j].Relevance
		}
		return deduped[i].ID < deduped[j].ID
	})

	if len(deduped) > opts.Limit {
		deduped = deduped[:opts.Limit]
	}
	return deduped
}

func normalizeOptions(opts model.SearchOptions) model.SearchOptions {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	opts.MinRelevance = clampUnit(opts.MinRelevance)
	return opts
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
