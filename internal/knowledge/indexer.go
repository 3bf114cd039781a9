// Package knowledge indexes confirmed fraud cases and retrieves similar
// cases for new claims, from an external semantic memory when available
// and from the local index otherwise.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/claimguard/internal/logging"
	"github.com/ppiankov/claimguard/internal/metrics"
	"github.com/ppiankov/claimguard/internal/model"
	"github.com/ppiankov/claimguard/internal/resilience"
)

// SemanticMemory is the optional external semantic store
type SemanticMemory interface {
	Import(ctx context.Context, document, id string, tags model.Tags) error
	Search(ctx context.Context, query string, limit int, minRelevance float64) ([]model.Citation, error)
}

// DuplicateChecker reports cross-user receipt reuse for the risk narrative
type DuplicateChecker interface {
	IsDuplicate(ctx context.Context, hash, userID string) (bool, error)
}

// Indexer turns confirmed-fraud claims into knowledge entries. The local
// write must succeed; the external write is best-effort. The two are
// independent steps, not a transaction.
type Indexer struct {
	index      *LocalIndex
	memory     SemanticMemory
	guard      *resilience.Guard
	duplicates DuplicateChecker
	logger     *zap.Logger
	now        func() time.Time
	newID      func(claimID string) string
}

// IndexerOption configures an Indexer
type IndexerOption func(*Indexer)

// WithMemory forwards new entries to an external semantic memory under guard
func WithMemory(memory SemanticMemory, guard *resilience.Guard) IndexerOption {
	return func(i *Indexer) {
		i.memory = memory
		i.guard = guard
	}
}

// WithDuplicateChecker enables the duplicate-hash line of the risk narrative
func WithDuplicateChecker(d DuplicateChecker) IndexerOption {
	return func(i *Indexer) { i.duplicates = d }
}

// WithIndexerLogger sets the logger
func WithIndexerLogger(logger *zap.Logger) IndexerOption {
	return func(i *Indexer) { i.logger = logging.OrNop(logger) }
}

// WithClock overrides the entry creation clock
func WithClock(now func() time.Time) IndexerOption {
	return func(i *Indexer) { i.now = now }
}

// WithIDGenerator overrides entry id generation
func WithIDGenerator(newID func(claimID string) string) IndexerOption {
	return func(i *Indexer) { i.newID = newID }
}

// entryNamespace scopes name-based entry ids
var entryNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/ppiankov/claimguard/knowledge"))

// EntryID returns the stable knowledge entry id for a claim. Rebuilds and
// the external memory agree on it.
func EntryID(claimID string) string {
	return uuid.NewSHA1(entryNamespace, []byte(claimID)).String()
}

// NewIndexer creates an indexer writing to index
func NewIndexer(index *LocalIndex, opts ...IndexerOption) *Indexer {
	i := &Indexer{
		index:  index,
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  EntryID,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.memory != nil && i.guard == nil {
		i.guard = defaultMemoryGuard()
	}
	return i
}

// Index records a confirmed-fraud claim. A claim already in the index
// returns its existing entry without a second external write.
func (i *Indexer) Index(ctx context.Context, claim model.Claim) (model.KnowledgeEntry, error) {
	if !claim.FraudConfirmed {
		return model.KnowledgeEntry{}, fmt.Errorf("index claim %s: %w", claim.ID, model.ErrNotFraudConfirmed)
	}

	if existing, ok := i.index.ByClaim(claim.ID); ok {
		i.logger.Debug("claim already indexed", zap.String("claim_id", claim.ID), zap.String("entry_id", existing.ID))
		return existing, nil
	}

	entry := i.BuildEntry(ctx, claim)
	if err := i.index.Insert(entry); err != nil {
		if errors.Is(err, model.ErrAlreadyIndexed) {
			if existing, ok := i.index.ByClaim(claim.ID); ok {
				return existing, nil
			}
		}
		return model.KnowledgeEntry{}, fmt.Errorf("index claim %s: %w", claim.ID, err)
	}
	metrics.KnowledgeEntriesIndexed.Inc()

	i.logger.Info("indexed confirmed fraud",
		zap.String("claim_id", claim.ID),
		zap.String("entry_id", entry.ID),
		zap.Strings("risk_factors", entry.RiskFactors),
	)

	i.forward(ctx, entry)
	return entry, nil
}

// Rebuild drops the local index and re-derives it from claims. Only
// fraud-confirmed claims are indexed and nothing is sent externally.
func (i *Indexer) Rebuild(ctx context.Context, claims []model.Claim) int {
	i.index.Reset()

	count := 0
	for _, claim := range claims {
		if !claim.FraudConfirmed {
			continue
		}
		if err := i.index.Insert(i.BuildEntry(ctx, claim)); err != nil {
			i.logger.Warn("skipping claim during rebuild", zap.String("claim_id", claim.ID), zap.Error(err))
			continue
		}
		count++
	}

	i.logger.Info("rebuilt local knowledge index", zap.Int("entries", count))
	return count
}

// BuildEntry derives the knowledge entry for a claim without storing it
func (i *Indexer) BuildEntry(ctx context.Context, claim model.Claim) model.KnowledgeEntry {
	entry := model.KnowledgeEntry{
		ID:            i.newID(claim.ID),
		ClaimID:       claim.ID,
		UserID:        claim.UserID,
		FraudTemplate: claim.FraudTemplate,
		Merchant:      claim.Merchant,
		ServiceType:   claim.ServiceType,
		Amount:        claim.Amount,
		Location:      claim.Location,
		Items:         append([]string(nil), claim.Items...),
		IPAddress:     claim.IPAddress,
		RiskFactors:   BuildNarrative(claim, i.isDuplicate(ctx, claim)),
		ContentHash:   claim.ContentHash,
		ServiceDate:   claim.ServiceDate,
		SubmittedAt:   claim.SubmittedAt,
		CreatedAt:     i.now().UTC(),
	}
	entry.Document = BuildDocument(entry)
	return entry
}

func (i *Indexer) isDuplicate(ctx context.Context, claim model.Claim) bool {
	if i.duplicates == nil {
		return false
	}
	dup, err := i.duplicates.IsDuplicate(ctx, claim.ContentHash, claim.UserID)
	if err != nil {
		i.logger.Warn("duplicate check failed while indexing", zap.String("claim_id", claim.ID), zap.Error(err))
		return false
	}
	return dup
}

// forward is the best-effort external write; failures are logged only
func (i *Indexer) forward(ctx context.Context, entry model.KnowledgeEntry) {
	if i.memory == nil {
		return
	}

	err := resilience.Do(ctx, i.guard, func(ctx context.Context) error {
		return i.memory.Import(ctx, entry.Document, entry.ID, BuildTags(entry))
	})
	if err != nil {
		metrics.ExternalImportFailures.Inc()
		i.logger.Warn("semantic memory import failed, local copy kept",
			zap.String("entry_id", entry.ID),
			zap.String("claim_id", entry.ClaimID),
			zap.Error(err),
		)
	}
}
