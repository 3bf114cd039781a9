package knowledge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/claimguard/internal/metrics"
	"github.com/ppiankov/claimguard/internal/model"
	"github.com/ppiankov/claimguard/internal/resilience"
)

func TestIndexer_RejectsUnconfirmedClaim(t *testing.T) {
	claim := fraudClaim("c-1", "FitZone Gym", 250)
	claim.FraudConfirmed = false

	_, err := newTestIndexer(NewLocalIndex()).Index(context.Background(), claim)

	assert.ErrorIs(t, err, model.ErrNotFraudConfirmed)
}

func TestIndexer_BuildsEntry(t *testing.T) {
	index := NewLocalIndex()
	indexer := newTestIndexer(index, WithDuplicateChecker(staticDuplicates(true)))

	entry, err := indexer.Index(context.Background(), fraudClaim("c-1", "FitZone Gym", 250))
	require.NoError(t, err)

	assert.Equal(t, "entry-001", entry.ID)
	assert.Equal(t, "c-1", entry.ClaimID)
	assert.Equal(t, fixedNow, entry.CreatedAt)
	assert.Equal(t, []string{"Round amount ($250.00)", NarrativeDuplicateHash, NarrativeSameDay}, entry.RiskFactors)
	assert.Contains(t, entry.Document, "Merchant: FitZone Gym.")
	assert.Contains(t, entry.Document, "Amount: $250.00.")
	assert.Contains(t, entry.Document, "Template: duplicate_receipt.")
	assert.Contains(t, entry.Document, "Service date: 2024-01-05.")

	stored, ok := index.Get(entry.ID)
	require.True(t, ok)
	assert.Equal(t, entry, stored)
}

func TestIndexer_NarrativeWithoutFlags(t *testing.T) {
	claim := fraudClaim("c-1", "City Clinic", 123.45)
	claim.SubmittedAt = claim.ServiceDate.AddDate(0, 0, 2)

	entry := newTestIndexer(NewLocalIndex()).BuildEntry(context.Background(), claim)

	assert.Empty(t, entry.RiskFactors)
	assert.NotContains(t, entry.Document, "Risk factors")
}

func TestIndexer_ForwardsToMemoryWithTags(t *testing.T) {
	memory := new(mockMemory)
	memory.On("Import", mock.Anything, mock.Anything, "entry-001", mock.MatchedBy(func(tags model.Tags) bool {
		return tags.Get(model.TagClaimID) == "c-1" &&
			tags.Get(model.TagMerchant) == "FitZone Gym" &&
			tags.Get(model.TagAmount) == "250.00" &&
			tags.Get(model.TagUserID) == "u-c-1" &&
			tags.Get(model.TagReceiptHash) == "hash-c-1" &&
			len(tags) == len(model.TagKeys)
	})).Return(nil).Once()

	indexer := newTestIndexer(NewLocalIndex(), WithMemory(memory, nil))

	_, err := indexer.Index(context.Background(), fraudClaim("c-1", "FitZone Gym", 250))

	require.NoError(t, err)
	memory.AssertExpectations(t)
}

func TestIndexer_ExternalFailureIsSwallowed(t *testing.T) {
	memory := new(mockMemory)
	memory.On("Import", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("memory offline"))

	guard := resilience.NewGuard(resilience.Settings{Name: "indexer_test_memory", Timeout: time.Second}, nil)
	index := NewLocalIndex()
	indexer := newTestIndexer(index, WithMemory(memory, guard))
	before := testutil.ToFloat64(metrics.ExternalImportFailures)

	entry, err := indexer.Index(context.Background(), fraudClaim("c-1", "FitZone Gym", 250))

	require.NoError(t, err)
	_, ok := index.Get(entry.ID)
	assert.True(t, ok, "local copy is kept")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ExternalImportFailures))
}

func TestIndexer_IndexesClaimOnce(t *testing.T) {
	memory := new(mockMemory)
	memory.On("Import", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	index := NewLocalIndex()
	indexer := newTestIndexer(index, WithMemory(memory, nil))
	claim := fraudClaim("c-1", "FitZone Gym", 250)

	first, err := indexer.Index(context.Background(), claim)
	require.NoError(t, err)
	second, err := indexer.Index(context.Background(), claim)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, index.Len())
	memory.AssertNumberOfCalls(t, "Import", 1)
}

func TestIndexer_Rebuild(t *testing.T) {
	memory := new(mockMemory)
	index := NewLocalIndex()
	indexer := newTestIndexer(index, WithMemory(memory, nil))

	require.NoError(t, index.Insert(model.KnowledgeEntry{ID: "stale", ClaimID: "gone"}))

	clean := fraudClaim("c-2", "Corner Cafe", 12)
	clean.FraudConfirmed = false
	claims := []model.Claim{
		fraudClaim("c-1", "FitZone Gym", 250),
		clean,
		fraudClaim("c-3", "City Clinic", 80),
		fraudClaim("c-1", "FitZone Gym", 250),
	}

	n := indexer.Rebuild(context.Background(), claims)

	assert.Equal(t, 2, n)
	assert.Equal(t, 2, index.Len())
	_, ok := index.Get("stale")
	assert.False(t, ok)
	memory.AssertNotCalled(t, "Import", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEntryID_StablePerClaim(t *testing.T) {
	assert.Equal(t, EntryID("c-1"), EntryID("c-1"))
	assert.NotEqual(t, EntryID("c-1"), EntryID("c-2"))
}

func TestIndexer_RebuildKeepsIDsAndOrder(t *testing.T) {
	index := NewLocalIndex()
	indexer := NewIndexer(index, WithClock(func() time.Time { return fixedNow }))
	retriever := NewRetriever(index)
	claims := []model.Claim{
		fraudClaim("c1", "FitZone Gym", 250),
		fraudClaim("c2", "FitZone Gym", 250),
	}

	resultOrder := func() []string {
		var ids []string
		for _, r := range retriever.SearchLocal("fitzone gym", model.SearchOptions{Limit: 5}) {
			ids = append(ids, r.ID)
		}
		return ids
	}

	require.Equal(t, 2, indexer.Rebuild(context.Background(), claims))
	entry, ok := index.ByClaim("c1")
	require.True(t, ok)
	assert.Equal(t, EntryID("c1"), entry.ID)

	first := resultOrder()
	require.Len(t, first, 2)

	for round := 0; round < 10; round++ {
		indexer.Rebuild(context.Background(), claims)
		assert.Equal(t, first, resultOrder(), "round %d", round)
	}
}
