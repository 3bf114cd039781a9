package knowledge

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ppiankov/claimguard/internal/model"
)

type mockMemory struct {
	mock.Mock
}

func (m *mockMemory) Import(ctx context.Context, document, id string, tags model.Tags) error {
	args := m.Called(ctx, document, id, tags)
	return args.Error(0)
}

func (m *mockMemory) Search(ctx context.Context, query string, limit int, minRelevance float64) ([]model.Citation, error) {
	args := m.Called(ctx, query, limit, minRelevance)
	citations, _ := args.Get(0).([]model.Citation)
	return citations, args.Error(1)
}

type staticDuplicates bool

func (s staticDuplicates) IsDuplicate(ctx context.Context, hash, userID string) (bool, error) {
	return bool(s), nil
}

var fixedNow = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

func sequentialIDs() func(string) string {
	var n int64
	return func(string) string {
		return fmt.Sprintf("entry-%03d", atomic.AddInt64(&n, 1))
	}
}

func fraudClaim(id, merchant string, amount float64) model.Claim {
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	return model.Claim{
		ID:             id,
		UserID:         "u-" + id,
		Merchant:       merchant,
		ServiceType:    "membership",
		Amount:         amount,
		Location:       "Austin",
		ServiceDate:    day,
		SubmittedAt:    day,
		Items:          []string{"monthly pass"},
		IPAddress:      "10.0.0.9",
		ContentHash:    "hash-" + id,
		FraudConfirmed: true,
		FraudTemplate:  "duplicate_receipt",
	}
}

func newTestIndexer(index *LocalIndex, opts ...IndexerOption) *Indexer {
	base := []IndexerOption{WithClock(func() time.Time { return fixedNow }), WithIDGenerator(sequentialIDs())}
	return NewIndexer(index, append(base, opts...)...)
}
