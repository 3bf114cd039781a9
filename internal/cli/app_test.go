package cli

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/claimguard/internal/model"
)

func TestNewApp_IndexSurvivesRestart(t *testing.T) {
	clearKeyEnv(t)
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("store.driver", "sqlite")
	viper.Set("store.path", filepath.Join(t.TempDir(), "claims.db"))

	ctx := context.Background()
	day := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	a, err := newApp(ctx)
	require.NoError(t, err)

	_, err = a.pipeline.Ingest(ctx, model.Claim{
		ID:          "c1",
		UserID:      "u1",
		Merchant:    "Cafe Central",
		Amount:      100,
		ServiceDate: day,
		SubmittedAt: day,
		ContentHash: "abc123",
	})
	require.NoError(t, err)

	entry, err := a.pipeline.ConfirmFraud(ctx, "c1", "duplicate_receipt")
	require.NoError(t, err)
	assert.Equal(t, "c1", entry.ClaimID)
	a.close()

	b, err := newApp(ctx)
	require.NoError(t, err)
	defer b.close()

	assert.Equal(t, 1, b.pipeline.Index().Len())

	assessment, err := b.pipeline.EvaluateClaim(ctx, model.Claim{
		ID:          "c2",
		UserID:      "u2",
		Merchant:    "Cafe Central",
		Amount:      100,
		ServiceDate: day,
		SubmittedAt: day.Add(time.Hour),
		ContentHash: "abc123",
	})
	require.NoError(t, err)
	assert.True(t, assessment.Duplicate)
	assert.True(t, assessment.IsFraudulent)
	assert.GreaterOrEqual(t, assessment.FinalScore, 95.0)
}

func TestNewApp_UnknownStoreDriver(t *testing.T) {
	clearKeyEnv(t)
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("store.driver", "cassandra")

	_, err := newApp(context.Background())
	assert.Error(t, err)
}
