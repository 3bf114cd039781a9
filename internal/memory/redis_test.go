package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/claimguard/internal/model"
)

// keywordEmbedder maps text onto two axes: gym and clinic
type keywordEmbedder struct {
	err error
}

func (k keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if k.err != nil {
		return nil, k.err
	}
	text = strings.ToLower(text)
	var v [2]float32
	if strings.Contains(text, "gym") {
		v[0] = 1
	}
	if strings.Contains(text, "clinic") {
		v[1] = 1
	}
	return v[:], nil
}

func TestRedisMemory_Import(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mem := NewRedisMemory(db, keywordEmbedder{}, "kb")

	mock.ExpectHSet("kb:doc:e-1",
		"document", "FitZone Gym fraud",
		"tags", `{"claimId":"c-1"}`,
		"embedding", "[1,0]",
	).SetVal(3)
	mock.ExpectSAdd("kb:ids", "e-1").SetVal(1)

	err := mem.Import(context.Background(), "FitZone Gym fraud", "e-1", model.Tags{model.TagClaimID: "c-1"})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisMemory_ImportEmbedFailure(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mem := NewRedisMemory(db, keywordEmbedder{err: errors.New("quota exceeded")}, "kb")

	err := mem.Import(context.Background(), "doc", "e-1", nil)

	assert.ErrorContains(t, err, "quota exceeded")
	assert.NoError(t, mock.ExpectationsWereMet(), "nothing written when embedding fails")
}

func TestRedisMemory_ImportRedisFailure(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mem := NewRedisMemory(db, keywordEmbedder{}, "kb")

	mock.ExpectHSet("kb:doc:e-1", "document", "doc", "tags", `{}`, "embedding", "[0,0]").SetErr(errors.New("READONLY"))

	err := mem.Import(context.Background(), "doc", "e-1", model.Tags{})

	assert.ErrorContains(t, err, "READONLY")
}

func TestRedisMemory_Search(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mem := NewRedisMemory(db, keywordEmbedder{}, "kb")

	mock.ExpectSMembers("kb:ids").SetVal([]string{"c", "b", "a"})
	mock.ExpectHGetAll("kb:doc:a").SetVal(map[string]string{
		"document":  "City Clinic fraud",
		"tags":      `{"claimId":"c-a","bogus":"x"}`,
		"embedding": "[0,1]",
	})
	mock.ExpectHGetAll("kb:doc:b").SetVal(map[string]string{
		"document":  "FitZone Gym fraud",
		"tags":      `{"claimId":"c-b"}`,
		"embedding": "[1,0]",
	})
	mock.ExpectHGetAll("kb:doc:c").SetVal(map[string]string{})

	citations, err := mem.Search(context.Background(), "gym membership", 5, 0.5)

	require.NoError(t, err)
	require.Len(t, citations, 1)
	assert.Equal(t, "b", citations[0].DocumentID)
	assert.Equal(t, 1.0, citations[0].Partitions[0].Relevance)
	assert.Equal(t, "FitZone Gym fraud", citations[0].Partitions[0].Text)
	assert.Equal(t, model.Tags{model.TagClaimID: "c-b"}, citations[0].Tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisMemory_SearchLimitAndOrder(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mem := NewRedisMemory(db, keywordEmbedder{}, "kb")

	mock.ExpectSMembers("kb:ids").SetVal([]string{"a", "b", "c"})
	mock.ExpectHGetAll("kb:doc:a").SetVal(map[string]string{"document": "a", "embedding": "[1,1]"})
	mock.ExpectHGetAll("kb:doc:b").SetVal(map[string]string{"document": "b", "embedding": "[1,0]"})
	mock.ExpectHGetAll("kb:doc:c").SetVal(map[string]string{"document": "c", "embedding": "[0,1]"})

	citations, err := mem.Search(context.Background(), "gym", 2, 0)

	require.NoError(t, err)
	require.Len(t, citations, 2)
	assert.Equal(t, "b", citations[0].DocumentID)
	assert.Equal(t, "a", citations[1].DocumentID)
	assert.InDelta(t, 0.7071, citations[1].Partitions[0].Relevance, 1e-3)
}

func TestRedisMemory_SearchRedisFailure(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mem := NewRedisMemory(db, keywordEmbedder{}, "kb")

	mock.ExpectSMembers("kb:ids").SetErr(errors.New("connection refused"))

	_, err := mem.Search(context.Background(), "gym", 5, 0)

	assert.ErrorContains(t, err, "connection refused")
}

func TestCosine(t *testing.T) {
	assert.Equal(t, 1.0, cosine([]float32{2, 0}, []float32{5, 0}))
	assert.Equal(t, 0.0, cosine([]float32{1, 0}, []float32{-1, 0}), "negative similarity clamps to 0")
	assert.Equal(t, 0.0, cosine([]float32{1}, []float32{1, 0}))
	assert.Equal(t, 0.0, cosine([]float32{0, 0}, []float32{1, 0}))
}
