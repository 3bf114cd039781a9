// Package memory implements the external semantic memory: knowledge
// documents are embedded and stored in Redis, and searched by cosine
// similarity against an embedded query.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/ppiankov/claimguard/internal/model"
)

const (
	fieldDocument  = "document"
	fieldTags      = "tags"
	fieldEmbedding = "embedding"
)

// RedisMemory stores one hash per document plus a set of document ids
type RedisMemory struct {
	client   redis.Cmdable
	embedder Embedder
	prefix   string
}

// NewRedisMemory creates a semantic memory under the given key prefix
func NewRedisMemory(client redis.Cmdable, embedder Embedder, prefix string) *RedisMemory {
	if prefix == "" {
		prefix = "claimguard:kb"
	}
	return &RedisMemory{
		client:   client,
		embedder: embedder,
		prefix:   prefix,
	}
}

// NewRedisClient opens a go-redis client for addr
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (m *RedisMemory) indexKey() string {
	return m.prefix + ":ids"
}

func (m *RedisMemory) docKey(id string) string {
	return m.prefix + ":doc:" + id
}

// Ping checks the Redis connection
func (m *RedisMemory) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

// Import embeds and stores a document under id
func (m *RedisMemory) Import(ctx context.Context, document, id string, tags model.Tags) error {
	vec, err := m.embedder.Embed(ctx, document)
	if err != nil {
		return fmt.Errorf("embed document %s: %w", id, err)
	}

	tagsJSON, err := json.Marshal(tags.StringMap())
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	vecJSON, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}

	if err := m.client.HSet(ctx, m.docKey(id),
		fieldDocument, document,
		fieldTags, string(tagsJSON),
		fieldEmbedding, string(vecJSON),
	).Err(); err != nil {
		return fmt.Errorf("store document %s: %w", id, err)
	}

	if err := m.client.SAdd(ctx, m.indexKey(), id).Err(); err != nil {
		return fmt.Errorf("index document %s: %w", id, err)
	}
	return nil
}

// Search ranks stored documents by cosine similarity to query
func (m *RedisMemory) Search(ctx context.Context, query string, limit int, minRelevance float64) ([]model.Citation, error) {
	qvec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	ids, err := m.client.SMembers(ctx, m.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	sort.Strings(ids)

	citations := make([]model.Citation, 0, len(ids))
	for _, id := range ids {
		fields, err := m.client.HGetAll(ctx, m.docKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("load document %s: %w", id, err)
		}
		if len(fields) == 0 {
			continue
		}

		var vec []float32
		if err := json.Unmarshal([]byte(fields[fieldEmbedding]), &vec); err != nil {
			return nil, fmt.Errorf("decode embedding %s: %w", id, err)
		}

		relevance := cosine(qvec, vec)
		if relevance < minRelevance {
			continue
		}

		var tags map[string]string
		if raw := fields[fieldTags]; raw != "" {
			if err := json.Unmarshal([]byte(raw), &tags); err != nil {
				return nil, fmt.Errorf("decode tags %s: %w", id, err)
			}
		}

		citations = append(citations, model.Citation{
			DocumentID: id,
			Partitions: []model.Partition{{Text: fields[fieldDocument], Relevance: relevance}},
			Tags:       model.TagsFromMap(tags),
		})
	}

	sort.SliceStable(citations, func(i, j int) bool {
		return citations[i].Partitions[0].Relevance > citations[j].Partitions[0].Relevance
	})
	if limit > 0 && len(citations) > limit {
		citations = citations[:limit]
	}
	return citations, nil
}

// cosine returns the cosine similarity clamped to [0,1]; mismatched or
// zero vectors score 0
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Max(0, math.Min(1, sim))
}
