package memory

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/claimguard/internal/cache"
)

// Embedder turns text into a dense vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// OpenAIEmbedder calls the OpenAI embeddings API
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbedder creates an embedder. baseURL may point at any
// OpenAI-compatible endpoint.
func NewOpenAIEmbedder(apiKey, baseURL, model string) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("embedding API key is required")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	if model == "" {
		model = string(openai.SmallEmbedding3)
	}

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientConfig),
		model:  openai.EmbeddingModel(model),
	}, nil
}

// Model returns the embedding model name
func (e *OpenAIEmbedder) Model() string {
	return string(e.model)
}

// Embed returns the embedding of text
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI embeddings error: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("no embedding in OpenAI response")
	}
	return resp.Data[0].Embedding, nil
}

// CachedEmbedder memoizes another embedder
type CachedEmbedder struct {
	inner Embedder
	cache cache.Cache
	model string
}

// NewCachedEmbedder wraps inner with c. model namespaces the cache keys.
func NewCachedEmbedder(inner Embedder, c cache.Cache, model string) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: c, model: model}
}

// Embed returns the cached vector or computes and stores it
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cache.Key(e.model, text)
	if vec, ok := e.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Set(key, vec)
	return vec, nil
}
