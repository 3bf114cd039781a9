// Package cache memoizes embedding vectors so repeated documents and
// queries do not hit the embedding API twice.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Cache defines the interface for caching embedding vectors
type Cache interface {
	Get(key string) ([]float32, bool)
	Set(key string, vector []float32)
	Len() int
	Clear()
}

// Key derives the cache key for a text embedded with the given model.
// Text is trimmed so whitespace-only differences share an entry.
func Key(model, text string) string {
	hash := sha256.Sum256([]byte(model + "\x00" + strings.TrimSpace(text)))
	return "claimguard:emb:v1:" + hex.EncodeToString(hash[:])
}
