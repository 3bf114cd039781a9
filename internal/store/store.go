// Package store persists claims for history lookups, duplicate detection
// and fraud confirmation.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/claimguard/internal/model"
)

// Store is the complete claim store: read access for evaluation plus the
// writes used when ingesting and confirming claims.
type Store interface {
	// History returns a user's claims ordered by submission date
	History(ctx context.Context, userID string) ([]model.Claim, error)

	// All returns every stored claim
	All(ctx context.Context) ([]model.Claim, error)

	// HasDuplicateHash reports whether a user other than excludingUserID
	// submitted hash
	HasDuplicateHash(ctx context.Context, hash, excludingUserID string) (bool, error)

	Save(ctx context.Context, claim model.Claim) error
	Get(ctx context.Context, id string) (model.Claim, error)
	MarkFraudConfirmed(ctx context.Context, id, template string) (model.Claim, error)

	Close() error
}

// New opens the store selected by cfg.Driver
func New(ctx context.Context, cfg model.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite", "sqlite3":
		return NewSQLite(cfg.Path)
	case "postgres", "postgresql":
		return NewPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver: %s (supported: memory, sqlite, postgres)", cfg.Driver)
	}
}

func checkClaim(claim model.Claim) error {
	if strings.TrimSpace(claim.ID) == "" {
		return fmt.Errorf("%w: missing id", model.ErrInvalidClaim)
	}
	return nil
}

// sortClaims orders claims by submission date, ties by id
func sortClaims(claims []model.Claim) {
	sort.SliceStable(claims, func(i, j int) bool {
		if !claims[i].SubmittedAt.Equal(claims[j].SubmittedAt) {
			return claims[i].SubmittedAt.Before(claims[j].SubmittedAt)
		}
		return claims[i].ID < claims[j].ID
	})
}

func cloneClaim(c model.Claim) model.Claim {
	if c.Items != nil {
		c.Items = append([]string(nil), c.Items...)
	}
	return c
}
