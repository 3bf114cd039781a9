// Package duplicate flags receipts whose content hash was already submitted
// by a different user.
package duplicate

import (
	"context"
	"fmt"

	"github.com/ppiankov/claimguard/internal/model"
)

// HashLookup answers whether any other user already owns a content hash.
// Implementations compare hashes case-insensitively.
type HashLookup interface {
	HasDuplicateHash(ctx context.Context, hash, excludingUserID string) (bool, error)
}

// Detector checks claims for cross-user receipt reuse
type Detector struct {
	lookup HashLookup
}

// NewDetector creates a detector backed by the given store
func NewDetector(lookup HashLookup) *Detector {
	return &Detector{lookup: lookup}
}

// IsDuplicate reports whether hash was used by a user other than userID.
// An empty hash is never a duplicate: a failed extraction must not produce
// a positive. The same user reusing its own hash is not a duplicate either.
func (d *Detector) IsDuplicate(ctx context.Context, hash, userID string) (bool, error) {
	hash = model.NormalizeHash(hash)
	if hash == "" {
		return false, nil
	}

	dup, err := d.lookup.HasDuplicateHash(ctx, hash, userID)
	if err != nil {
		return false, fmt.Errorf("duplicate lookup: %w", err)
	}
	return dup, nil
}

// HasCrossUserDuplicate scans claims for the hash owned by someone other
// than userID. Stores without an indexed query use it directly.
func HasCrossUserDuplicate(claims []model.Claim, hash, userID string) bool {
	hash = model.NormalizeHash(hash)
	if hash == "" {
		return false
	}
	for _, c := range claims {
		if c.UserID != userID && c.NormalizedHash() == hash {
			return true
		}
	}
	return false
}
