package knowledge

import (
	"fmt"
	"slices"
	"strings"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/claimguard/internal/model"
)

const (
	entryPrefix = "entry:"
	claimPrefix = "claim:"
)

// LocalIndex is the in-process, insert-only knowledge base mirror. Entries
// never expire and are stored by value, so a concurrent scan sees either
// the whole entry or none of it. The index is a derived view of the
// confirmed-fraud claims and can be reset and rebuilt at any time.
type LocalIndex struct {
	items *gocache.Cache
}

// NewLocalIndex creates an empty index
func NewLocalIndex() *LocalIndex {
	return &LocalIndex{
		items: gocache.New(gocache.NoExpiration, 0),
	}
}

// Insert adds an entry. It fails with ErrAlreadyIndexed when the claim is
// already present and never overwrites an existing entry.
func (x *LocalIndex) Insert(entry model.KnowledgeEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("insert knowledge entry: empty id")
	}

	if entry.ClaimID != "" {
		if err := x.items.Add(claimPrefix+entry.ClaimID, entry.ID, gocache.NoExpiration); err != nil {
			return fmt.Errorf("insert knowledge entry for claim %s: %w", entry.ClaimID, model.ErrAlreadyIndexed)
		}
	}

	if err := x.items.Add(entryPrefix+entry.ID, cloneEntry(entry), gocache.NoExpiration); err != nil {
		if entry.ClaimID != "" {
			x.items.Delete(claimPrefix + entry.ClaimID)
		}
		return fmt.Errorf("insert knowledge entry %s: %w", entry.ID, err)
	}
	return nil
}

// Get returns the entry with the given id
func (x *LocalIndex) Get(id string) (model.KnowledgeEntry, bool) {
	v, ok := x.items.Get(entryPrefix + id)
	if !ok {
		return model.KnowledgeEntry{}, false
	}
	entry, ok := v.(model.KnowledgeEntry)
	return cloneEntry(entry), ok
}

// ByClaim returns the entry indexed for a claim id
func (x *LocalIndex) ByClaim(claimID string) (model.KnowledgeEntry, bool) {
	v, ok := x.items.Get(claimPrefix + claimID)
	if !ok {
		return model.KnowledgeEntry{}, false
	}
	id, _ := v.(string)
	return x.Get(id)
}

// Entries returns a snapshot of every entry, in no particular order
func (x *LocalIndex) Entries() []model.KnowledgeEntry {
	items := x.items.Items()
	entries := make([]model.KnowledgeEntry, 0, len(items)/2+1)
	for key, item := range items {
		if !strings.HasPrefix(key, entryPrefix) {
			continue
		}
		if entry, ok := item.Object.(model.KnowledgeEntry); ok {
			entries = append(entries, cloneEntry(entry))
		}
	}
	return entries
}

// Len returns the number of entries
func (x *LocalIndex) Len() int {
	return len(x.Entries())
}

// Reset drops every entry
func (x *LocalIndex) Reset() {
	x.items.Flush()
}

// cloneEntry copies the slice fields so stored entries cannot be mutated
// through a caller's reference
func cloneEntry(e model.KnowledgeEntry) model.KnowledgeEntry {
	e.Items = slices.Clone(e.Items)
	e.RiskFactors = slices.Clone(e.RiskFactors)
	return e
}
