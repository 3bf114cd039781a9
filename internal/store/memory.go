package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/ppiankov/claimguard/internal/duplicate"
	"github.com/ppiankov/claimguard/internal/model"
)

// Memory is an in-process Store used by tests and one-shot CLI runs
type Memory struct {
	mu     sync.RWMutex
	claims map[string]model.Claim
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{claims: make(map[string]model.Claim)}
}

func (m *Memory) Save(_ context.Context, claim model.Claim) error {
	if err := checkClaim(claim); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims[claim.ID] = cloneClaim(claim)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (model.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.claims[id]
	if !ok {
		return model.Claim{}, fmt.Errorf("%w: %s", model.ErrClaimNotFound, id)
	}
	return cloneClaim(c), nil
}

func (m *Memory) MarkFraudConfirmed(_ context.Context, id, template string) (model.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.claims[id]
	if !ok {
		return model.Claim{}, fmt.Errorf("%w: %s", model.ErrClaimNotFound, id)
	}
	c.FraudConfirmed = true
	c.FraudTemplate = template
	m.claims[id] = c
	return cloneClaim(c), nil
}

func (m *Memory) History(_ context.Context, userID string) ([]model.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Claim
	for _, c := range m.claims {
		if c.UserID == userID {
			out = append(out, cloneClaim(c))
		}
	}
	sortClaims(out)
	return out, nil
}

func (m *Memory) All(_ context.Context) ([]model.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Claim, 0, len(m.claims))
	for _, c := range m.claims {
		out = append(out, cloneClaim(c))
	}
	sortClaims(out)
	return out, nil
}

func (m *Memory) HasDuplicateHash(ctx context.Context, hash, excludingUserID string) (bool, error) {
	all, err := m.All(ctx)
	if err != nil {
		return false, err
	}
	return duplicate.HasCrossUserDuplicate(all, hash, excludingUserID), nil
}

// Close is a no-op
func (m *Memory) Close() error {
	return nil
}
