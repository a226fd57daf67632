// Package store holds the account-to-wallet association. The interface is
// injected so a durable implementation can replace the in-memory one without
// touching the wallet service.
package store

import (
	"context"
	"sync"
)

// Associations maps one account id to at most one wallet handle id. Writes
// for the same key resolve last-write-wins with no ordering guarantee; this
// is an accepted limitation since upstream uniqueness constraints prevent
// concurrent registrations for one identity.
type Associations interface {
	Get(ctx context.Context, accountID string) (walletID string, ok bool)
	Set(ctx context.Context, accountID, walletID string)
	Delete(ctx context.Context, accountID string)
}

// Memory is the volatile reference implementation. All associations are lost
// on restart; callers treat the resulting "not found" as a normal condition
// requiring re-registration, not as corruption.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, accountID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	walletID, ok := m.data[accountID]
	return walletID, ok
}

func (m *Memory) Set(_ context.Context, accountID, walletID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[accountID] = walletID
}

func (m *Memory) Delete(_ context.Context, accountID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, accountID)
}
