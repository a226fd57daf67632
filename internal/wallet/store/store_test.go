package store_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opalhq/walletd/internal/wallet/store"
)

func TestMemoryGetSetDelete(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	_, ok := m.Get(ctx, "acct-1")
	assert.False(t, ok)

	m.Set(ctx, "acct-1", "wallet-1")
	walletID, ok := m.Get(ctx, "acct-1")
	assert.True(t, ok)
	assert.Equal(t, "wallet-1", walletID)

	// last write wins
	m.Set(ctx, "acct-1", "wallet-2")
	walletID, _ = m.Get(ctx, "acct-1")
	assert.Equal(t, "wallet-2", walletID)

	m.Delete(ctx, "acct-1")
	_, ok = m.Get(ctx, "acct-1")
	assert.False(t, ok)
}

func TestMemoryConcurrentDistinctKeys(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n%26))
			m.Set(ctx, key, "wallet")
			m.Get(ctx, key)
		}(i)
	}
	wg.Wait()
}
