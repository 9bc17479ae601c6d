// Package memory is an in-process store.Backend.
package memory

import (
	"context"
	"sync"

	"github.com/Setheum-Foundation/SignalMetadataKit/store"
)

type Backend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ store.Backend = (*Backend)(nil)

func New() *Backend {
	return &Backend{data: make(map[string][]byte)}
}

func (b *Backend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (b *Backend) Put(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = append([]byte(nil), value...)
	return nil
}

func (b *Backend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
	return nil
}

// Len returns the number of stored keys.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}
