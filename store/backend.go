package store

import "context"

// Backend is a flat key/value space. Get returns ErrNotFound for a missing key.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type prefixed struct {
	backend Backend
	prefix  string
}

// Prefixed scopes every key of backend under prefix, so several devices can share one database.
func Prefixed(backend Backend, prefix string) Backend {
	return &prefixed{backend: backend, prefix: prefix + "/"}
}

func (p *prefixed) Get(ctx context.Context, key string) ([]byte, error) {
	return p.backend.Get(ctx, p.prefix+key)
}

func (p *prefixed) Put(ctx context.Context, key string, value []byte) error {
	return p.backend.Put(ctx, p.prefix+key, value)
}

func (p *prefixed) Delete(ctx context.Context, key string) error {
	return p.backend.Delete(ctx, p.prefix+key)
}
