// Package storetest holds the checks every store.Backend must pass.
package storetest

import (
	"context"
	"testing"

	"github.com/Setheum-Foundation/SignalMetadataKit/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBackendTests exercises b. Keys are namespaced with t.Name() so shared servers can be used.
func RunBackendTests(t *testing.T, b store.Backend) {
	ctx := context.Background()
	key := func(k string) string { return t.Name() + "/" + k }

	t.Run("missing key", func(t *testing.T) {
		_, err := b.Get(ctx, key("missing"))
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("put get overwrite delete", func(t *testing.T) {
		k := key("value")
		require.NoError(t, b.Put(ctx, k, []byte("one")))
		v, err := b.Get(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, []byte("one"), v)

		require.NoError(t, b.Put(ctx, k, []byte("two")))
		v, err = b.Get(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, []byte("two"), v)

		require.NoError(t, b.Delete(ctx, k))
		_, err = b.Get(ctx, k)
		assert.ErrorIs(t, err, store.ErrNotFound)

		// Deleting again is not an error
		assert.NoError(t, b.Delete(ctx, k))
	})

	t.Run("binary values", func(t *testing.T) {
		k := key("binary")
		value := []byte{0x00, 0xff, 0x10, 0x00}
		require.NoError(t, b.Put(ctx, k, value))
		v, err := b.Get(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, value, v)
	})

	t.Run("prefixed", func(t *testing.T) {
		alice := store.Prefixed(b, key("alice"))
		bob := store.Prefixed(b, key("bob"))
		require.NoError(t, alice.Put(ctx, "k", []byte("a")))
		_, err := bob.Get(ctx, "k")
		assert.ErrorIs(t, err, store.ErrNotFound)
		v, err := b.Get(ctx, key("alice")+"/k")
		require.NoError(t, err)
		assert.Equal(t, []byte("a"), v)
	})
}
