package dh25519

import (
	"testing"

	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSharedSecret(t *testing.T) {
	alice, err := key_ed25519.GeneratePair()
	require.NoError(t, err)
	bob, err := key_ed25519.GeneratePair()
	require.NoError(t, err)

	ab, err := GetSharedSecret(alice.Priv, bob.Pub)
	require.NoError(t, err)
	ba, err := GetSharedSecret(bob.Priv, alice.Pub)
	require.NoError(t, err)

	assert.Equal(t, ab, ba)
	assert.Len(t, ab, 32)
}

func TestGetSharedSecretInvalid(t *testing.T) {
	pair, err := key_ed25519.GeneratePair()
	require.NoError(t, err)

	_, err = GetSharedSecret(nil, pair.Pub)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = GetSharedSecret(pair.Priv, nil)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = GetSharedSecret(pair.Priv, key_ed25519.PublicKey{1, 2})
	assert.Error(t, err)
}
