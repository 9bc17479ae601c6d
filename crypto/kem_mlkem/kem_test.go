package kem_mlkem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncapsulateDecapsulate(t *testing.T) {
	pair, err := GeneratePair()
	require.NoError(t, err)
	assert.Len(t, pair.Pub, PublicKeySize)
	assert.Len(t, pair.Priv, PrivateKeySize)

	ct, ss, err := Encapsulate(pair.Pub)
	require.NoError(t, err)
	assert.Len(t, ct, CiphertextSize)
	assert.Len(t, ss, SharedKeySize)

	decapsulated, err := Decapsulate(pair.Priv, ct)
	require.NoError(t, err)
	assert.Equal(t, ss, decapsulated)
}

func TestInvalidSizes(t *testing.T) {
	_, _, err := Encapsulate([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidPublicKeySize)

	_, err = Decapsulate([]byte{1}, make([]byte, CiphertextSize))
	assert.ErrorIs(t, err, ErrInvalidPrivateKeySize)

	pair, err := GeneratePair()
	require.NoError(t, err)
	_, err = Decapsulate(pair.Priv, []byte{1})
	assert.ErrorIs(t, err, ErrInvalidCiphertextSize)
}
