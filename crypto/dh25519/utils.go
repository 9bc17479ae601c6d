package dh25519

import (
	"errors"

	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
)

var (
	ErrInvalid = errors.New("invalid input")
)

// GetSharedSecret returns the marshalled point priv*pub. Both sides of an
// exchange obtain the same 32 bytes.
func GetSharedSecret(privKey key_ed25519.PrivateKey, pubKey key_ed25519.PublicKey) ([]byte, error) {
	if len(privKey) == 0 || len(pubKey) == 0 {
		return nil, ErrInvalid
	}
	privScalar, err := privKey.ToScalar()
	if err != nil {
		return nil, err
	}
	pubPoint, err := pubKey.ToPoint()
	if err != nil {
		return nil, err
	}
	secretPoint := key_ed25519.Suite.Point().Mul(privScalar, pubPoint)
	return secretPoint.MarshalBinary()
}
