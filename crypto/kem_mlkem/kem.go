// Package kem_mlkem wraps ML-KEM-768 for the post-quantum pre-key used in the
// pre-key bootstrap.
package kem_mlkem

import (
	"errors"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
)

const (
	// PublicKeySize is the size of an ML-KEM-768 public key in bytes.
	PublicKeySize = mlkem768.PublicKeySize
	// PrivateKeySize is the size of an ML-KEM-768 secret key in bytes.
	PrivateKeySize = mlkem768.PrivateKeySize
	// CiphertextSize is the size of an ML-KEM-768 ciphertext in bytes.
	CiphertextSize = mlkem768.CiphertextSize
	// SharedKeySize is the size of the decapsulated shared secret in bytes.
	SharedKeySize = mlkem768.SharedKeySize
)

var (
	ErrInvalidPublicKeySize  = errors.New("invalid ML-KEM public key size")
	ErrInvalidPrivateKeySize = errors.New("invalid ML-KEM private key size")
	ErrInvalidCiphertextSize = errors.New("invalid ML-KEM ciphertext size")
)

// Pair holds raw ML-KEM-768 key bytes.
type Pair struct {
	Pub  []byte `json:"pub"`
	Priv []byte `json:"priv,omitempty"`
}

func scheme() kem.Scheme {
	return mlkem768.Scheme()
}

// GeneratePair creates a new ML-KEM-768 key pair.
func GeneratePair() (Pair, error) {
	pub, priv, err := scheme().GenerateKeyPair()
	if err != nil {
		return Pair{}, err
	}
	pubBytes, err := pub.MarshalBinary()
	if err != nil {
		return Pair{}, err
	}
	privBytes, err := priv.MarshalBinary()
	if err != nil {
		return Pair{}, err
	}
	return Pair{Pub: pubBytes, Priv: privBytes}, nil
}

// Encapsulate returns a fresh shared secret and the ciphertext that carries
// it to the holder of the private key.
func Encapsulate(publicKey []byte) (ciphertext, sharedSecret []byte, err error) {
	if len(publicKey) != PublicKeySize {
		return nil, nil, ErrInvalidPublicKeySize
	}
	pub, err := scheme().UnmarshalBinaryPublicKey(publicKey)
	if err != nil {
		return nil, nil, err
	}
	return scheme().Encapsulate(pub)
}

// Decapsulate recovers the shared secret from an encapsulation ciphertext.
func Decapsulate(privateKey, ciphertext []byte) ([]byte, error) {
	if len(privateKey) != PrivateKeySize {
		return nil, ErrInvalidPrivateKeySize
	}
	if len(ciphertext) != CiphertextSize {
		return nil, ErrInvalidCiphertextSize
	}
	priv, err := scheme().UnmarshalBinaryPrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	return scheme().Decapsulate(priv, ciphertext)
}
