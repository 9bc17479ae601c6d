package key_ed25519

import (
	"bytes"
	"errors"

	"go.dedis.ch/kyber/v4"
	"go.dedis.ch/kyber/v4/suites"
)

type (
	// PrivateKey is a 32-byte private key
	PrivateKey []byte
	// PublicKey is a 32-byte public key
	PublicKey []byte
	Pair      struct {
		Priv PrivateKey `json:"priv,omitempty"`
		Pub  PublicKey  `json:"pub"`
	}
)

const (
	PrivateKeySize = 32
	PublicKeySize  = 32
)

var (
	Suite = suites.MustFind("Ed25519") // Use the edwards25519-curve

	ErrInvalidKeySize = errors.New("invalid key size")
)

func New() (PrivateKey, error) {
	privK := Suite.Scalar().Pick(Suite.RandomStream())
	return privK.MarshalBinary()
}

// GeneratePair returns a fresh private key together with its public key.
func GeneratePair() (Pair, error) {
	priv, err := New()
	if err != nil {
		return Pair{}, err
	}
	pub, err := priv.Public()
	if err != nil {
		return Pair{}, err
	}
	return Pair{Priv: priv, Pub: pub}, nil
}

func (privB PrivateKey) Public() (PublicKey, error) {
	privK, err := privB.ToScalar()
	if err != nil {
		return nil, err
	}
	pubK := Suite.Point().Mul(privK, nil)
	return pubK.MarshalBinary()
}

func (privB PrivateKey) ToScalar() (kyber.Scalar, error) {
	if len(privB) != PrivateKeySize {
		return nil, ErrInvalidKeySize
	}
	privK := Suite.Scalar()
	if err := privK.UnmarshalBinary(privB); err != nil {
		return nil, err
	}
	return privK, nil
}

func (pubB PublicKey) ToPoint() (kyber.Point, error) {
	if len(pubB) != PublicKeySize {
		return nil, ErrInvalidKeySize
	}
	pubK := Suite.Point()
	if err := pubK.UnmarshalBinary(pubB); err != nil {
		return nil, err
	}
	return pubK, nil
}

// Validate reports whether the bytes decode to a point on the curve.
func (pubB PublicKey) Validate() error {
	_, err := pubB.ToPoint()
	return err
}

func (pubB PublicKey) Equals(other PublicKey) bool {
	return len(pubB) > 0 && bytes.Equal(pubB, other)
}

// Clone returns a copy that does not share memory with the receiver.
func (pubB PublicKey) Clone() PublicKey {
	if pubB == nil {
		return nil
	}
	return append(PublicKey(nil), pubB...)
}

// FromSeed derives a key pair deterministically from seed.
func FromSeed(seed []byte) (Pair, error) {
	privK := Suite.Scalar().Pick(Suite.XOF(seed))
	priv, err := privK.MarshalBinary()
	if err != nil {
		return Pair{}, err
	}
	pub, err := PrivateKey(priv).Public()
	if err != nil {
		return Pair{}, err
	}
	return Pair{Priv: priv, Pub: pub}, nil
}
