package x3dh

import (
	"github.com/Setheum-Foundation/SignalMetadataKit/configs"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/dh25519"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/hkdf"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/kem_mlkem"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
)

// https://signal.org/docs/specifications/x3dh/ and
// https://signal.org/docs/specifications/pqxdh/
// Terminology:
// - Alice: sender
// - Bob: receiver

// PerformKeyAgreement runs Alice's side against Bob's bundle.
func PerformKeyAgreement(bob *ReceivedBundle, aliceIdKey key_ed25519.PrivateKey) (*Initiation, error) {
	// 1. Alice verifies Bob's signatures
	if err := bob.Verify(); err != nil {
		return nil, err
	}

	// 2. Alice generates an ephemeral key pair
	eph, err := key_ed25519.GeneratePair()
	if err != nil {
		return nil, err
	}

	// 3. Alice computes the DH outputs
	dh1, err := dh25519.GetSharedSecret(aliceIdKey, bob.SignedPreKey)
	if err != nil {
		return nil, err
	}
	dh2, err := dh25519.GetSharedSecret(eph.Priv, bob.IdentityKey)
	if err != nil {
		return nil, err
	}
	dh3, err := dh25519.GetSharedSecret(eph.Priv, bob.SignedPreKey)
	if err != nil {
		return nil, err
	}
	var dh4 []byte
	if len(bob.OneTimePreKey) > 0 {
		if dh4, err = dh25519.GetSharedSecret(eph.Priv, bob.OneTimePreKey); err != nil {
			return nil, err
		}
	}

	// 4. Alice encapsulates to the Kyber pre-key if Bob offers one
	var kyberCt, kyberSS []byte
	if len(bob.KyberPreKey) > 0 {
		if kyberCt, kyberSS, err = kem_mlkem.Encapsulate(bob.KyberPreKey); err != nil {
			return nil, err
		}
	}

	// 5. Alice derives the key
	sharedKey, err := deriveSharedKey(dh1, dh2, dh3, dh4, kyberSS)
	if err != nil {
		return nil, err
	}

	return &Initiation{
		SharedKey:       sharedKey,
		BaseKey:         eph.Pub,
		KyberCiphertext: kyberCt,
	}, nil
}

// RespondKeyAgreement runs Bob's side for Alice's first message.
func RespondKeyAgreement(bob *ResponderKeys, alice *ReceivedInitiation) ([]byte, error) {
	// 1. Bob computes the DH outputs
	dh1, err := dh25519.GetSharedSecret(bob.SignedPreKey, alice.IdentityKey)
	if err != nil {
		return nil, err
	}
	dh2, err := dh25519.GetSharedSecret(bob.IdentityKey, alice.BaseKey)
	if err != nil {
		return nil, err
	}
	dh3, err := dh25519.GetSharedSecret(bob.SignedPreKey, alice.BaseKey)
	if err != nil {
		return nil, err
	}
	var dh4 []byte
	if len(bob.OneTimePreKey) > 0 {
		if dh4, err = dh25519.GetSharedSecret(bob.OneTimePreKey, alice.BaseKey); err != nil {
			return nil, err
		}
	}

	// 2. Bob decapsulates the Kyber secret
	var kyberSS []byte
	switch {
	case len(bob.KyberPreKey) > 0 && len(alice.KyberCiphertext) == 0:
		return nil, ErrMissingKyberCiphertext
	case len(bob.KyberPreKey) == 0 && len(alice.KyberCiphertext) > 0:
		return nil, ErrUnexpectedKyber
	case len(bob.KyberPreKey) > 0:
		if kyberSS, err = kem_mlkem.Decapsulate(bob.KyberPreKey, alice.KyberCiphertext); err != nil {
			return nil, err
		}
	}

	// 3. Bob derives the key
	return deriveSharedKey(dh1, dh2, dh3, dh4, kyberSS)
}

// deriveSharedKey computes HKDF(F || DH1 || DH2 || DH3 [|| DH4] [|| SS]).
func deriveSharedKey(parts ...[]byte) ([]byte, error) {
	sk := make([]byte, crypto.KeySize, crypto.KeySize*6)
	for i := range sk {
		sk[i] = 0xFF
	}
	for _, p := range parts {
		sk = append(sk, p...)
	}
	return hkdf.DeriveKey(sk, make([]byte, crypto.KeySize), configs.HKDFInfoX3DH, crypto.KeySize)
}
