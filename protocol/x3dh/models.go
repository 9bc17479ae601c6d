package x3dh

import (
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/signer_schnorr"
)

// ReceivedBundle is the public part of Bob's pre-key bundle as Alice sees it.
type ReceivedBundle struct {
	IdentityKey     key_ed25519.PublicKey
	SignedPreKey    key_ed25519.PublicKey
	SignedPreKeySig []byte
	OneTimePreKey   key_ed25519.PublicKey // optional
	KyberPreKey     []byte                // optional, ML-KEM-768 public key
	KyberPreKeySig  []byte
}

// Verify checks Bob's signatures over the signed pre-key and, if present, the Kyber pre-key.
func (bob *ReceivedBundle) Verify() error {
	if err := signer_schnorr.Verify(bob.IdentityKey, bob.SignedPreKey, bob.SignedPreKeySig); err != nil {
		return err
	}
	if len(bob.KyberPreKey) > 0 {
		if err := signer_schnorr.Verify(bob.IdentityKey, bob.KyberPreKey, bob.KyberPreKeySig); err != nil {
			return err
		}
	}
	return nil
}

// Initiation is what Alice keeps and sends after the key agreement.
type Initiation struct {
	SharedKey       []byte
	BaseKey         key_ed25519.PublicKey
	KyberCiphertext []byte
}

// ResponderKeys are Bob's private keys referenced by Alice's first message.
type ResponderKeys struct {
	IdentityKey   key_ed25519.PrivateKey
	SignedPreKey  key_ed25519.PrivateKey
	OneTimePreKey key_ed25519.PrivateKey // optional
	KyberPreKey   []byte                 // optional, ML-KEM-768 private key
}

// ReceivedInitiation is the key material carried by Alice's first message.
type ReceivedInitiation struct {
	IdentityKey     key_ed25519.PublicKey
	BaseKey         key_ed25519.PublicKey
	KyberCiphertext []byte
}
