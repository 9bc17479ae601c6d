package sealedsender

import (
	"encoding/json"
	"fmt"

	"github.com/Setheum-Foundation/SignalMetadataKit/configs"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/dh25519"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/hkdf"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"

	"golang.org/x/crypto/chacha20poly1305"
)

// Envelope version bytes
const (
	versionSingle            byte = 0x11
	versionMultiReceived     byte = 0x22
	versionMultiSent         byte = 0x23
	ephemeralDerivationSize       = 64
	staticDerivationSize          = 32
)

// Every key below encrypts exactly one message, so the nonce is fixed
var zeroNonce = make([]byte, chacha20poly1305.NonceSize)

type singleWire struct {
	EphemeralPublic  key_ed25519.PublicKey `json:"ephemeral_public"`
	EncryptedStatic  []byte                `json:"encrypted_static"`
	EncryptedMessage []byte                `json:"encrypted_message"`
}

// Seal wraps content for the holder of destIdentity. The sender identity key
// travels encrypted alongside it.
func Seal(destIdentity key_ed25519.PublicKey, content *UnidentifiedSenderMessageContent, senderIdentity key_ed25519.Pair) ([]byte, error) {
	if content == nil {
		return nil, fmt.Errorf("%w: nil content", ErrInvalidArgument)
	}
	ephemeral, err := key_ed25519.GeneratePair()
	if err != nil {
		return nil, err
	}

	// 1. Ephemeral layer hides the sender identity key
	ephemeralSecret, err := dh25519.GetSharedSecret(ephemeral.Priv, destIdentity)
	if err != nil {
		return nil, fmt.Errorf("failed to agree on ephemeral secret: %w", err)
	}
	chainKey, cipherKey, err := ephemeralKeys(ephemeralSecret, destIdentity, ephemeral.Pub)
	if err != nil {
		return nil, err
	}
	encryptedStatic, err := sealWith(cipherKey, senderIdentity.Pub)
	if err != nil {
		return nil, err
	}

	// 2. Static layer authenticates the sender identity key
	staticSecret, err := dh25519.GetSharedSecret(senderIdentity.Priv, destIdentity)
	if err != nil {
		return nil, fmt.Errorf("failed to agree on static secret: %w", err)
	}
	staticKey, err := staticKey(staticSecret, chainKey, encryptedStatic)
	if err != nil {
		return nil, err
	}
	encryptedMessage, err := sealWith(staticKey, content.Serialize())
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(singleWire{
		EphemeralPublic:  ephemeral.Pub,
		EncryptedStatic:  encryptedStatic,
		EncryptedMessage: encryptedMessage,
	})
	if err != nil {
		return nil, err
	}
	return append([]byte{versionSingle}, body...), nil
}

// Unseal recovers the content of a single-recipient or received
// multi-recipient envelope addressed to localIdentity.
func Unseal(data []byte, localIdentity key_ed25519.Pair) (*UnidentifiedSenderMessageContent, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSealedMessage)
	}
	switch data[0] {
	case versionSingle:
		return unsealSingle(data[1:], localIdentity)
	case versionMultiReceived:
		return unsealMultiReceived(data[1:], localIdentity)
	case versionMultiSent:
		return nil, fmt.Errorf("%w: multi-recipient message must be split before delivery", ErrUnsupportedVersion)
	default:
		return nil, fmt.Errorf("%w: %#x", ErrUnsupportedVersion, data[0])
	}
}

func unsealSingle(body []byte, local key_ed25519.Pair) (*UnidentifiedSenderMessageContent, error) {
	var w singleWire
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSealedMessage, err)
	}
	if err := w.EphemeralPublic.Validate(); err != nil {
		return nil, fmt.Errorf("%w: ephemeral key: %v", ErrInvalidSealedMessage, err)
	}

	ephemeralSecret, err := dh25519.GetSharedSecret(local.Priv, w.EphemeralPublic)
	if err != nil {
		return nil, err
	}
	chainKey, cipherKey, err := ephemeralKeys(ephemeralSecret, local.Pub, w.EphemeralPublic)
	if err != nil {
		return nil, err
	}
	staticPub, err := openWith(cipherKey, w.EncryptedStatic)
	if err != nil {
		return nil, err
	}
	senderKey := key_ed25519.PublicKey(staticPub)
	if err := senderKey.Validate(); err != nil {
		return nil, fmt.Errorf("%w: static key: %v", ErrInvalidSealedMessage, err)
	}

	staticSecret, err := dh25519.GetSharedSecret(local.Priv, senderKey)
	if err != nil {
		return nil, err
	}
	key, err := staticKey(staticSecret, chainKey, w.EncryptedStatic)
	if err != nil {
		return nil, err
	}
	plaintext, err := openWith(key, w.EncryptedMessage)
	if err != nil {
		return nil, err
	}

	content, err := DeserializeUnidentifiedSenderMessageContent(plaintext)
	if err != nil {
		return nil, err
	}
	if !content.SenderCertificate().Key().Equals(senderKey) {
		return nil, ErrCertificateKeyMismatch
	}
	return content, nil
}

func ephemeralKeys(secret []byte, recipient, ephemeral key_ed25519.PublicKey) (chainKey, cipherKey []byte, err error) {
	salt := concat(recipient, ephemeral)
	derived, err := hkdf.DeriveKey(secret, salt, configs.HKDFInfoSealedEphemera, ephemeralDerivationSize)
	if err != nil {
		return nil, nil, err
	}
	return derived[:32], derived[32:], nil
}

func staticKey(secret, chainKey, encryptedStatic []byte) ([]byte, error) {
	return hkdf.DeriveKey(secret, concat(chainKey, encryptedStatic), configs.HKDFInfoSealedStatic, staticDerivationSize)
}

func sealWith(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, zeroNonce, plaintext, nil), nil
}

func openWith(key, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, zeroNonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSealedMessage, err)
	}
	return plaintext, nil
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
