package sealedsender

import (
	"encoding/json"
	"fmt"

	"github.com/Setheum-Foundation/SignalMetadataKit/configs"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/aes256"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/dh25519"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/hkdf"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/hmac"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/address"
)

const (
	messageKeySize = 32
	authTagSize    = 16
)

// Recipient is one destination device of a multi-recipient message.
type Recipient struct {
	Address        address.ProtocolAddress
	RegistrationID uint32
	IdentityKey    key_ed25519.PublicKey
}

type recipientWire struct {
	Name           string           `json:"name"`
	DeviceID       address.DeviceID `json:"device_id"`
	RegistrationID uint32           `json:"registration_id"`
	EncryptedKey   []byte           `json:"encrypted_key"`
	AuthTag        []byte           `json:"auth_tag"`
}

type multiSentWire struct {
	Recipients      []recipientWire       `json:"recipients"`
	EphemeralPublic key_ed25519.PublicKey `json:"ephemeral_public"`
	Ciphertext      []byte                `json:"ciphertext"`
}

type multiReceivedWire struct {
	EncryptedKey    []byte                `json:"encrypted_key"`
	AuthTag         []byte                `json:"auth_tag"`
	EphemeralPublic key_ed25519.PublicKey `json:"ephemeral_public"`
	Ciphertext      []byte                `json:"ciphertext"`
}

// SplitMessage is the part of a multi-recipient message destined to one device.
type SplitMessage struct {
	Address        address.ProtocolAddress
	RegistrationID uint32
	Message        []byte
}

// SealMultiRecipient encrypts content once and wraps its key for every recipient.
func SealMultiRecipient(recipients []Recipient, content *UnidentifiedSenderMessageContent, senderIdentity key_ed25519.Pair) ([]byte, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}
	if content == nil {
		return nil, fmt.Errorf("%w: nil content", ErrInvalidArgument)
	}

	m, err := aes256.NewKey()
	if err != nil {
		return nil, err
	}
	ephemeral, contentKey, err := multiKeys(m)
	if err != nil {
		return nil, err
	}
	ciphertext, err := sealWith(contentKey, content.Serialize())
	if err != nil {
		return nil, err
	}

	w := multiSentWire{
		Recipients:      make([]recipientWire, 0, len(recipients)),
		EphemeralPublic: ephemeral.Pub,
		Ciphertext:      ciphertext,
	}
	for _, r := range recipients {
		pad, err := keyPad(ephemeral.Priv, r.IdentityKey, ephemeral.Pub, r.IdentityKey)
		if err != nil {
			return nil, fmt.Errorf("failed to wrap key for %s: %w", r.Address, err)
		}
		encryptedKey := xor(m, pad)
		tag, err := authTag(senderIdentity.Priv, r.IdentityKey, ephemeral.Pub, encryptedKey)
		if err != nil {
			return nil, fmt.Errorf("failed to authenticate for %s: %w", r.Address, err)
		}
		w.Recipients = append(w.Recipients, recipientWire{
			Name:           r.Address.Name,
			DeviceID:       r.Address.DeviceID,
			RegistrationID: r.RegistrationID,
			EncryptedKey:   encryptedKey,
			AuthTag:        tag,
		})
	}

	body, err := json.Marshal(w)
	if err != nil {
		return nil, err
	}
	return append([]byte{versionMultiSent}, body...), nil
}

// SplitMultiRecipientMessage turns a sent multi-recipient message into one
// received message per recipient, in the order they were sealed.
func SplitMultiRecipientMessage(data []byte) ([]SplitMessage, error) {
	if len(data) == 0 || data[0] != versionMultiSent {
		return nil, fmt.Errorf("%w: not a multi-recipient message", ErrInvalidSealedMessage)
	}
	var w multiSentWire
	if err := json.Unmarshal(data[1:], &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSealedMessage, err)
	}

	out := make([]SplitMessage, 0, len(w.Recipients))
	for _, r := range w.Recipients {
		body, err := json.Marshal(multiReceivedWire{
			EncryptedKey:    r.EncryptedKey,
			AuthTag:         r.AuthTag,
			EphemeralPublic: w.EphemeralPublic,
			Ciphertext:      w.Ciphertext,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, SplitMessage{
			Address:        address.NewProtocolAddress(r.Name, r.DeviceID),
			RegistrationID: r.RegistrationID,
			Message:        append([]byte{versionMultiReceived}, body...),
		})
	}
	return out, nil
}

func unsealMultiReceived(body []byte, local key_ed25519.Pair) (*UnidentifiedSenderMessageContent, error) {
	var w multiReceivedWire
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSealedMessage, err)
	}
	if len(w.EncryptedKey) != messageKeySize || len(w.AuthTag) != authTagSize {
		return nil, fmt.Errorf("%w: malformed recipient entry", ErrInvalidSealedMessage)
	}
	if err := w.EphemeralPublic.Validate(); err != nil {
		return nil, fmt.Errorf("%w: ephemeral key: %v", ErrInvalidSealedMessage, err)
	}

	// 1. Recover M and check it reproduces the ephemeral key
	pad, err := keyPad(local.Priv, w.EphemeralPublic, w.EphemeralPublic, local.Pub)
	if err != nil {
		return nil, err
	}
	m := xor(w.EncryptedKey, pad)
	ephemeral, contentKey, err := multiKeys(m)
	if err != nil {
		return nil, err
	}
	if !ephemeral.Pub.Equals(w.EphemeralPublic) {
		return nil, fmt.Errorf("%w: ephemeral key mismatch", ErrInvalidSealedMessage)
	}

	// 2. Decrypt the shared content
	plaintext, err := openWith(contentKey, w.Ciphertext)
	if err != nil {
		return nil, err
	}
	content, err := DeserializeUnidentifiedSenderMessageContent(plaintext)
	if err != nil {
		return nil, err
	}

	// 3. The sender must be the holder of the certified identity key
	tag, err := authTag(local.Priv, content.SenderCertificate().Key(), w.EphemeralPublic, w.EncryptedKey)
	if err != nil {
		return nil, err
	}
	if !hmac.Equal(tag, w.AuthTag) {
		return nil, ErrInvalidAuthTag
	}
	return content, nil
}

// multiKeys derives the ephemeral key pair and the content key from M.
func multiKeys(m []byte) (key_ed25519.Pair, []byte, error) {
	derived, err := hkdf.DeriveKey(m, nil, configs.HKDFInfoSealedV2Key, 64)
	if err != nil {
		return key_ed25519.Pair{}, nil, err
	}
	ephemeral, err := key_ed25519.FromSeed(derived[:32])
	if err != nil {
		return key_ed25519.Pair{}, nil, err
	}
	return ephemeral, derived[32:], nil
}

func keyPad(priv key_ed25519.PrivateKey, pub, ephemeral, recipient key_ed25519.PublicKey) ([]byte, error) {
	secret, err := dh25519.GetSharedSecret(priv, pub)
	if err != nil {
		return nil, err
	}
	return hkdf.DeriveKey(secret, concat(ephemeral, recipient), configs.HKDFInfoSealedV2Body, messageKeySize)
}

func authTag(priv key_ed25519.PrivateKey, pub, ephemeral key_ed25519.PublicKey, encryptedKey []byte) ([]byte, error) {
	secret, err := dh25519.GetSharedSecret(priv, pub)
	if err != nil {
		return nil, err
	}
	return hkdf.DeriveKey(secret, concat(ephemeral, encryptedKey), configs.HKDFInfoSealedV2Auth, authTagSize)
}

func xor(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}
