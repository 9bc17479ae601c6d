package sealedsender

import (
	"encoding/json"
	"fmt"

	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/signer_schnorr"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/address"
	"github.com/google/uuid"
)

// revokedServerCertificateKeyIDs lists server certificate key ids that are never accepted
var revokedServerCertificateKeyIDs = map[uint32]struct{}{
	0xDEADC357: {},
}

// signedWire is the envelope of both certificate kinds: a body and a signature over it.
type signedWire struct {
	Certificate []byte `json:"certificate"`
	Signature   []byte `json:"signature"`
}

// ServerCertificate is issued by a trust root to the key that signs sender certificates.
type ServerCertificate struct {
	keyID      uint32
	key        key_ed25519.PublicKey
	body       []byte
	signature  []byte
	serialized []byte
}

type serverBody struct {
	KeyID uint32                `json:"id"`
	Key   key_ed25519.PublicKey `json:"key"`
}

func NewServerCertificate(keyID uint32, key key_ed25519.PublicKey, trustRoot key_ed25519.PrivateKey) (*ServerCertificate, error) {
	body, err := json.Marshal(serverBody{KeyID: keyID, Key: key})
	if err != nil {
		return nil, err
	}
	sig, err := signer_schnorr.Sign(trustRoot, body)
	if err != nil {
		return nil, fmt.Errorf("failed to sign server certificate: %w", err)
	}
	serialized, err := json.Marshal(signedWire{Certificate: body, Signature: sig})
	if err != nil {
		return nil, err
	}
	return &ServerCertificate{keyID: keyID, key: key.Clone(), body: body, signature: sig, serialized: serialized}, nil
}

func DeserializeServerCertificate(data []byte) (*ServerCertificate, error) {
	var w signedWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: server certificate: %v", ErrInvalidCertificate, err)
	}
	var b serverBody
	if err := json.Unmarshal(w.Certificate, &b); err != nil {
		return nil, fmt.Errorf("%w: server certificate body: %v", ErrInvalidCertificate, err)
	}
	if err := b.Key.Validate(); err != nil {
		return nil, fmt.Errorf("%w: server key: %v", ErrInvalidCertificate, err)
	}
	return &ServerCertificate{
		keyID:      b.KeyID,
		key:        b.Key,
		body:       w.Certificate,
		signature:  w.Signature,
		serialized: append([]byte(nil), data...),
	}, nil
}

func (c *ServerCertificate) KeyID() uint32 { return c.keyID }

func (c *ServerCertificate) Key() key_ed25519.PublicKey { return c.key }

func (c *ServerCertificate) Serialize() []byte { return c.serialized }

// Validate checks the trust root signature and the revocation list.
func (c *ServerCertificate) Validate(trustRoot key_ed25519.PublicKey) error {
	if _, revoked := revokedServerCertificateKeyIDs[c.keyID]; revoked {
		return fmt.Errorf("%w: %w: key id %#x", ErrInvalidCertificate, ErrRevokedCertificate, c.keyID)
	}
	if err := signer_schnorr.Verify(trustRoot, c.body, c.signature); err != nil {
		return fmt.Errorf("%w: server certificate: %w", ErrInvalidCertificate, err)
	}
	return nil
}

// SenderCertificate asserts that an identity key belongs to a sender device
// until the expiration, signed by a server certificate.
type SenderCertificate struct {
	senderUUID     uuid.UUID
	senderE164     string
	senderDeviceID uint32
	expiration     uint64
	key            key_ed25519.PublicKey
	signer         *ServerCertificate
	body           []byte
	signature      []byte
	serialized     []byte
}

type senderBody struct {
	SenderUUID   uuid.UUID             `json:"sender_uuid"`
	SenderE164   string                `json:"sender_e164,omitempty"`
	SenderDevice uint32                `json:"sender_device"`
	Expires      uint64                `json:"expires"`
	IdentityKey  key_ed25519.PublicKey `json:"identity_key"`
	Signer       []byte                `json:"signer"`
}

// NewSenderCertificate issues a certificate signed with signerKey, the private half of signer.
// expiration is in milliseconds since the epoch.
func NewSenderCertificate(sender address.Address, deviceID uint32, key key_ed25519.PublicKey, expiration uint64, signer *ServerCertificate, signerKey key_ed25519.PrivateKey) (*SenderCertificate, error) {
	if err := sender.Validate(); err != nil {
		return nil, err
	}
	if signer == nil {
		return nil, fmt.Errorf("%w: nil server certificate", ErrInvalidArgument)
	}
	body, err := json.Marshal(senderBody{
		SenderUUID:   sender.UUID,
		SenderE164:   sender.E164,
		SenderDevice: deviceID,
		Expires:      expiration,
		IdentityKey:  key,
		Signer:       signer.Serialize(),
	})
	if err != nil {
		return nil, err
	}
	sig, err := signer_schnorr.Sign(signerKey, body)
	if err != nil {
		return nil, fmt.Errorf("failed to sign sender certificate: %w", err)
	}
	serialized, err := json.Marshal(signedWire{Certificate: body, Signature: sig})
	if err != nil {
		return nil, err
	}
	return &SenderCertificate{
		senderUUID:     sender.UUID,
		senderE164:     sender.E164,
		senderDeviceID: deviceID,
		expiration:     expiration,
		key:            key.Clone(),
		signer:         signer,
		body:           body,
		signature:      sig,
		serialized:     serialized,
	}, nil
}

func DeserializeSenderCertificate(data []byte) (*SenderCertificate, error) {
	var w signedWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}
	var b senderBody
	if err := json.Unmarshal(w.Certificate, &b); err != nil {
		return nil, fmt.Errorf("%w: body: %v", ErrInvalidCertificate, err)
	}
	if b.SenderUUID == uuid.Nil && b.SenderE164 == "" {
		return nil, fmt.Errorf("%w: no sender", ErrInvalidCertificate)
	}
	if err := b.IdentityKey.Validate(); err != nil {
		return nil, fmt.Errorf("%w: identity key: %v", ErrInvalidCertificate, err)
	}
	signer, err := DeserializeServerCertificate(b.Signer)
	if err != nil {
		return nil, err
	}
	return &SenderCertificate{
		senderUUID:     b.SenderUUID,
		senderE164:     b.SenderE164,
		senderDeviceID: b.SenderDevice,
		expiration:     b.Expires,
		key:            b.IdentityKey,
		signer:         signer,
		body:           w.Certificate,
		signature:      w.Signature,
		serialized:     append([]byte(nil), data...),
	}, nil
}

// Sender returns the certified address.
func (c *SenderCertificate) Sender() address.Address {
	return address.Address{UUID: c.senderUUID, E164: c.senderE164}
}

func (c *SenderCertificate) SenderUUID() uuid.UUID { return c.senderUUID }

func (c *SenderCertificate) SenderE164() string { return c.senderE164 }

func (c *SenderCertificate) SenderDeviceID() uint32 { return c.senderDeviceID }

// Expiration is in milliseconds since the epoch.
func (c *SenderCertificate) Expiration() uint64 { return c.expiration }

func (c *SenderCertificate) Key() key_ed25519.PublicKey { return c.key }

func (c *SenderCertificate) Signer() *ServerCertificate { return c.signer }

func (c *SenderCertificate) Serialize() []byte { return c.serialized }

// Validate checks the chain up to trustRoot and that the certificate
// has not expired at validationTime (milliseconds since the epoch).
func (c *SenderCertificate) Validate(trustRoot key_ed25519.PublicKey, validationTime uint64) error {
	if err := c.signer.Validate(trustRoot); err != nil {
		return err
	}
	if err := signer_schnorr.Verify(c.signer.Key(), c.body, c.signature); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCertificate, err)
	}
	if c.expiration < validationTime {
		return fmt.Errorf("%w: %w: expired at %d, validated at %d", ErrInvalidCertificate, ErrCertificateExpired, c.expiration, validationTime)
	}
	return nil
}
