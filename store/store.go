// Package store defines the persistence the protocol layers read and write,
// and a KVStore implementing all of it over a byte-oriented Backend.
package store

import (
	"context"

	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/address"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/record"
	"github.com/google/uuid"
)

// Direction tells IsTrustedIdentity whether the key is used to send or to receive.
type Direction int

const (
	Sending Direction = iota
	Receiving
)

type SessionStore interface {
	// LoadSession returns ErrNotFound if there is no session with addr
	LoadSession(ctx context.Context, addr address.ProtocolAddress) (*record.SessionRecord, error)
	StoreSession(ctx context.Context, addr address.ProtocolAddress, rec *record.SessionRecord) error
}

type IdentityKeyStore interface {
	GetIdentityKeyPair(ctx context.Context) (key_ed25519.Pair, error)
	GetLocalRegistrationID(ctx context.Context) (uint32, error)
	// SaveIdentity records the identity key of addr and reports whether it replaced a different key
	SaveIdentity(ctx context.Context, addr address.ProtocolAddress, key key_ed25519.PublicKey) (bool, error)
	IsTrustedIdentity(ctx context.Context, addr address.ProtocolAddress, key key_ed25519.PublicKey, direction Direction) (bool, error)
	// GetIdentity returns ErrNotFound for an unknown addr
	GetIdentity(ctx context.Context, addr address.ProtocolAddress) (key_ed25519.PublicKey, error)
}

type PreKeyStore interface {
	LoadPreKey(ctx context.Context, id uint32) (*record.PreKeyRecord, error)
	StorePreKey(ctx context.Context, id uint32, rec *record.PreKeyRecord) error
	RemovePreKey(ctx context.Context, id uint32) error
}

type SignedPreKeyStore interface {
	LoadSignedPreKey(ctx context.Context, id uint32) (*record.SignedPreKeyRecord, error)
	StoreSignedPreKey(ctx context.Context, id uint32, rec *record.SignedPreKeyRecord) error
}

type KyberPreKeyStore interface {
	LoadKyberPreKey(ctx context.Context, id uint32) (*record.KyberPreKeyRecord, error)
	StoreKyberPreKey(ctx context.Context, id uint32, rec *record.KyberPreKeyRecord) error
	MarkKyberPreKeyUsed(ctx context.Context, id uint32) error
}

type SenderKeyStore interface {
	LoadSenderKey(ctx context.Context, sender address.ProtocolAddress, distributionID uuid.UUID) (*record.SenderKeyRecord, error)
	StoreSenderKey(ctx context.Context, sender address.ProtocolAddress, distributionID uuid.UUID, rec *record.SenderKeyRecord) error
}

// ProtocolStore is everything one device needs.
type ProtocolStore interface {
	SessionStore
	IdentityKeyStore
	PreKeyStore
	SignedPreKeyStore
	KyberPreKeyStore
	SenderKeyStore
}
