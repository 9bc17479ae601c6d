package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/address"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/x3dh"
	"github.com/Setheum-Foundation/SignalMetadataKit/store"
)

// PreKeyBundle is what a device publishes so others can start a session with it.
type PreKeyBundle struct {
	RegistrationID  uint32                `json:"registration_id"`
	DeviceID        address.DeviceID      `json:"device_id"`
	PreKeyID        *uint32               `json:"pre_key_id,omitempty"`
	PreKey          key_ed25519.PublicKey `json:"pre_key,omitempty"`
	SignedPreKeyID  uint32                `json:"signed_pre_key_id"`
	SignedPreKey    key_ed25519.PublicKey `json:"signed_pre_key"`
	SignedPreKeySig []byte                `json:"signed_pre_key_sig"`
	KyberPreKeyID   *uint32               `json:"kyber_pre_key_id,omitempty"`
	KyberPreKey     []byte                `json:"kyber_pre_key,omitempty"`
	KyberPreKeySig  []byte                `json:"kyber_pre_key_sig,omitempty"`
	IdentityKey     key_ed25519.PublicKey `json:"identity_key"`
}

func (b *PreKeyBundle) received() *x3dh.ReceivedBundle {
	return &x3dh.ReceivedBundle{
		IdentityKey:     b.IdentityKey,
		SignedPreKey:    b.SignedPreKey,
		SignedPreKeySig: b.SignedPreKeySig,
		OneTimePreKey:   b.PreKey,
		KyberPreKey:     b.KyberPreKey,
		KyberPreKeySig:  b.KyberPreKeySig,
	}
}

// NewBundle assembles the public bundle of the local device from its own store.
// preKeyID and kyberPreKeyID may be nil.
func NewBundle(ctx context.Context, st store.ProtocolStore, deviceID address.DeviceID, preKeyID *uint32, signedPreKeyID uint32, kyberPreKeyID *uint32) (*PreKeyBundle, error) {
	identity, err := st.GetIdentityKeyPair(ctx)
	if err != nil {
		return nil, err
	}
	regID, err := st.GetLocalRegistrationID(ctx)
	if err != nil {
		return nil, err
	}
	signed, err := st.LoadSignedPreKey(ctx, signedPreKeyID)
	if err != nil {
		return nil, preKeyErr("signed pre-key", signedPreKeyID, err)
	}

	bundle := &PreKeyBundle{
		RegistrationID:  regID,
		DeviceID:        deviceID,
		SignedPreKeyID:  signed.ID,
		SignedPreKey:    signed.KeyPair.Pub,
		SignedPreKeySig: signed.Signature,
		IdentityKey:     identity.Pub,
	}
	if preKeyID != nil {
		pk, err := st.LoadPreKey(ctx, *preKeyID)
		if err != nil {
			return nil, preKeyErr("pre-key", *preKeyID, err)
		}
		bundle.PreKeyID = preKeyID
		bundle.PreKey = pk.KeyPair.Pub
	}
	if kyberPreKeyID != nil {
		kpk, err := st.LoadKyberPreKey(ctx, *kyberPreKeyID)
		if err != nil {
			return nil, preKeyErr("kyber pre-key", *kyberPreKeyID, err)
		}
		bundle.KyberPreKeyID = kyberPreKeyID
		bundle.KyberPreKey = kpk.KeyPair.Pub
		bundle.KyberPreKeySig = kpk.Signature
	}
	return bundle, nil
}

func preKeyErr(kind string, id uint32, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s %d", ErrInvalidPreKeyID, kind, id)
	}
	return fmt.Errorf("failed to load %s %d: %w", kind, id, err)
}
