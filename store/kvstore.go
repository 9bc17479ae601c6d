package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Setheum-Foundation/SignalMetadataKit/configs"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/address"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/record"
	"github.com/google/uuid"
)

// KVStore implements ProtocolStore with JSON records in a Backend. Remote
// identities are trusted on first use.
type KVStore struct {
	backend        Backend
	identity       key_ed25519.Pair
	registrationID uint32
}

var _ ProtocolStore = (*KVStore)(nil)

func NewKVStore(backend Backend, identity key_ed25519.Pair, registrationID uint32) *KVStore {
	return &KVStore{
		backend:        backend,
		identity:       identity,
		registrationID: registrationID,
	}
}

func (s *KVStore) LoadSession(ctx context.Context, addr address.ProtocolAddress) (*record.SessionRecord, error) {
	data, err := s.backend.Get(ctx, fmt.Sprintf(configs.StoreSessionKey, addr))
	if err != nil {
		return nil, err
	}
	rec, err := record.DeserializeSessionRecord(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode session for %s: %w", addr, err)
	}
	return rec, nil
}

func (s *KVStore) StoreSession(ctx context.Context, addr address.ProtocolAddress, rec *record.SessionRecord) error {
	data, err := rec.Serialize()
	if err != nil {
		return fmt.Errorf("failed to encode session for %s: %w", addr, err)
	}
	return s.backend.Put(ctx, fmt.Sprintf(configs.StoreSessionKey, addr), data)
}

func (s *KVStore) GetIdentityKeyPair(context.Context) (key_ed25519.Pair, error) {
	return s.identity, nil
}

func (s *KVStore) GetLocalRegistrationID(context.Context) (uint32, error) {
	return s.registrationID, nil
}

func (s *KVStore) SaveIdentity(ctx context.Context, addr address.ProtocolAddress, key key_ed25519.PublicKey) (bool, error) {
	existing, err := s.GetIdentity(ctx, addr)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if existing.Equals(key) {
		return false, nil
	}
	if err := s.backend.Put(ctx, fmt.Sprintf(configs.StoreIdentityKey, addr), key); err != nil {
		return false, err
	}
	return len(existing) > 0, nil
}

func (s *KVStore) IsTrustedIdentity(ctx context.Context, addr address.ProtocolAddress, key key_ed25519.PublicKey, _ Direction) (bool, error) {
	existing, err := s.GetIdentity(ctx, addr)
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return existing.Equals(key), nil
}

func (s *KVStore) GetIdentity(ctx context.Context, addr address.ProtocolAddress) (key_ed25519.PublicKey, error) {
	data, err := s.backend.Get(ctx, fmt.Sprintf(configs.StoreIdentityKey, addr))
	if err != nil {
		return nil, err
	}
	return key_ed25519.PublicKey(data), nil
}

func (s *KVStore) LoadPreKey(ctx context.Context, id uint32) (*record.PreKeyRecord, error) {
	data, err := s.backend.Get(ctx, fmt.Sprintf(configs.StorePreKeyKey, id))
	if err != nil {
		return nil, err
	}
	return record.DeserializePreKeyRecord(data)
}

func (s *KVStore) StorePreKey(ctx context.Context, id uint32, rec *record.PreKeyRecord) error {
	data, err := rec.Serialize()
	if err != nil {
		return err
	}
	return s.backend.Put(ctx, fmt.Sprintf(configs.StorePreKeyKey, id), data)
}

func (s *KVStore) RemovePreKey(ctx context.Context, id uint32) error {
	return s.backend.Delete(ctx, fmt.Sprintf(configs.StorePreKeyKey, id))
}

func (s *KVStore) LoadSignedPreKey(ctx context.Context, id uint32) (*record.SignedPreKeyRecord, error) {
	data, err := s.backend.Get(ctx, fmt.Sprintf(configs.StoreSignedPreKeyKey, id))
	if err != nil {
		return nil, err
	}
	return record.DeserializeSignedPreKeyRecord(data)
}

func (s *KVStore) StoreSignedPreKey(ctx context.Context, id uint32, rec *record.SignedPreKeyRecord) error {
	data, err := rec.Serialize()
	if err != nil {
		return err
	}
	return s.backend.Put(ctx, fmt.Sprintf(configs.StoreSignedPreKeyKey, id), data)
}

func (s *KVStore) LoadKyberPreKey(ctx context.Context, id uint32) (*record.KyberPreKeyRecord, error) {
	data, err := s.backend.Get(ctx, fmt.Sprintf(configs.StoreKyberPreKeyKey, id))
	if err != nil {
		return nil, err
	}
	return record.DeserializeKyberPreKeyRecord(data)
}

func (s *KVStore) StoreKyberPreKey(ctx context.Context, id uint32, rec *record.KyberPreKeyRecord) error {
	data, err := rec.Serialize()
	if err != nil {
		return err
	}
	return s.backend.Put(ctx, fmt.Sprintf(configs.StoreKyberPreKeyKey, id), data)
}

// MarkKyberPreKeyUsed flags the record. Kyber pre-keys are last-resort keys and are not removed.
func (s *KVStore) MarkKyberPreKeyUsed(ctx context.Context, id uint32) error {
	rec, err := s.LoadKyberPreKey(ctx, id)
	if err != nil {
		return err
	}
	rec.Used = true
	return s.StoreKyberPreKey(ctx, id, rec)
}

func (s *KVStore) LoadSenderKey(ctx context.Context, sender address.ProtocolAddress, distributionID uuid.UUID) (*record.SenderKeyRecord, error) {
	data, err := s.backend.Get(ctx, fmt.Sprintf(configs.StoreSenderKeyKey, sender, distributionID))
	if err != nil {
		return nil, err
	}
	return record.DeserializeSenderKeyRecord(data)
}

func (s *KVStore) StoreSenderKey(ctx context.Context, sender address.ProtocolAddress, distributionID uuid.UUID, rec *record.SenderKeyRecord) error {
	data, err := rec.Serialize()
	if err != nil {
		return err
	}
	return s.backend.Put(ctx, fmt.Sprintf(configs.StoreSenderKeyKey, sender, distributionID), data)
}
