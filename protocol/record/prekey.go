package record

import (
	"encoding/json"

	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/kem_mlkem"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/signer_schnorr"
)

type PreKeyRecord struct {
	ID      uint32           `json:"id"`
	KeyPair key_ed25519.Pair `json:"key_pair"`
}

type SignedPreKeyRecord struct {
	ID        uint32           `json:"id"`
	Timestamp uint64           `json:"timestamp"`
	KeyPair   key_ed25519.Pair `json:"key_pair"`
	Signature []byte           `json:"signature"`
}

type KyberPreKeyRecord struct {
	ID        uint32         `json:"id"`
	Timestamp uint64         `json:"timestamp"`
	KeyPair   kem_mlkem.Pair `json:"key_pair"`
	Signature []byte         `json:"signature"`
	Used      bool           `json:"used,omitempty"`
}

// GeneratePreKeys creates count one-time pre-keys with consecutive ids starting at start.
func GeneratePreKeys(start, count uint32) ([]PreKeyRecord, error) {
	records := make([]PreKeyRecord, 0, count)
	for i := uint32(0); i < count; i++ {
		pair, err := key_ed25519.GeneratePair()
		if err != nil {
			return nil, err
		}
		records = append(records, PreKeyRecord{ID: start + i, KeyPair: pair})
	}
	return records, nil
}

// GenerateSignedPreKey creates a pre-key signed by the identity key.
func GenerateSignedPreKey(identity key_ed25519.Pair, id uint32, timestamp uint64) (*SignedPreKeyRecord, error) {
	pair, err := key_ed25519.GeneratePair()
	if err != nil {
		return nil, err
	}
	sig, err := signer_schnorr.Sign(identity.Priv, pair.Pub)
	if err != nil {
		return nil, err
	}
	return &SignedPreKeyRecord{ID: id, Timestamp: timestamp, KeyPair: pair, Signature: sig}, nil
}

// GenerateKyberPreKey creates an ML-KEM-768 pre-key signed by the identity key.
func GenerateKyberPreKey(identity key_ed25519.Pair, id uint32, timestamp uint64) (*KyberPreKeyRecord, error) {
	pair, err := kem_mlkem.GeneratePair()
	if err != nil {
		return nil, err
	}
	sig, err := signer_schnorr.Sign(identity.Priv, pair.Pub)
	if err != nil {
		return nil, err
	}
	return &KyberPreKeyRecord{ID: id, Timestamp: timestamp, KeyPair: pair, Signature: sig}, nil
}

func (r *PreKeyRecord) Serialize() ([]byte, error)       { return json.Marshal(r) }
func (r *SignedPreKeyRecord) Serialize() ([]byte, error) { return json.Marshal(r) }
func (r *KyberPreKeyRecord) Serialize() ([]byte, error)  { return json.Marshal(r) }

func DeserializePreKeyRecord(data []byte) (*PreKeyRecord, error) {
	var r PreKeyRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func DeserializeSignedPreKeyRecord(data []byte) (*SignedPreKeyRecord, error) {
	var r SignedPreKeyRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func DeserializeKyberPreKeyRecord(data []byte) (*KyberPreKeyRecord, error) {
	var r KyberPreKeyRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
