package record

import (
	"encoding/json"

	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
)

const (
	// MaxSenderKeyStates is the number of sender chains kept per distribution id
	MaxSenderKeyStates = 5
	// MaxMessageKeys bounds the skipped message keys kept per chain
	MaxMessageKeys = 2000
)

type SenderChainKey struct {
	Iteration uint32 `json:"iteration"`
	Seed      []byte `json:"seed"`
}

type SenderMessageKey struct {
	Iteration uint32 `json:"iteration"`
	Seed      []byte `json:"seed"`
}

type SenderKeyState struct {
	ChainID  uint32         `json:"chain_id"`
	ChainKey SenderChainKey `json:"chain_key"`
	// SigningKey has no private part on receiving chains
	SigningKey  key_ed25519.Pair   `json:"signing_key"`
	MessageKeys []SenderMessageKey `json:"message_keys,omitempty"`
}

// AddMessageKey stores a skipped message key, evicting the oldest past MaxMessageKeys.
func (s *SenderKeyState) AddMessageKey(key SenderMessageKey) {
	s.MessageKeys = append(s.MessageKeys, key)
	if excess := len(s.MessageKeys) - MaxMessageKeys; excess > 0 {
		s.MessageKeys = s.MessageKeys[excess:]
	}
}

// RemoveMessageKey takes the stored key for iteration out of the state.
func (s *SenderKeyState) RemoveMessageKey(iteration uint32) (SenderMessageKey, bool) {
	for i, k := range s.MessageKeys {
		if k.Iteration == iteration {
			s.MessageKeys = append(s.MessageKeys[:i:i], s.MessageKeys[i+1:]...)
			return k, true
		}
	}
	return SenderMessageKey{}, false
}

// SenderKeyRecord holds the sender chains for one (sender, distribution id),
// newest first.
type SenderKeyRecord struct {
	States []*SenderKeyState `json:"states"`
}

func NewSenderKeyRecord() *SenderKeyRecord {
	return &SenderKeyRecord{}
}

func DeserializeSenderKeyRecord(data []byte) (*SenderKeyRecord, error) {
	var r SenderKeyRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *SenderKeyRecord) Serialize() ([]byte, error) {
	return json.Marshal(r)
}

func (r *SenderKeyRecord) CurrentState() (*SenderKeyState, error) {
	if len(r.States) == 0 {
		return nil, ErrNoSenderKeyState
	}
	return r.States[0], nil
}

func (r *SenderKeyRecord) StateForChainID(chainID uint32) (*SenderKeyState, error) {
	for _, s := range r.States {
		if s.ChainID == chainID {
			return s, nil
		}
	}
	return nil, ErrNoSenderKeyState
}

// AddState puts a new chain in front and reports whether it was added. A chain
// with the same id and signing key already present is kept as is.
func (r *SenderKeyRecord) AddState(state *SenderKeyState) bool {
	for _, s := range r.States {
		if s.ChainID == state.ChainID && s.SigningKey.Pub.Equals(state.SigningKey.Pub) {
			return false
		}
	}
	r.States = append([]*SenderKeyState{state}, r.States...)
	if len(r.States) > MaxSenderKeyStates {
		r.States = r.States[:MaxSenderKeyStates]
	}
	return true
}
