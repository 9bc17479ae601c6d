package message

import (
	"encoding/json"
	"fmt"

	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
)

// PreKeySignalMessage bootstraps a session: it carries what Bob needs to run
// the key agreement plus the first ratchet message.
type PreKeySignalMessage struct {
	RegistrationID  uint32                `json:"registration_id"`
	PreKeyID        *uint32               `json:"pre_key_id,omitempty"`
	SignedPreKeyID  uint32                `json:"signed_pre_key_id"`
	KyberPreKeyID   *uint32               `json:"kyber_pre_key_id,omitempty"`
	KyberCiphertext []byte                `json:"kyber_ciphertext,omitempty"`
	BaseKey         key_ed25519.PublicKey `json:"base_key"`
	IdentityKey     key_ed25519.PublicKey `json:"identity_key"`
	Message         []byte                `json:"message"`

	signalMessage *SignalMessage
	serialized    []byte
}

func NewPreKeySignalMessage(m PreKeySignalMessage, inner *SignalMessage) (*PreKeySignalMessage, error) {
	m.Message = inner.Serialize()
	m.signalMessage = inner
	body, err := json.Marshal(&m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pre-key message: %w", err)
	}
	m.serialized = withVersion(body)
	return &m, nil
}

func ParsePreKeySignalMessage(data []byte) (*PreKeySignalMessage, error) {
	if err := checkVersion(data); err != nil {
		return nil, err
	}
	var m PreKeySignalMessage
	if err := json.Unmarshal(data[1:], &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := m.BaseKey.Validate(); err != nil {
		return nil, fmt.Errorf("%w: base key: %v", ErrInvalidMessage, err)
	}
	if err := m.IdentityKey.Validate(); err != nil {
		return nil, fmt.Errorf("%w: identity key: %v", ErrInvalidMessage, err)
	}
	if (m.KyberPreKeyID == nil) != (len(m.KyberCiphertext) == 0) {
		return nil, fmt.Errorf("%w: kyber pre-key id and ciphertext must come together", ErrInvalidMessage)
	}
	inner, err := ParseSignalMessage(m.Message)
	if err != nil {
		return nil, err
	}
	m.signalMessage = inner
	m.serialized = append([]byte(nil), data...)
	return &m, nil
}

// SignalMessage returns the embedded ratchet message.
func (m *PreKeySignalMessage) SignalMessage() *SignalMessage { return m.signalMessage }

func (m *PreKeySignalMessage) Serialize() []byte { return m.serialized }

func (m *PreKeySignalMessage) Type() CiphertextMessageType { return PreKeyType }
