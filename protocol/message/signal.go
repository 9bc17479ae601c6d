package message

import (
	"encoding/json"
	"fmt"

	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/doubleratchet"
)

// SignalMessage is a ratchet message on an established session.
type SignalMessage struct {
	Header     doubleratchet.Header `json:"header"`
	Ciphertext []byte               `json:"ciphertext"`

	serialized []byte
}

func NewSignalMessage(header doubleratchet.Header, ciphertext []byte) (*SignalMessage, error) {
	m := &SignalMessage{Header: header, Ciphertext: ciphertext}
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal signal message: %w", err)
	}
	m.serialized = withVersion(body)
	return m, nil
}

func ParseSignalMessage(data []byte) (*SignalMessage, error) {
	if err := checkVersion(data); err != nil {
		return nil, err
	}
	var m SignalMessage
	if err := json.Unmarshal(data[1:], &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := m.Header.RatchetPub.Validate(); err != nil {
		return nil, fmt.Errorf("%w: ratchet key: %v", ErrInvalidMessage, err)
	}
	if len(m.Ciphertext) == 0 {
		return nil, fmt.Errorf("%w: empty ciphertext", ErrInvalidMessage)
	}
	m.serialized = append([]byte(nil), data...)
	return &m, nil
}

func (m *SignalMessage) Serialize() []byte { return m.serialized }

func (m *SignalMessage) Type() CiphertextMessageType { return WhisperType }
