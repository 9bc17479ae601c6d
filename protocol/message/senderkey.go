package message

import (
	"encoding/json"
	"fmt"

	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/signer_schnorr"
	"github.com/google/uuid"
)

// SignatureSize is the size of a schnorr signature over the Ed25519 suite.
const SignatureSize = 64

// SenderKeyMessage is a group message. It is serialized as
// version || json(body) || signature, the signature covering everything before it.
type SenderKeyMessage struct {
	DistributionID uuid.UUID `json:"distribution_id"`
	ChainID        uint32    `json:"chain_id"`
	Iteration      uint32    `json:"iteration"`
	Ciphertext     []byte    `json:"ciphertext"`

	signature  []byte
	serialized []byte
}

func NewSenderKeyMessage(distributionID uuid.UUID, chainID, iteration uint32, ciphertext []byte, signingKey key_ed25519.PrivateKey) (*SenderKeyMessage, error) {
	m := &SenderKeyMessage{
		DistributionID: distributionID,
		ChainID:        chainID,
		Iteration:      iteration,
		Ciphertext:     ciphertext,
	}
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sender key message: %w", err)
	}
	signed := withVersion(body)
	sig, err := signer_schnorr.Sign(signingKey, signed)
	if err != nil {
		return nil, fmt.Errorf("failed to sign sender key message: %w", err)
	}
	m.signature = sig
	m.serialized = append(signed, sig...)
	return m, nil
}

func ParseSenderKeyMessage(data []byte) (*SenderKeyMessage, error) {
	if err := checkVersion(data); err != nil {
		return nil, err
	}
	if len(data) < 1+SignatureSize {
		return nil, ErrMessageTooShort
	}
	var m SenderKeyMessage
	if err := json.Unmarshal(data[1:len(data)-SignatureSize], &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	m.serialized = append([]byte(nil), data...)
	m.signature = m.serialized[len(data)-SignatureSize:]
	return &m, nil
}

// VerifySignature checks the message signature against the sender's signing key.
func (m *SenderKeyMessage) VerifySignature(signingKey key_ed25519.PublicKey) error {
	return signer_schnorr.Verify(signingKey, m.serialized[:len(m.serialized)-SignatureSize], m.signature)
}

func (m *SenderKeyMessage) Serialize() []byte { return m.serialized }

func (m *SenderKeyMessage) Type() CiphertextMessageType { return SenderKeyType }

// SenderKeyDistributionMessage hands a sender chain to group members over
// pairwise sessions.
type SenderKeyDistributionMessage struct {
	DistributionID uuid.UUID             `json:"distribution_id"`
	ChainID        uint32                `json:"chain_id"`
	Iteration      uint32                `json:"iteration"`
	ChainKey       []byte                `json:"chain_key"`
	SigningKey     key_ed25519.PublicKey `json:"signing_key"`

	serialized []byte
}

func NewSenderKeyDistributionMessage(distributionID uuid.UUID, chainID, iteration uint32, chainKey []byte, signingKey key_ed25519.PublicKey) (*SenderKeyDistributionMessage, error) {
	m := &SenderKeyDistributionMessage{
		DistributionID: distributionID,
		ChainID:        chainID,
		Iteration:      iteration,
		ChainKey:       chainKey,
		SigningKey:     signingKey,
	}
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal distribution message: %w", err)
	}
	m.serialized = withVersion(body)
	return m, nil
}

func ParseSenderKeyDistributionMessage(data []byte) (*SenderKeyDistributionMessage, error) {
	if err := checkVersion(data); err != nil {
		return nil, err
	}
	var m SenderKeyDistributionMessage
	if err := json.Unmarshal(data[1:], &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if len(m.ChainKey) != 32 {
		return nil, fmt.Errorf("%w: chain key length %d", ErrInvalidMessage, len(m.ChainKey))
	}
	if err := m.SigningKey.Validate(); err != nil {
		return nil, fmt.Errorf("%w: signing key: %v", ErrInvalidMessage, err)
	}
	m.serialized = append([]byte(nil), data...)
	return &m, nil
}

func (m *SenderKeyDistributionMessage) Serialize() []byte { return m.serialized }
