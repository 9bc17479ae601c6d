package message

import (
	"fmt"

	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
)

// DecryptionErrorMessage tells a sender which of its messages could not be
// decrypted, so it can resend or reset the session.
type DecryptionErrorMessage struct {
	// RatchetKey is the ratchet key of the failed message, if it had one
	RatchetKey key_ed25519.PublicKey `json:"ratchet_key,omitempty"`
	Timestamp  uint64                `json:"timestamp"`
	DeviceID   uint32                `json:"device_id"`
}

// NewDecryptionErrorMessage builds a report for the original message bytes.
// The ratchet key is taken from the original if it is a ratchet message.
func NewDecryptionErrorMessage(original []byte, originalType CiphertextMessageType, timestamp uint64, originalSenderDeviceID uint32) (*DecryptionErrorMessage, error) {
	dem := &DecryptionErrorMessage{Timestamp: timestamp, DeviceID: originalSenderDeviceID}
	switch originalType {
	case WhisperType:
		m, err := ParseSignalMessage(original)
		if err != nil {
			return nil, fmt.Errorf("failed to parse original message: %w", err)
		}
		dem.RatchetKey = m.Header.RatchetPub
	case PreKeyType:
		m, err := ParsePreKeySignalMessage(original)
		if err != nil {
			return nil, fmt.Errorf("failed to parse original message: %w", err)
		}
		dem.RatchetKey = m.SignalMessage().Header.RatchetPub
	case SenderKeyType, PlaintextContentType:
	default:
		return nil, fmt.Errorf("%w: original type %s", ErrInvalidMessage, originalType)
	}
	return dem, nil
}
