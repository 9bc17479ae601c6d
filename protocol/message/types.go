package message

import "strconv"

// CiphertextMessageType is the tag carried next to every inner ciphertext.
// Values outside the known set are representable so they can be rejected.
type CiphertextMessageType uint8

const (
	WhisperType          CiphertextMessageType = 2
	PreKeyType           CiphertextMessageType = 3
	SenderKeyType        CiphertextMessageType = 7
	PlaintextContentType CiphertextMessageType = 8
)

const (
	// CiphertextVersion is the current version of the ratchet and sender key formats
	CiphertextVersion = 4
	versionByte       = CiphertextVersion<<4 | CiphertextVersion

	// plaintextMarker prefixes PlaintextContent so it cannot be mistaken for a versioned message
	plaintextMarker = 0xC0
	// plaintextPadding terminates a PlaintextContent body
	plaintextPadding = 0x80
)

func (t CiphertextMessageType) String() string {
	switch t {
	case WhisperType:
		return "whisper"
	case PreKeyType:
		return "prekey"
	case SenderKeyType:
		return "senderkey"
	case PlaintextContentType:
		return "plaintext"
	default:
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

// CiphertextMessage is an inner message ready to be wrapped in an envelope.
type CiphertextMessage interface {
	Serialize() []byte
	Type() CiphertextMessageType
}

func checkVersion(data []byte) error {
	if len(data) == 0 {
		return ErrMessageTooShort
	}
	if data[0]>>4 != CiphertextVersion {
		return ErrUnsupportedVersion
	}
	return nil
}

func withVersion(body []byte) []byte {
	out := make([]byte, 0, len(body)+1)
	out = append(out, versionByte)
	return append(out, body...)
}
