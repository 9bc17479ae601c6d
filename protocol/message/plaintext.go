package message

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PlaintextContent is sent without any encryption, only ever to carry a
// DecryptionErrorMessage back to a sender whose message could not be read.
type PlaintextContent struct {
	body       []byte
	serialized []byte
}

type plaintextBody struct {
	DecryptionError *DecryptionErrorMessage `json:"decryption_error"`
}

func NewPlaintextContent(body []byte) *PlaintextContent {
	serialized := make([]byte, 0, len(body)+1)
	serialized = append(serialized, plaintextMarker)
	serialized = append(serialized, body...)
	return &PlaintextContent{body: serialized[1:], serialized: serialized}
}

// PlaintextContentFromDecryptionError wraps a decryption error report.
func PlaintextContentFromDecryptionError(dem *DecryptionErrorMessage) (*PlaintextContent, error) {
	body, err := json.Marshal(plaintextBody{DecryptionError: dem})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal decryption error: %w", err)
	}
	return NewPlaintextContent(append(body, plaintextPadding)), nil
}

func ParsePlaintextContent(data []byte) (*PlaintextContent, error) {
	if len(data) == 0 {
		return nil, ErrMessageTooShort
	}
	if data[0] != plaintextMarker {
		return nil, fmt.Errorf("%w: missing plaintext marker", ErrInvalidMessage)
	}
	return NewPlaintextContent(data[1:]), nil
}

// Body returns the embedded content bytes.
func (p *PlaintextContent) Body() []byte { return p.body }

// DecryptionError extracts the decryption error report from the body.
func (p *PlaintextContent) DecryptionError() (*DecryptionErrorMessage, error) {
	body := bytes.TrimSuffix(p.body, []byte{plaintextPadding})
	var pb plaintextBody
	if err := json.Unmarshal(body, &pb); err != nil || pb.DecryptionError == nil {
		return nil, ErrNotDecryptionError
	}
	return pb.DecryptionError, nil
}

func (p *PlaintextContent) Serialize() []byte { return p.serialized }

func (p *PlaintextContent) Type() CiphertextMessageType { return PlaintextContentType }
