package sealedsender

import (
	"fmt"

	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/address"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/message"
)

// MessageType classifies the inner format a message was decrypted from.
type MessageType int

const (
	MessageTypeWhisper MessageType = iota + 1
	MessageTypePreKey
	MessageTypeSenderKey
	MessageTypePlaintext
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeWhisper:
		return "whisper"
	case MessageTypePreKey:
		return "prekey"
	case MessageTypeSenderKey:
		return "senderkey"
	case MessageTypePlaintext:
		return "plaintext"
	default:
		return fmt.Sprintf("MessageType(%d)", int(t))
	}
}

// messageTypeOf is the only place wire tags become a MessageType.
func messageTypeOf(tag message.CiphertextMessageType) (MessageType, error) {
	switch tag {
	case message.WhisperType:
		return MessageTypeWhisper, nil
	case message.PreKeyType:
		return MessageTypePreKey, nil
	case message.SenderKeyType:
		return MessageTypeSenderKey, nil
	case message.PlaintextContentType:
		return MessageTypePlaintext, nil
	default:
		return 0, &UnhandledMessageTypeError{Type: tag}
	}
}

// DecryptResult is built from the sender certificate only.
type DecryptResult struct {
	Sender        address.Address
	DeviceID      int32
	PaddedMessage []byte
	MessageType   MessageType
}

// KnownSenderError is returned by Decrypt for every failure after the sender
// certificate was recovered.
type KnownSenderError struct {
	Sender      address.Address
	DeviceID    uint32
	Type        message.CiphertextMessageType
	GroupID     []byte
	Contents    []byte
	ContentHint ContentHint
	Err         error
}

func newKnownSenderError(content *UnidentifiedSenderMessageContent, err error) *KnownSenderError {
	cert := content.SenderCertificate()
	return &KnownSenderError{
		Sender:      cert.Sender(),
		DeviceID:    cert.SenderDeviceID(),
		Type:        content.MsgType(),
		GroupID:     content.GroupID(),
		Contents:    content.Contents(),
		ContentHint: content.ContentHint(),
		Err:         err,
	}
}

func (e *KnownSenderError) Error() string {
	return fmt.Sprintf("failed to decrypt %s message from %s.%d: %v", e.Type, e.Sender, e.DeviceID, e.Err)
}

func (e *KnownSenderError) Unwrap() error {
	return e.Err
}
