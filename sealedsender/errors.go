package sealedsender

import (
	"errors"
	"fmt"

	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/message"
)

var (
	// ErrInvalidArgument is the class of caller contract violations
	ErrInvalidArgument = errors.New("invalid argument")

	ErrInvalidDeviceID      = fmt.Errorf("%w: device id must be positive", ErrInvalidArgument)
	ErrInvalidTimestamp     = fmt.Errorf("%w: validation timestamp must be positive", ErrInvalidArgument)
	ErrMissingValidator     = fmt.Errorf("%w: no certificate validator", ErrInvalidArgument)
	ErrDeviceIDOutOfRange   = fmt.Errorf("%w: sender device id out of range", ErrInvalidArgument)
	ErrUnhandledMessageType = fmt.Errorf("%w: unhandled message type", ErrInvalidArgument)
	ErrNoRecipients         = fmt.Errorf("%w: no recipients", ErrInvalidArgument)
	ErrMissingStore         = fmt.Errorf("%w: store not configured", ErrInvalidArgument)

	// ErrSelfSend is returned for messages sent by the local device itself
	ErrSelfSend = errors.New("message sent by this device")

	ErrInvalidCertificate     = errors.New("invalid sender certificate")
	ErrCertificateExpired     = errors.New("sender certificate expired")
	ErrRevokedCertificate     = errors.New("server certificate revoked")
	ErrCertificateKeyMismatch = errors.New("sender certificate key does not match the sealing key")
	ErrInvalidSealedMessage   = errors.New("invalid sealed sender message")
	ErrInvalidAuthTag         = errors.New("invalid multi-recipient authentication tag")
	ErrUnsupportedVersion     = errors.New("unsupported sealed sender version")
	ErrNoIdentity             = errors.New("no identity for recipient")
)

// UnhandledMessageTypeError reports an inner message tag with no decrypt routine.
type UnhandledMessageTypeError struct {
	Type message.CiphertextMessageType
}

func (e *UnhandledMessageTypeError) Error() string {
	return fmt.Sprintf("unhandled message type %d", uint8(e.Type))
}

func (e *UnhandledMessageTypeError) Is(target error) bool {
	return errors.Is(ErrUnhandledMessageType, target)
}
