package message

import "errors"

var (
	ErrMessageTooShort    = errors.New("message too short")
	ErrUnsupportedVersion = errors.New("unsupported message version")
	ErrInvalidMessage     = errors.New("invalid message")
	ErrNotDecryptionError = errors.New("plaintext content carries no decryption error")
)
