package doubleratchet

import "errors"

var (
	ErrInvalidSecretLength = errors.New("invalid secret length")
	ErrInvalidTag          = errors.New("invalid tag")
	ErrSkippingTooManyKeys = errors.New("skipping too many message keys")
	ErrNoSendingChain      = errors.New("no sending chain: remote ratchet key not yet received")
	ErrNoReceivingChain    = errors.New("no receiving chain")
	ErrCiphertextTooShort  = errors.New("ciphertext too short")
	ErrNilState            = errors.New("nil ratchet state")
)
